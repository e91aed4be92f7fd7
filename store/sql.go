package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zeu5/routing-rl/tsp"
	_ "modernc.org/sqlite"
)

const createInstancesTable = `
CREATE TABLE IF NOT EXISTS instances(
	problem TEXT NOT NULL,
	size INTEGER NOT NULL,
	idx INTEGER NOT NULL,
	seed INTEGER NOT NULL,
	record TEXT NOT NULL,
	PRIMARY KEY (problem, size, idx)
)`

// SQLStore keeps the instances in a single sqlite table
type SQLStore struct {
	db *sql.DB
}

var _ Store = &SQLStore{}

// NewSQLStore opens the database at path, ":memory:" keeps it in memory
func NewSQLStore(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		path = "instances.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// an in memory database lives only as long as its connection
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, createInstancesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating instances table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Save(ctx context.Context, key Key, instance *tsp.Instance) error {
	bs, err := tsp.EncodeInstance(instance)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO instances(problem, size, idx, seed, record) VALUES (?, ?, ?, ?, ?)`,
		key.Problem, key.Size, key.Index, instance.Seed, string(bs),
	)
	return err
}

func (s *SQLStore) Load(ctx context.Context, key Key) (*tsp.Instance, error) {
	var record string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM instances WHERE problem = ? AND size = ? AND idx = ?`,
		key.Problem, key.Size, key.Index,
	).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	} else if err != nil {
		return nil, err
	}
	return tsp.DecodeInstance([]byte(record))
}

// Count returns how many instances of the data set are stored
func (s *SQLStore) Count(ctx context.Context, problem string, size int) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM instances WHERE problem = ? AND size = ?`, problem, size,
	).Scan(&n)
	return n, err
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
