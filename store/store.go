// Package store persists generated instances so evaluations can replay them.
package store

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/zeu5/routing-rl/tsp"
)

var (
	ErrNotFound    = errors.New("instance not found")
	ErrUnknownKind = errors.New("unknown store kind")
)

// Key identifies one instance of a data set
type Key struct {
	Problem string
	Size    int
	Index   int
}

// DataSet is the name of the data set the key belongs to, <problem>_<size>
func (k Key) DataSet() string {
	return fmt.Sprintf("%s_%d", k.Problem, k.Size)
}

// Path is the location of the instance relative to the data directory
func (k Key) Path() string {
	return path.Join(k.DataSet(), fmt.Sprintf("instance_%d.json", k.Index))
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.DataSet(), k.Index)
}

type Store interface {
	Save(context.Context, Key, *tsp.Instance) error
	// Load returns ErrNotFound when nothing was saved under the key
	Load(context.Context, Key) (*tsp.Instance, error)
	Close() error
}

const (
	KindFile   = "file"
	KindRedis  = "redis"
	KindSQLite = "sqlite"
)

// Options select and configure a store
type Options struct {
	Kind       string
	Dir        string
	RedisAddr  string
	SQLitePath string
}

func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Kind {
	case KindFile, "":
		return NewFileStore(opts.Dir), nil
	case KindRedis:
		return NewRedisStore(ctx, opts.RedisAddr)
	case KindSQLite:
		return NewSQLStore(ctx, opts.SQLitePath)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, opts.Kind)
}
