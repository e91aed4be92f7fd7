package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zeu5/routing-rl/tsp"
	"github.com/zeu5/routing-rl/util"
)

// FileStore keeps every instance as a json file under Dir/<problem>_<size>/instance_<i>.json
type FileStore struct {
	Dir string
}

var _ Store = &FileStore{}

func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = "data"
	}
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(key Key) string {
	return filepath.Join(s.Dir, filepath.FromSlash(key.Path()))
}

func (s *FileStore) Save(_ context.Context, key Key, instance *tsp.Instance) error {
	bs, err := tsp.EncodeInstance(instance)
	if err != nil {
		return err
	}
	return util.WriteToFile(s.path(key), string(bs))
}

func (s *FileStore) Load(_ context.Context, key Key) (*tsp.Instance, error) {
	bs, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	} else if err != nil {
		return nil, err
	}
	return tsp.DecodeInstance(bs)
}

func (s *FileStore) Close() error {
	return nil
}
