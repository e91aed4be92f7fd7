package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/zeu5/routing-rl/tsp"
)

const redisKeyPrefix = "routing-rl:"

// RedisStore keeps the encoded instances as plain redis strings
type RedisStore struct {
	cli *redis.Client
}

var _ Store = &RedisStore{}

// NewRedisStore connects to addr and checks the server is reachable
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		cli.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &RedisStore{cli: cli}, nil
}

func (s *RedisStore) Save(ctx context.Context, key Key, instance *tsp.Instance) error {
	bs, err := tsp.EncodeInstance(instance)
	if err != nil {
		return err
	}
	return s.cli.Set(ctx, redisKeyPrefix+key.String(), bs, 0).Err()
}

func (s *RedisStore) Load(ctx context.Context, key Key) (*tsp.Instance, error) {
	bs, err := s.cli.Get(ctx, redisKeyPrefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	} else if err != nil {
		return nil, err
	}
	return tsp.DecodeInstance(bs)
}

// Delete removes the key, used to clean up after tests
func (s *RedisStore) Delete(ctx context.Context, key Key) error {
	return s.cli.Del(ctx, redisKeyPrefix+key.String()).Err()
}

func (s *RedisStore) Close() error {
	return s.cli.Close()
}
