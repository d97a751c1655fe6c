package cache

import (
	"context"

	redis "github.com/redis/go-redis/v9"
)

// Cache is the single-key get/set surface of the state cache. There are no
// transactions and no multi-key atomicity; callers doing read-modify-write can
// lose concurrent updates (last writer wins).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
}

// Redis implements Cache over a plain Redis string keyspace.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, val []byte) error {
	return c.rdb.Set(ctx, key, val, 0).Err()
}
