package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache implements Cache using a single redis server.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a RedisCache for addr ("host:port") and database db.
// Dial and read timeouts are the go-redis defaults.
func NewRedisCache(addr string, db int) *RedisCache {
	return &RedisCache{client: redis.NewClient(&redis.Options{Addr: addr, DB: db})}
}

// Get implements Cache.Get.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set implements Cache.Set.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, keyPrefix+key, value, ttl).Err()
}

// Ping checks if redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client's connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
