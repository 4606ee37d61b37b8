package listings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent or no client is configured.
var ErrCacheMiss = errors.New("cache miss")

// Cache keeps JSON snapshots of list results in Redis.
type Cache struct {
	Rdb *redis.Client
	TTL time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{Rdb: rdb, TTL: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.Rdb != nil && c.TTL > 0
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if !c.enabled() {
		return ErrCacheMiss
	}
	raw, err := c.Rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	if !c.enabled() {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if err := c.Rdb.Set(ctx, key, payload, c.TTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	if err := c.Rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Generation reads the counter at key. A missing key, or no client, reads as 0.
func (c *Cache) Generation(ctx context.Context, key string) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	n, err := c.Rdb.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get %s: %w", key, err)
	}
	return n, nil
}

// Bump increments the counter at key and returns the new value.
func (c *Cache) Bump(ctx context.Context, key string) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	n, err := c.Rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	return n, nil
}
