package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "enrich:search:"

// Redis stores results in a shared Redis so several workers reuse one
// another's searches.
type Redis struct {
	client redis.Cmdable
	close  func() error
	ttl    time.Duration
}

// NewRedis connects to addr and verifies the connection with PING.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: redis ping %s: %w", addr, err)
	}
	slog.Info("search cache connected", "backend", "redis", "addr", addr)
	return &Redis{client: client, close: client.Close, ttl: ttl}, nil
}

// Get returns the cached URLs for key. Backend errors are logged and
// treated as a miss.
func (c *Redis) Get(ctx context.Context, key string) ([]string, bool) {
	val, err := c.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("search cache read failed", "error", err)
		}
		return nil, false
	}
	var urls []string
	if err := json.Unmarshal([]byte(val), &urls); err != nil {
		slog.Warn("search cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return urls, true
}

// Set stores urls under key with the configured TTL.
func (c *Redis) Set(ctx context.Context, key string, urls []string) {
	b, err := json.Marshal(urls)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+key, b, c.ttl).Err(); err != nil {
		slog.Warn("search cache write failed", "error", err)
	}
}

// Close closes the underlying client.
func (c *Redis) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}
