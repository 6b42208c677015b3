// Package cache stores search results by query so repeated backlog runs
// do not re-query the search provider.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/use-agent/enrich/config"
)

// Cache maps a key to the ordered URL list a search returned. Misses and
// backend failures both report ok=false; a cache never fails a search.
type Cache interface {
	Get(ctx context.Context, key string) (urls []string, ok bool)
	Set(ctx context.Context, key string, urls []string)
	Close() error
}

// Key generates a cache key from the provider name and the query.
func Key(provider, query string) string {
	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte("|"))
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}

// New builds the backend named by cfg.Backend.
func New(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(cfg.MaxEntries, cfg.TTL), nil
	case "redis":
		return NewRedis(ctx, cfg.RedisAddr, cfg.TTL)
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}
}
