package search

import (
	"context"
	"log/slog"

	"github.com/use-agent/enrich/cache"
)

// Cached serves repeated queries from a cache. Only non-empty results
// are stored.
type Cached struct {
	next  Searcher
	cache cache.Cache
}

// NewCached wraps next with c.
func NewCached(next Searcher, c cache.Cache) *Cached {
	return &Cached{next: next, cache: c}
}

func (s *Cached) Name() string { return s.next.Name() }

func (s *Cached) Search(ctx context.Context, query string) ([]string, error) {
	key := cache.Key(s.next.Name(), query)
	if urls, ok := s.cache.Get(ctx, key); ok {
		slog.Debug("search cache hit", "provider", s.next.Name(), "query", query)
		return urls, nil
	}

	urls, err := s.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(urls) > 0 {
		s.cache.Set(ctx, key, urls)
	}
	return urls, nil
}
