// Package search turns a product's descriptive name into candidate URLs.
package search

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/use-agent/enrich/cache"
	"github.com/use-agent/enrich/config"
	"github.com/use-agent/enrich/models"
)

// userAgent is sent with every search request.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// requestTimeout bounds a single provider call.
const requestTimeout = 15 * time.Second

// Searcher returns result URLs for a query, in the provider's order.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]string, error)
}

// New builds the configured provider, wrapped in c when c is non-nil.
func New(cfg config.SearchConfig, c cache.Cache) Searcher {
	client := &http.Client{Timeout: requestTimeout}

	var s Searcher
	if cfg.Provider == "google" {
		s = NewGoogle(client, cfg.GoogleAPIKey, cfg.GoogleEngineID, cfg.MaxResults)
	} else {
		s = NewDuckDuckGo(client, cfg.MaxResults)
	}
	if c != nil {
		s = NewCached(s, c)
	}
	return s
}

func checkQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return models.NewPipelineError(models.ErrCodeInvalidInput, "search query is empty", nil)
	}
	return nil
}

// keepHTTP appends u to urls when it is an unseen http(s) link, and
// reports whether max has been reached.
func keepHTTP(urls []string, seen map[string]struct{}, u string, max int) ([]string, bool) {
	if strings.HasPrefix(u, "http") {
		if _, dup := seen[u]; !dup {
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	return urls, max > 0 && len(urls) >= max
}
