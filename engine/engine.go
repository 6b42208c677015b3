// Package engine races page fetch strategies, from a static HTTP client to
// a stealth browser, and remembers which one works per domain.
package engine

import (
	"context"
	"time"

	"github.com/use-agent/enrich/models"
)

// Engine is one way of turning a URL into rendered HTML.
type Engine interface {
	// Name returns the engine identifier ("http", "rod", "rod-stealth").
	Name() string

	// Render fetches req.URL and returns the page.
	Render(ctx context.Context, req *Request) (*models.Page, error)

	// Interactive reports whether the engine can honour click and
	// wait-for-selector options.
	Interactive() bool
}

// Request contains everything an engine needs to render a page.
type Request struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
	Options models.RenderOptions
}
