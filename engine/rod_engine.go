package engine

import (
	"context"
	"fmt"

	"github.com/use-agent/enrich/models"
)

// RenderFunc renders a page in the browser. It is injected from main so
// the engine package does not import the scraper.
type RenderFunc func(ctx context.Context, req *Request) (*models.Page, error)

// RodEngine delegates to the browser page pool. With forceStealth set it
// is the heaviest tier ("rod-stealth").
type RodEngine struct {
	render       RenderFunc
	forceStealth bool
	name         string
}

// NewRodEngine creates a RodEngine around render.
func NewRodEngine(render RenderFunc, forceStealth bool) *RodEngine {
	name := "rod"
	if forceStealth {
		name = "rod-stealth"
	}
	return &RodEngine{render: render, forceStealth: forceStealth, name: name}
}

func (e *RodEngine) Name() string { return e.name }

func (e *RodEngine) Interactive() bool { return true }

func (e *RodEngine) Render(ctx context.Context, req *Request) (*models.Page, error) {
	if e.render == nil {
		return nil, fmt.Errorf("%s: render func not configured", e.name)
	}

	r := *req
	if e.forceStealth {
		r.Options.Stealth = true
	}

	page, err := e.render(ctx, &r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}
	page.Engine = e.name
	return page, nil
}
