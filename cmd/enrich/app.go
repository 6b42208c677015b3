package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/use-agent/enrich/cache"
	"github.com/use-agent/enrich/cleaner"
	"github.com/use-agent/enrich/config"
	"github.com/use-agent/enrich/engine"
	"github.com/use-agent/enrich/llm"
	"github.com/use-agent/enrich/observability"
	"github.com/use-agent/enrich/pipeline"
	"github.com/use-agent/enrich/scraper"
	"github.com/use-agent/enrich/search"
	"github.com/use-agent/enrich/store"
)

// catalog is what the app needs from a store implementation.
type catalog interface {
	pipeline.Store
	pipeline.Backlog
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

// app holds the wired services for every run mode.
type app struct {
	scraper      *scraper.Scraper
	memory       *engine.DomainMemory
	cache        cache.Cache
	backlog      catalog
	writer       catalog
	orchestrator *pipeline.Orchestrator
	batch        *pipeline.Batch
	metrics      *observability.Metrics
}

// build wires every component from cfg. With dryRun, accepted records go
// to an in-memory store; the backlog is still read from the database when
// one is configured.
func build(ctx context.Context, cfg *config.Config, dryRun bool) (*app, error) {
	a := &app{metrics: observability.New()}

	mode, err := cleaner.ParseMode(cfg.Pipeline.ContentMode)
	if err != nil {
		return nil, err
	}

	// ── 1. Browser + engines ────────────────────────────────────────
	sc, err := scraper.NewScraper(cfg.Browser, cfg.Scraper)
	if err != nil {
		return nil, fmt.Errorf("initialise scraper: %w", err)
	}
	a.scraper = sc

	if cfg.Engine.EnableMultiEngine {
		// The rod callback bypasses the dispatcher; engine never imports
		// scraper.
		engines := []engine.Engine{
			engine.NewHTTPEngine(cfg.Scraper.AcceptLanguage, cfg.Engine.HTTPTimeout),
			engine.NewRodEngine(sc.RenderRod, false),
			engine.NewRodEngine(sc.RenderRod, true),
		}
		a.memory = engine.NewDomainMemory(cfg.Engine.MemoryTTL)
		dispatcher := engine.NewDispatcher(engines, cfg.Engine.EscalationDelays, a.memory)
		dispatcher.OnWin(a.metrics.EngineWon)
		sc.SetDispatcher(dispatcher)
		slog.Info("multi-engine dispatcher enabled",
			"engines", len(engines),
			"delays", cfg.Engine.EscalationDelays,
		)
	}

	// ── 2. Search + cache ───────────────────────────────────────────
	if a.cache, err = cache.New(ctx, cfg.Cache); err != nil {
		a.close()
		return nil, err
	}
	searcher := search.New(cfg.Search, a.cache)

	// ── 3. Catalog store ────────────────────────────────────────────
	if cfg.Store.DatabaseURL != "" {
		pg, err := store.Open(ctx, cfg.Store)
		if err != nil {
			a.close()
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			a.close()
			return nil, err
		}
		a.backlog = pg
	} else {
		slog.Warn("no catalog database configured, using an in-memory store")
		a.backlog = store.NewMemory()
	}
	a.writer = a.backlog
	if dryRun {
		a.writer = store.NewMemory()
		slog.Info("dry run: records will not be written to the catalog")
	}

	// ── 4. Model + orchestrator ─────────────────────────────────────
	client := llm.NewClient(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
	})
	a.orchestrator = pipeline.New(sc, searcher, client, a.writer, pipeline.Options{
		MaxCandidates:       cfg.Pipeline.MaxCandidates,
		LLMTimeout:          cfg.LLM.Timeout,
		SpecializedFallback: cfg.Pipeline.SpecializedFallback,
		RecoveryLenient:     cfg.Pipeline.RecoveryLenient,
		TargetLanguage:      cfg.LLM.TargetLanguage,
		ContentMode:         mode,
		SkipDuplicates:      cfg.Pipeline.SkipDuplicates,
	})
	a.orchestrator.SetObserver(a.metrics)
	a.batch = pipeline.NewBatch(a.orchestrator, cfg.Pipeline.Workers)

	slog.Info("pipeline ready",
		"model", client.Model(),
		"search", cfg.Search.Provider,
		"cache", cfg.Cache.Backend,
		"contentMode", mode,
		"workers", cfg.Pipeline.Workers,
	)
	return a, nil
}

// close releases everything build acquired, in reverse order.
func (a *app) close() {
	if a.writer != nil && a.writer != a.backlog {
		a.writer.Close()
	}
	if a.backlog != nil {
		a.backlog.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.memory != nil {
		a.memory.Stop()
	}
	if a.scraper != nil {
		a.scraper.Close()
	}
}
