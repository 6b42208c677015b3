package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	charm "github.com/charmbracelet/log"

	"github.com/use-agent/enrich/api"
	"github.com/use-agent/enrich/api/handler"
	"github.com/use-agent/enrich/config"
	"github.com/use-agent/enrich/models"
	"github.com/use-agent/enrich/webhook"
)

func main() {
	mode := flag.String("mode", "batch", "run mode: batch, serve or once")
	id := flag.String("id", "", "product identifier (once mode)")
	name := flag.String("name", "", "product descriptive name (once mode)")
	manufacturer := flag.String("manufacturer", "", "product manufacturer (once mode)")
	limit := flag.Int("limit", 0, "maximum backlog products to process (batch mode, 0 = all)")
	dryRun := flag.Bool("dry-run", false, "do not write records to the catalog")
	flag.Parse()

	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("enrich starting", "mode", *mode, "dryRun", *dryRun, "maxPages", cfg.Browser.MaxPages)

	// serve may run without a catalog; accepted records then stay in memory.
	requireStore := !*dryRun && *mode != "serve"
	if err := cfg.Validate(requireStore); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	switch *mode {
	case "batch", "serve", "once":
	default:
		slog.Error("unknown mode", "mode", *mode)
		os.Exit(2)
	}
	if *mode == "once" && (*id == "" || *name == "") {
		slog.Error("once mode requires -id and -name")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 3. Wire components ──────────────────────────────────────────
	a, err := build(ctx, cfg, *dryRun)
	if err != nil {
		slog.Error("failed to initialise", "error", err)
		os.Exit(1)
	}
	defer a.close()

	// ── 4. Run ─────────────────────────────────────────────────────
	switch *mode {
	case "once":
		err = runOnce(ctx, a, models.Product{ID: *id, Name: *name, Manufacturer: *manufacturer})
	case "serve":
		err = serve(ctx, a, cfg)
	default:
		err = runBacklog(ctx, a, cfg, *limit)
	}
	if err != nil {
		slog.Error("enrich failed", "mode", *mode, "code", models.CodeOf(err), "error", err)
		a.close()
		os.Exit(1)
	}
	slog.Info("enrich stopped")
}

// runOnce enriches one product and prints its report as JSON.
func runOnce(ctx context.Context, a *app, p models.Product) error {
	rep, err := a.orchestrator.Enrich(ctx, p)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(rep); encErr != nil {
		return encErr
	}
	return err
}

// runBacklog processes pending catalog products and sends the configured
// webhook when done.
func runBacklog(ctx context.Context, a *app, cfg *config.Config, limit int) error {
	jobID := fmt.Sprintf("backlog-%d", time.Now().Unix())
	summary, results, err := a.batch.RunPending(ctx, a.backlog, limit, nil)
	if err != nil {
		return err
	}
	if cfg.Webhook.URL == "" {
		return nil
	}

	deliverCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	event := &webhook.Event{
		Type:      webhook.EventBatchCompleted,
		JobID:     jobID,
		Timestamp: time.Now().Unix(),
		Data: models.BatchStatusResponse{
			ID: jobID, Status: summary.Status(), Completed: len(results), Total: summary.Total,
			Summary: summary, Results: results,
		},
	}
	if err := webhook.NewNotifier(cfg.Webhook.Secret).Deliver(deliverCtx, cfg.Webhook.URL, event); err != nil {
		slog.Warn("backlog webhook not delivered", "url", cfg.Webhook.URL, "error", err)
	}
	return nil
}

// serve runs the HTTP API until ctx is cancelled.
func serve(ctx context.Context, a *app, cfg *config.Config) error {
	var pinger handler.Pinger
	if cfg.Store.DatabaseURL != "" {
		pinger = a.backlog
	}

	router := api.NewRouter(api.Deps{
		Enricher: a.orchestrator,
		Batch: handler.BatchDeps{
			Runner:         a.batch,
			Backlog:        a.backlog,
			Notifier:       webhook.NewNotifier(cfg.Webhook.Secret),
			DefaultWebhook: cfg.Webhook.URL,
		},
		Pool:    a.scraper,
		Store:   pinger,
		Metrics: a.metrics,
	}, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Give in-flight requests 5 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	return nil
}

// initLogger configures slog based on the LogConfig. The "pretty" format
// renders coloured, human-oriented lines on stderr for interactive runs.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch cfg.Format {
	case "text":
		h = slog.NewTextHandler(os.Stdout, opts)
	case "pretty":
		h = charm.NewWithOptions(os.Stderr, charm.Options{
			Level:           charm.Level(level),
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
		})
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(h))
}
