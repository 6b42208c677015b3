package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/enrich/llm"
	"github.com/use-agent/enrich/models"
)

// maxLoggedResponse caps the model output echoed in batch logs.
const maxLoggedResponse = 500

// Enricher is the per-product operation a batch runs.
type Enricher interface {
	Enrich(ctx context.Context, p models.Product) (*models.Report, error)
}

// Backlog lists products still lacking descriptions.
type Backlog interface {
	PendingProducts(ctx context.Context, limit int) ([]models.Product, error)
}

// ProgressFunc is called once per finished product with its index in the
// input. Calls may come from several goroutines.
type ProgressFunc func(i int, r *models.BatchResult)

// Batch enriches many products, at most workers at a time. One product's
// failure never stops the batch.
type Batch struct {
	enricher Enricher
	workers  int
}

// NewBatch creates a Batch. workers < 1 runs products sequentially.
func NewBatch(e Enricher, workers int) *Batch {
	if workers < 1 {
		workers = 1
	}
	return &Batch{enricher: e, workers: workers}
}

// Run processes products and returns the summary and the per-product
// results in input order. Products not started before ctx is done are
// reported as failed.
func (b *Batch) Run(ctx context.Context, products []models.Product, progress ProgressFunc) (*models.BatchSummary, []*models.BatchResult) {
	start := time.Now()
	results := make([]*models.BatchResult, len(products))
	sem := make(chan struct{}, b.workers)
	var wg sync.WaitGroup

	for i, p := range products {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			results[i] = canceledResult(p, ctx.Err())
			continue
		}

		wg.Add(1)
		go func(i int, p models.Product) {
			defer wg.Done()
			defer func() { <-sem }()

			rep, err := b.enricher.Enrich(ctx, p)
			res := resultOf(p, rep, err)
			logResult(p, rep, err)
			results[i] = res
			if progress != nil {
				progress(i, res)
			}
		}(i, p)
	}
	wg.Wait()

	summary := summarize(results)
	slog.Info("batch complete",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"exhausted", summary.Exhausted,
		"store_failed", summary.StoreFailed,
		"failed", summary.Failed,
		"duration", time.Since(start),
	)
	return summary, results
}

// RunPending reads up to limit backlog products and runs them.
func (b *Batch) RunPending(ctx context.Context, backlog Backlog, limit int, progress ProgressFunc) (*models.BatchSummary, []*models.BatchResult, error) {
	products, err := backlog.PendingProducts(ctx, limit)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("backlog loaded", "products", len(products), "limit", limit)
	summary, results := b.Run(ctx, products, progress)
	return summary, results, nil
}

func resultOf(p models.Product, rep *models.Report, err error) *models.BatchResult {
	res := &models.BatchResult{ProductID: p.ID, Outcome: models.OutcomeFailed, Tried: []string{}}
	if rep != nil {
		res.Outcome = rep.Outcome
		res.SourceURL = rep.SourceURL
		res.Tried = rep.Tried()
	}
	if err != nil {
		res.Error = models.AsPipelineError(err).ToDetail()
		if res.Outcome == models.OutcomeSuccess {
			res.Outcome = models.OutcomeFailed
		}
	}
	return res
}

func canceledResult(p models.Product, err error) *models.BatchResult {
	return &models.BatchResult{
		ProductID: p.ID,
		Outcome:   models.OutcomeFailed,
		Tried:     []string{},
		Error:     models.AsPipelineError(err).ToDetail(),
	}
}

func logResult(p models.Product, rep *models.Report, err error) {
	attrs := []any{"product_id", p.ID, "name", p.Name}
	if rep != nil {
		attrs = append(attrs,
			"outcome", rep.Outcome,
			"candidates", len(rep.Candidates),
			"tried", rep.Tried(),
			"source_url", rep.SourceURL,
			"last_response", llm.Truncate(rep.LastResponse(), maxLoggedResponse),
			"duration", rep.Duration,
		)
	}
	if err != nil {
		attrs = append(attrs, "code", models.CodeOf(err), "error", err)
		slog.Warn("product not enriched", attrs...)
		return
	}
	slog.Info("product enriched", attrs...)
}

func summarize(results []*models.BatchResult) *models.BatchSummary {
	s := &models.BatchSummary{Total: len(results)}
	for _, r := range results {
		switch {
		case r == nil:
			s.Failed++
		case r.Error == nil:
			s.Succeeded++
		case r.Error.Code == models.ErrCodeStore:
			s.StoreFailed++
		case r.Error.Code == models.ErrCodeExhausted:
			s.Exhausted++
		default:
			s.Failed++
		}
	}
	return s
}
