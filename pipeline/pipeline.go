// Package pipeline drives the per-product enrichment flow: search, rank,
// try candidates in order until one yields a complete record, persist it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/enrich/cleaner"
	"github.com/use-agent/enrich/models"
	"github.com/use-agent/enrich/partner"
	"github.com/use-agent/enrich/ranker"
)

// Renderer fetches a fully rendered page.
type Renderer interface {
	Render(ctx context.Context, url string, opts models.RenderOptions) (*models.Page, error)
}

// Searcher returns candidate URLs for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// Completer sends one prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Store persists accepted records. Both writes are idempotent.
type Store interface {
	UpsertDescription(ctx context.Context, id, name, description, sourceURL string) error
	UpsertSpecifications(ctx context.Context, id string, specs models.AttributeMap) error
}

// RecordStore is a Store that writes a whole record atomically. persist
// prefers it, so a failed specifications write never leaves a product
// marked as described.
type RecordStore interface {
	Store
	SaveRecord(ctx context.Context, id string, rec *models.ProductRecord, sourceURL string) error
}

// Observer is told about every finished attempt and product.
type Observer interface {
	AttemptFinished(a models.Attempt)
	ProductFinished(r *models.Report)
}

// Options tunes the orchestrator.
type Options struct {
	// MaxCandidates caps how many ranked candidates are tried.
	MaxCandidates int

	// LLMTimeout bounds each model call.
	LLMTimeout time.Duration

	// SpecializedFallback sends a failed partner page through the generic
	// path without re-rendering it.
	SpecializedFallback bool

	// RecoveryLenient repairs malformed model JSON before giving up.
	RecoveryLenient bool

	// TargetLanguage, when set, asks for translated records.
	TargetLanguage string

	// ContentMode selects the generic path's page rendering.
	ContentMode cleaner.Mode

	// SkipDuplicates skips the model call for a page whose content is a
	// near duplicate of a page already sent to the model for this product.
	SkipDuplicates bool
}

// Orchestrator runs enrichment for one product at a time. It holds no
// per-product state and is safe for concurrent use.
type Orchestrator struct {
	renderer  Renderer
	searcher  Searcher
	completer Completer
	store     Store
	partner   *partner.Extractor
	cleaner   *cleaner.Cleaner
	observer  Observer
	opts      Options
}

// New creates an Orchestrator. store may be nil for callers that only use
// Preview.
func New(r Renderer, s Searcher, c Completer, store Store, opts Options) *Orchestrator {
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = 10
	}
	if opts.ContentMode == "" {
		opts.ContentMode = cleaner.ModeTags
	}
	timed := &timedCompleter{next: c, timeout: opts.LLMTimeout}
	return &Orchestrator{
		renderer:  r,
		searcher:  s,
		completer: timed,
		store:     store,
		partner:   partner.NewExtractor(timed, opts.TargetLanguage),
		cleaner:   cleaner.NewCleaner(opts.ContentMode),
		observer:  nopObserver{},
		opts:      opts,
	}
}

// SetObserver registers obs for attempt and product events.
func (o *Orchestrator) SetObserver(obs Observer) {
	if obs == nil {
		obs = nopObserver{}
	}
	o.observer = obs
}

// Enrich finds a complete record for p and persists it.
//
// Per-candidate failures only advance to the next candidate. The returned
// error is nil on success, ErrCodeStore when persisting failed, or
// ErrCodeExhausted wrapping the last candidate error. The report is
// always non-nil.
func (o *Orchestrator) Enrich(ctx context.Context, p models.Product) (*models.Report, error) {
	return o.run(ctx, p, true)
}

// Preview is Enrich without the store writes.
func (o *Orchestrator) Preview(ctx context.Context, p models.Product) (*models.Report, error) {
	return o.run(ctx, p, false)
}

func (o *Orchestrator) run(ctx context.Context, p models.Product, persist bool) (report *models.Report, err error) {
	start := time.Now()
	report = &models.Report{Product: p, Query: p.Name, Outcome: models.OutcomeFailed}
	defer func() {
		report.Duration = time.Since(start)
		o.observer.ProductFinished(report)
	}()

	// ── 1. Validate ───────────────────────────────────────────────────
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
		return report, models.NewPipelineError(models.ErrCodeInvalidInput, "product id and name are required", nil)
	}
	if persist && o.store == nil {
		return report, models.NewPipelineError(models.ErrCodeInternal, "no store configured", nil)
	}

	// ── 2. Search ─────────────────────────────────────────────────────
	urls, err := o.searcher.Search(ctx, p.Name)
	if err != nil {
		slog.Warn("search failed", "product_id", p.ID, "query", p.Name, "error", err)
		return report, models.NewPipelineError(models.ErrCodeExhausted, "search returned no candidates", err)
	}

	// ── 3. Rank ───────────────────────────────────────────────────────
	cands := ranker.Order(ranker.Rank(urls))
	if len(cands) > o.opts.MaxCandidates {
		cands = cands[:o.opts.MaxCandidates]
	}
	report.Candidates = cands
	slog.Debug("candidates ranked", "product_id", p.ID, "results", len(urls), "candidates", len(cands))

	// ── 4. Try candidates until one is complete ───────────────────────
	var lastErr error
	for res := range o.attempts(ctx, cands) {
		report.Attempts = append(report.Attempts, res.attempt)
		o.observer.AttemptFinished(res.attempt)

		if res.attempt.Outcome != models.OutcomeSuccess {
			lastErr = res.err
			if res.record != nil {
				report.Record = res.record
				report.Outcome = models.OutcomeIncomplete
			}
			slog.Debug("candidate rejected",
				"product_id", p.ID, "url", res.attempt.URL, "path", res.attempt.Path,
				"outcome", res.attempt.Outcome, "error", res.err,
			)
			continue
		}

		report.Outcome = models.OutcomeSuccess
		report.Record = res.record
		report.SourceURL = res.attempt.URL

		// ── 5. Persist ────────────────────────────────────────────────
		if persist {
			if err := o.persist(ctx, p.ID, res.record, res.attempt.URL); err != nil {
				report.Outcome = models.OutcomeFailed
				return report, err
			}
			report.Persisted = true
		}
		return report, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return report, fmt.Errorf("pipeline: enrich %s: %w", p.ID, ctxErr)
	}
	return report, models.NewPipelineError(models.ErrCodeExhausted,
		fmt.Sprintf("no complete record among %d candidates", len(cands)), lastErr)
}

func (o *Orchestrator) persist(ctx context.Context, id string, rec *models.ProductRecord, sourceURL string) error {
	if rs, ok := o.store.(RecordStore); ok {
		if err := rs.SaveRecord(ctx, id, rec, sourceURL); err != nil {
			return asStoreError(err, "failed to store record")
		}
		return nil
	}
	if err := o.store.UpsertDescription(ctx, id, rec.ProductName, rec.Description, sourceURL); err != nil {
		return asStoreError(err, "failed to store description")
	}
	if err := o.store.UpsertSpecifications(ctx, id, rec.Specifications); err != nil {
		return asStoreError(err, "failed to store specifications")
	}
	return nil
}

func asStoreError(err error, msg string) error {
	if models.IsStoreError(err) {
		return err
	}
	return models.NewPipelineError(models.ErrCodeStore, msg, err)
}

// timedCompleter bounds every model call and reports an expired deadline
// as ErrCodeTimeout.
type timedCompleter struct {
	next    Completer
	timeout time.Duration
}

func (t *timedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if t.next == nil {
		return "", models.NewPipelineError(models.ErrCodeLLMFailure, "no model configured", nil)
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	out, err := t.next.Complete(ctx, prompt)
	if err != nil && models.CodeOf(err) == models.ErrCodeInternal && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", models.NewPipelineError(models.ErrCodeTimeout, "model call timed out", err)
	}
	return out, err
}

type nopObserver struct{}

func (nopObserver) AttemptFinished(models.Attempt)  {}
func (nopObserver) ProductFinished(*models.Report) {}
