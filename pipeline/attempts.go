package pipeline

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/use-agent/enrich/llm"
	"github.com/use-agent/enrich/models"
	"github.com/use-agent/enrich/simhash"
)

// duplicateBits is the fingerprint distance under which two pages count
// as the same content.
const duplicateBits = 3

// Extraction paths recorded in attempts.
const (
	PathSpecialized = "specialized"
	PathGeneric     = "generic"
)

type attemptResult struct {
	attempt models.Attempt
	record  *models.ProductRecord
	err     error
}

// attempts yields one result per extraction path tried, in candidate
// order. Each candidate is rendered once; a failed specialized result may
// be followed by a generic result for the same page. Nothing runs until
// the consumer asks for the next result.
func (o *Orchestrator) attempts(ctx context.Context, cands []models.Candidate) iter.Seq[attemptResult] {
	return func(yield func(attemptResult) bool) {
		var seen *simhash.Set
		if o.opts.SkipDuplicates {
			seen = simhash.NewSet(duplicateBits)
		}
		for _, c := range cands {
			if ctx.Err() != nil {
				return
			}
			if !o.tryCandidate(ctx, c, seen, yield) {
				return
			}
		}
	}
}

func (o *Orchestrator) tryCandidate(ctx context.Context, c models.Candidate, seen *simhash.Set, yield func(attemptResult) bool) bool {
	start := time.Now()
	path := PathGeneric
	var opts models.RenderOptions
	if c.Specialized() {
		path = PathSpecialized
		opts = o.partner.RenderOptions()
	}

	page, err := o.renderer.Render(ctx, c.URL, opts)
	if err != nil {
		return yield(judge(c, path, nil, "", err, start))
	}

	if c.Specialized() {
		rec, err := o.partner.Extract(ctx, page)
		if !yield(judge(c, PathSpecialized, rec, "", err, start)) {
			return false
		}
		if !o.opts.SpecializedFallback || ctx.Err() != nil {
			return true
		}
		start = time.Now()
	}

	rec, raw, err := o.generic(ctx, page, seen)
	return yield(judge(c, PathGeneric, rec, raw, err, start))
}

// generic extracts a record from any page with one model call. raw is
// the model output, kept for diagnostics. seen may be nil.
func (o *Orchestrator) generic(ctx context.Context, page *models.Page, seen *simhash.Set) (rec *models.ProductRecord, raw string, err error) {
	sourceURL := page.FinalURL
	if sourceURL == "" {
		sourceURL = page.URL
	}
	content, err := o.cleaner.Content(page.HTML, sourceURL)
	if err != nil {
		return nil, "", err
	}
	if seen != nil && seen.Seen(content) {
		return nil, "", models.NewPipelineError(models.ErrCodeDuplicate, "content duplicates an earlier candidate", nil)
	}

	prompt := llm.BuildPrompt(content, llm.PromptOptions{TargetLanguage: o.opts.TargetLanguage})
	raw, err = o.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, "", err
	}

	obj, ok := llm.Recover(raw)
	if !ok && o.opts.RecoveryLenient {
		obj, ok = llm.RecoverLenient(raw)
	}
	if !ok {
		return nil, raw, models.NewPipelineError(models.ErrCodeRecovery, "model output has no parseable object", nil)
	}
	return models.RecordFromObject(obj), raw, nil
}

// judge classifies one path's result against the acceptance gate.
func judge(c models.Candidate, path string, rec *models.ProductRecord, raw string, err error, start time.Time) attemptResult {
	a := models.Attempt{
		URL:      c.URL,
		Class:    c.Class,
		Path:     path,
		Response: raw,
		Duration: time.Since(start),
	}
	switch {
	case err != nil:
		a.Outcome = models.OutcomeFailed
	case !rec.Complete():
		a.Outcome = models.OutcomeIncomplete
		err = models.NewPipelineError(models.ErrCodeIncomplete,
			fmt.Sprintf("missing %s", strings.Join(rec.MissingFields(), ", ")), nil)
	default:
		a.Outcome = models.OutcomeSuccess
	}
	if err != nil {
		a.ErrorCode = models.CodeOf(err)
		a.Error = err.Error()
	}
	return attemptResult{attempt: a, record: rec, err: err}
}
