// Package partner extracts product records from the partner duty-free shop,
// whose product pages share one accordion layout.
package partner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/use-agent/enrich/llm"
	"github.com/use-agent/enrich/models"
	"github.com/use-agent/enrich/walker"
)

// ConsentButton is the label of the partner's cookie consent button.
const ConsentButton = "Accept all"

// Completer sends one prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Extractor turns rendered partner pages into ProductRecords without a
// model call, unless a target language is configured.
type Extractor struct {
	completer      Completer
	targetLanguage string
}

// NewExtractor creates an Extractor. completer may be nil when
// targetLanguage is empty.
func NewExtractor(completer Completer, targetLanguage string) *Extractor {
	return &Extractor{completer: completer, targetLanguage: targetLanguage}
}

// RenderOptions returns the render settings partner pages need: the
// consent dialog dismissed and the accordion present.
func (e *Extractor) RenderOptions() models.RenderOptions {
	return models.RenderOptions{
		WaitSelector: ContainerSelector,
		ClickText:    ConsentButton,
		Stealth:      true,
	}
}

// Extract builds, walks and merges the content tree of a rendered page.
// An unrecognised element fails the whole extraction with
// ErrCodeUnrecognized. The returned record may still be incomplete.
func (e *Extractor) Extract(ctx context.Context, page *models.Page) (*models.ProductRecord, error) {
	tree, err := BuildTree(page.HTML)
	if err != nil {
		return nil, err
	}

	sections, err := walker.Sections(tree.Root)
	if err != nil {
		var unk *walker.UnrecognizedNodeError
		if errors.As(err, &unk) {
			return nil, models.NewPipelineError(models.ErrCodeUnrecognized,
				fmt.Sprintf("unrecognized <%s> in partner layout", unk.Tag), err)
		}
		return nil, models.NewPipelineError(models.ErrCodeInternal, "walk partner tree", err)
	}

	rec := Merge(tree.Name, sections)
	if e.targetLanguage == "" || e.completer == nil {
		return rec, nil
	}
	return e.translate(ctx, page.URL, rec), nil
}

// translate returns rec translated into the target language, or rec
// itself when the call or its recovery fails.
func (e *Extractor) translate(ctx context.Context, url string, rec *models.ProductRecord) *models.ProductRecord {
	payload, err := json.Marshal(rec)
	if err != nil {
		return rec
	}
	resp, err := e.completer.Complete(ctx, llm.TranslationPrompt(string(payload), e.targetLanguage))
	if err != nil {
		slog.Warn("partner: translation failed, keeping original",
			"url", url, "language", e.targetLanguage, "error", err,
		)
		return rec
	}
	obj, ok := llm.Recover(resp)
	if !ok {
		slog.Warn("partner: translation unparseable, keeping original",
			"url", url, "language", e.targetLanguage,
		)
		return rec
	}
	translated := models.RecordFromObject(obj)
	if rec.Complete() && !translated.Complete() {
		slog.Warn("partner: translation dropped fields, keeping original",
			"url", url, "missing", translated.MissingFields(),
		)
		return rec
	}
	return translated
}
