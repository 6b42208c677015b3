// Package cleaner turns rendered HTML into the compact text form sent to
// the language model.
package cleaner

import (
	"fmt"
	"log/slog"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"

	"github.com/use-agent/enrich/models"
)

// Mode selects the content rendering.
type Mode string

const (
	// ModeTags renders one "TAG:X | CONTENT: text" line per element.
	ModeTags Mode = "tags"
	// ModeMarkdown runs readability, then converts the main content to
	// Markdown.
	ModeMarkdown Mode = "markdown"
)

// ParseMode validates a configured mode name. Empty selects ModeTags.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeTags:
		return ModeTags, nil
	case ModeMarkdown:
		return ModeMarkdown, nil
	default:
		return "", fmt.Errorf("cleaner: unknown content mode %q", s)
	}
}

// Cleaner renders page content in one configured mode. The Markdown
// converter is created once and is safe for concurrent use.
type Cleaner struct {
	mode        Mode
	mdConverter *converter.Converter
}

// NewCleaner creates a Cleaner for mode.
func NewCleaner(mode Mode) *Cleaner {
	if mode == "" {
		mode = ModeTags
	}
	return &Cleaner{mode: mode, mdConverter: newMarkdownConverter()}
}

// Mode returns the configured mode.
func (c *Cleaner) Mode() Mode { return c.mode }

// Content renders rawHTML for the prompt. An empty result is reported as
// ErrCodeFetch so the candidate is skipped without a model call.
func (c *Cleaner) Content(rawHTML, sourceURL string) (string, error) {
	var (
		content string
		err     error
	)
	switch c.mode {
	case ModeMarkdown:
		main, ok := mainContent(rawHTML, sourceURL)
		content, err = toMarkdown(c.mdConverter, main, sourceURL)
		if err != nil {
			return "", models.NewPipelineError(models.ErrCodeFetch, "markdown conversion failed", err)
		}
		slog.Debug("cleaner: markdown content", "url", sourceURL, "readability", ok)
	default:
		content, err = TagLines(rawHTML)
		if err != nil {
			return "", err
		}
	}

	if content == "" {
		return "", models.NewPipelineError(models.ErrCodeFetch, "page has no visible content", nil)
	}
	slog.Debug("cleaner: content ready",
		"url", sourceURL, "mode", c.mode,
		"input_tokens", EstimateTokens(rawHTML), "content_tokens", EstimateTokens(content),
	)
	return content, nil
}
