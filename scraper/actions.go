package scraper

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// actionTimeout is the per-action deadline.
const actionTimeout = 10 * time.Second

// clickButtonText clicks the first button whose text contains text and
// waits briefly for the page to react. Missing buttons are an error the
// caller may ignore.
func clickButtonText(ctx context.Context, page *rod.Page, text string) error {
	actionCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()
	p := page.Context(actionCtx)

	el, err := p.ElementR("button", regexp.QuoteMeta(text))
	if err != nil {
		return fmt.Errorf("button %q not found: %w", text, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %q: %w", text, err)
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		return fmt.Errorf("after click %q: %w", text, err)
	}
	return nil
}

// waitSelector blocks until at least one element matches selector.
func waitSelector(ctx context.Context, page *rod.Page, selector string) error {
	actionCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()
	return page.Context(actionCtx).WaitElementsMoreThan(selector, 0)
}
