package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/enrich/engine"
	"github.com/use-agent/enrich/models"
)

// RenderRod renders req in a pooled browser tab. It is exported so the
// engine.RodEngine callback in main can call it without re-entering the
// dispatcher.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Timeout guard     – hard deadline on the whole render
//  2. Acquire page      – borrow a tab from the pool
//  3. DEFER: cleanup    – about:blank + return to pool
//  4. Stealth           – evasions installed before navigation
//  5. Persona headers   – Accept-Language and a search Referer
//  6. Hijack            – block heavy resources and ad hosts
//  7. Navigate + settle – load, then wait for the DOM to stop changing
//  8. Interact          – consent click, wait for the content selector
//  9. Extract           – HTML, title, final URL, status
//
// Steps 4 to 6 must precede navigation: evasions and interception only
// apply to navigations started after they are installed.
func (s *Scraper) RenderRod(ctx context.Context, req *engine.Request) (*models.Page, error) {
	// ── 1. Timeout guard ──────────────────────────────────────────────
	timeout := req.Timeout
	if timeout <= 0 || timeout > s.scraperCfg.RenderTimeout {
		timeout = s.scraperCfg.RenderTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// ── 2. Acquire page from pool ─────────────────────────────────────
	s.activePages.Add(1)
	defer s.activePages.Add(-1)

	page, err := s.pagePool.Get(func() (*rod.Page, error) {
		return s.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeBrowserCrash, "failed to acquire page from pool", err)
	}

	// ── 3. Cleanup uses the page without the request context so it
	// still runs after a timeout.
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		s.pagePool.Put(page)
	}()

	// ── 4. Stealth injection ──────────────────────────────────────────
	if req.Options.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	// ── 5. Persona headers ────────────────────────────────────────────
	headers := s.personaHeaders(req)
	if len(headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(page)
	}

	// ── 6. Hijack router ──────────────────────────────────────────────
	if router := setupHijack(page, s.scraperCfg.BlockedResourceTypes, s.scraperCfg.BlockAds); router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	// ── 7. Navigate + settle ──────────────────────────────────────────
	if err := p.Navigate(req.URL); err != nil {
		return nil, categorizeError(err, "navigation to target URL failed")
	}
	settle(p, s.scraperCfg.SettleDelay)

	// ── 8. Interact ───────────────────────────────────────────────────
	if req.Options.ClickText != "" {
		if clickErr := clickButtonText(ctx, page, req.Options.ClickText); clickErr != nil {
			slog.Debug("consent button not clicked", "url", req.URL, "text", req.Options.ClickText, "error", clickErr)
		}
	}
	if req.Options.WaitSelector != "" {
		if waitErr := waitSelector(ctx, page, req.Options.WaitSelector); waitErr != nil {
			slog.Debug("wait selector not found", "url", req.URL, "selector", req.Options.WaitSelector, "error", waitErr)
		}
	}

	// ── 9. Extract ────────────────────────────────────────────────────
	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}

	statusCode := 0
	if res, evalErr := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); evalErr == nil {
		statusCode = res.Value.Int()
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &models.Page{
		URL:        req.URL,
		FinalURL:   finalURL,
		HTML:       rawHTML,
		Title:      evalStringOrEmpty(p, `() => document.title`),
		StatusCode: statusCode,
		Engine:     "rod",
	}, nil
}

// personaHeaders merges the configured Accept-Language and a search
// Referer with the request's own headers, which win.
func (s *Scraper) personaHeaders(req *engine.Request) map[string]string {
	headers := make(map[string]string, len(req.Headers)+2)
	if s.scraperCfg.AcceptLanguage != "" {
		headers["Accept-Language"] = s.scraperCfg.AcceptLanguage
	}
	if u, err := url.Parse(req.URL); err == nil && u.Hostname() != "" {
		headers["Referer"] = "https://duckduckgo.com/?q=" + url.QueryEscape(u.Hostname())
	}
	for k, v := range req.Headers {
		headers[k] = v
	}
	return headers
}

// settle waits for the DOM to stop changing, bounded by max.
func settle(p *rod.Page, max time.Duration) {
	if max <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(p.GetContext(), max)
	defer cancel()
	if err := p.Context(ctx).WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}
}

// evalStringOrEmpty evaluates js and returns its string result, or "".
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to proto.NetworkHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError maps browser errors to pipeline error codes.
func categorizeError(err error, msg string) *models.PipelineError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewPipelineError(models.ErrCodeFetch, "render timed out", err)
	case errors.Is(err, context.Canceled):
		return models.NewPipelineError(models.ErrCodeFetch, "render canceled", err)
	default:
		return models.NewPipelineError(models.ErrCodeFetch, msg, err)
	}
}
