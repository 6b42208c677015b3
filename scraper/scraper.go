// Package scraper renders product pages in a pooled headless browser,
// optionally racing a static HTTP engine first.
package scraper

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"

	"github.com/use-agent/enrich/config"
	"github.com/use-agent/enrich/engine"
	"github.com/use-agent/enrich/models"
)

// Scraper manages the browser lifecycle and the page pool. It is safe for
// concurrent use.
type Scraper struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	browserCfg  config.BrowserConfig
	scraperCfg  config.ScraperConfig
	activePages atomic.Int32
	startTime   time.Time
	dispatcher  *engine.Dispatcher
}

// NewScraper launches the browser and initialises the page pool.
func NewScraper(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*Scraper, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("lang"), "en-GB")
	l.Set(flags.Flag("window-size"), "1920,1080")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewPipelineError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	pool := rod.NewPagePool(browserCfg.MaxPages)
	slog.Info("page pool created", "maxPages", browserCfg.MaxPages)

	return &Scraper{
		browser:    browser,
		pagePool:   pool,
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
		startTime:  time.Now(),
	}, nil
}

// SetDispatcher enables multi-engine racing for renders that need no
// browser interaction.
func (s *Scraper) SetDispatcher(d *engine.Dispatcher) {
	s.dispatcher = d
}

// Render fetches url and returns its HTML. Renders that click or wait for
// a selector go straight to the browser; the rest are raced by the
// dispatcher when one is configured. Failures and empty documents are
// reported as ErrCodeFetch.
func (s *Scraper) Render(ctx context.Context, url string, opts models.RenderOptions) (*models.Page, error) {
	req := &engine.Request{
		URL:     url,
		Timeout: s.scraperCfg.RenderTimeout,
		Options: opts,
	}

	var page *models.Page
	var err error
	if s.dispatcher != nil && !opts.Browser() {
		page, err = s.dispatcher.Dispatch(ctx, req)
	} else {
		page, err = s.RenderRod(ctx, req)
	}
	if err != nil {
		if models.CodeOf(err) == models.ErrCodeInternal {
			err = models.NewPipelineError(models.ErrCodeFetch, "render failed", err)
		}
		return nil, err
	}
	if strings.TrimSpace(page.HTML) == "" {
		return nil, models.NewPipelineError(models.ErrCodeFetch, "rendered page is empty", nil)
	}
	return page, nil
}

// Stats returns a snapshot of the pool's current state.
func (s *Scraper) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    s.browserCfg.MaxPages,
		ActivePages: int(s.activePages.Load()),
	}
}

// Uptime returns the time since the browser was launched.
func (s *Scraper) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Close drains the page pool and kills the browser process.
func (s *Scraper) Close() {
	slog.Info("scraper shutting down: draining page pool")
	s.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	slog.Info("scraper shutting down: closing browser")
	if err := s.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	slog.Info("scraper shutdown complete")
}
