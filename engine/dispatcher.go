package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/use-agent/enrich/models"
)

// WinFunc observes the engine that produced each dispatched page.
type WinFunc func(engine string)

// Dispatcher coordinates multi-engine racing with staged escalation.
// It starts the lightest engine first and progressively starts heavier
// engines if earlier ones fail or are slow.
type Dispatcher struct {
	engines []Engine
	delays  []time.Duration
	memory  *DomainMemory
	onWin   WinFunc
}

// NewDispatcher creates a Dispatcher. engines[i] starts delays[i] after
// the race begins; missing delays are zero. memory may be nil.
func NewDispatcher(engines []Engine, delays []time.Duration, memory *DomainMemory) *Dispatcher {
	d := make([]time.Duration, len(engines))
	copy(d, delays)
	return &Dispatcher{engines: engines, delays: d, memory: memory}
}

// OnWin registers fn to be called with the winning engine's name.
func (d *Dispatcher) OnWin(fn WinFunc) { d.onWin = fn }

// Dispatch renders req with the remembered engine for its domain, or by
// racing every eligible engine. Engines that cannot interact with the page
// are skipped when req.Options needs a browser. It returns the first
// success or the last error.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*models.Page, error) {
	engines, delays := d.eligible(req.Options)
	if len(engines) == 0 {
		return nil, models.NewPipelineError(models.ErrCodeFetch,
			fmt.Sprintf("no engine can render %s", req.URL), nil)
	}
	domain := extractDomain(req.URL)

	if name := d.remembered(domain); name != "" {
		for _, eng := range engines {
			if eng.Name() != name {
				continue
			}
			slog.Debug("domain memory hit", "domain", domain, "engine", name)
			page, err := eng.Render(ctx, req)
			if err == nil {
				d.won(domain, page.Engine)
				return page, nil
			}
			slog.Info("remembered engine failed, running full race",
				"domain", domain, "engine", name, "error", err)
			d.memory.Delete(domain)
			break
		}
	}

	return d.race(ctx, req, domain, engines, delays)
}

func (d *Dispatcher) eligible(opts models.RenderOptions) ([]Engine, []time.Duration) {
	if !opts.Browser() {
		return d.engines, d.delays
	}
	var engines []Engine
	var delays []time.Duration
	for i, eng := range d.engines {
		if eng.Interactive() {
			engines = append(engines, eng)
			delays = append(delays, d.delays[i])
		}
	}
	// The first eligible engine starts immediately.
	if len(delays) > 0 {
		shift := delays[0]
		for i := range delays {
			delays[i] -= shift
		}
	}
	return engines, delays
}

type raceResult struct {
	page *models.Page
	err  error
}

func (d *Dispatcher) race(ctx context.Context, req *Request, domain string, engines []Engine, delays []time.Duration) (*models.Page, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan raceResult, len(engines))
	var wg sync.WaitGroup
	for i, eng := range engines {
		wg.Add(1)
		go func(e Engine, delay time.Duration) {
			defer wg.Done()
			if delay > 0 {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-raceCtx.Done():
					return
				case <-timer.C:
				}
			}
			if raceCtx.Err() != nil {
				return
			}

			slog.Debug("engine starting", "engine", e.Name(), "url", req.URL)
			page, err := e.Render(raceCtx, req)
			if err != nil {
				slog.Debug("engine failed", "engine", e.Name(), "url", req.URL, "error", err)
			}
			results <- raceResult{page: page, err: err}
		}(eng, delays[i])
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var lastErr error
	for rr := range results {
		if rr.err != nil {
			lastErr = rr.err
			continue
		}
		cancel()
		slog.Info("engine won race", "engine", rr.page.Engine, "url", req.URL)
		d.won(domain, rr.page.Engine)
		return rr.page, nil
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("dispatcher: all engines failed for %s", req.URL)
	}
	return nil, lastErr
}

func (d *Dispatcher) remembered(domain string) string {
	if d.memory == nil {
		return ""
	}
	return d.memory.Get(domain)
}

func (d *Dispatcher) won(domain, engine string) {
	if d.memory != nil {
		d.memory.Set(domain, engine)
	}
	if d.onWin != nil {
		d.onWin(engine)
	}
}

// extractDomain parses the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
