package engine

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/enrich/models"
)

type fakeEngine struct {
	name        string
	interactive bool
	delay       time.Duration
	err         error
	calls       atomic.Int32
}

func (f *fakeEngine) Name() string      { return f.name }
func (f *fakeEngine) Interactive() bool { return f.interactive }

func (f *fakeEngine) Render(ctx context.Context, req *Request) (*models.Page, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.Page{URL: req.URL, HTML: "<p>" + f.name + "</p>", Engine: f.name}, nil
}

func TestDispatchFirstSuccessWins(t *testing.T) {
	httpEng := &fakeEngine{name: "http", err: errors.New("403")}
	rod := &fakeEngine{name: "rod", interactive: true}
	mem := NewDomainMemory(time.Hour)
	defer mem.Stop()

	d := NewDispatcher([]Engine{httpEng, rod}, []time.Duration{0, 10 * time.Millisecond}, mem)
	var winner string
	d.OnWin(func(name string) { winner = name })

	page, err := d.Dispatch(context.Background(), &Request{URL: "https://shop.example/p/1"})
	if err != nil {
		t.Fatal(err)
	}
	if page.Engine != "rod" || winner != "rod" {
		t.Errorf("engine = %q, winner = %q", page.Engine, winner)
	}
	if got := mem.Get("shop.example"); got != "rod" {
		t.Errorf("memory = %q, want rod", got)
	}

	// The remembered engine is tried alone next time.
	if _, err := d.Dispatch(context.Background(), &Request{URL: "https://shop.example/p/2"}); err != nil {
		t.Fatal(err)
	}
	if httpEng.calls.Load() != 1 {
		t.Errorf("http engine called %d times, want 1", httpEng.calls.Load())
	}
}

func TestDispatchSkipsStaticEngineForBrowserOptions(t *testing.T) {
	httpEng := &fakeEngine{name: "http"}
	rod := &fakeEngine{name: "rod", interactive: true}
	d := NewDispatcher([]Engine{httpEng, rod}, []time.Duration{0, time.Hour}, nil)

	page, err := d.Dispatch(context.Background(), &Request{
		URL:     "https://shop.example/p/1",
		Options: models.RenderOptions{ClickText: "Accept all"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if page.Engine != "rod" {
		t.Errorf("engine = %q, want rod", page.Engine)
	}
	if httpEng.calls.Load() != 0 {
		t.Error("static engine used for an interactive render")
	}
}

func TestDispatchAllFail(t *testing.T) {
	d := NewDispatcher([]Engine{
		&fakeEngine{name: "http", err: errors.New("a")},
		&fakeEngine{name: "rod", interactive: true, err: errors.New("b")},
	}, nil, nil)
	if _, err := d.Dispatch(context.Background(), &Request{URL: "https://x.example/"}); err == nil {
		t.Error("Dispatch succeeded with failing engines")
	}
}

func TestDispatchNoEligibleEngine(t *testing.T) {
	d := NewDispatcher([]Engine{&fakeEngine{name: "http"}}, nil, nil)
	_, err := d.Dispatch(context.Background(), &Request{URL: "https://x.example/", Options: models.RenderOptions{WaitSelector: "#x"}})
	if models.CodeOf(err) != models.ErrCodeFetch {
		t.Errorf("err = %v, want %s", err, models.ErrCodeFetch)
	}
}

func TestDomainMemoryExpiry(t *testing.T) {
	mem := NewDomainMemory(time.Minute)
	defer mem.Stop()
	now := time.Now()
	mem.now = func() time.Time { return now }

	mem.Set("a.example", "http")
	mem.Set("b.example", "rod")
	if mem.Get("a.example") != "http" || mem.Len() != 2 {
		t.Fatalf("Get = %q, Len = %d", mem.Get("a.example"), mem.Len())
	}

	now = now.Add(2 * time.Minute)
	if got := mem.Get("a.example"); got != "" {
		t.Errorf("expired Get = %q", got)
	}
	mem.prune()
	if mem.Len() != 0 {
		t.Errorf("Len after prune = %d", mem.Len())
	}
	mem.Stop()
}

func TestRodEngineForcesStealth(t *testing.T) {
	var gotStealth bool
	eng := NewRodEngine(func(_ context.Context, req *Request) (*models.Page, error) {
		gotStealth = req.Options.Stealth
		return &models.Page{HTML: "<p>x</p>"}, nil
	}, true)

	req := &Request{URL: "https://x.example/"}
	page, err := eng.Render(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !gotStealth || req.Options.Stealth {
		t.Errorf("stealth forwarded = %v, caller mutated = %v", gotStealth, req.Options.Stealth)
	}
	if page.Engine != "rod-stealth" || eng.Name() != "rod-stealth" {
		t.Errorf("engine = %q", page.Engine)
	}
}

func TestHTTPEngine(t *testing.T) {
	var gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.Header.Get("Accept-Language")
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, "<html><head><title> Perfume X </title></head><body><p>hi</p></body></html>")
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, "{}")
		case "/empty":
			w.Header().Set("Content-Type", "text/html")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	eng := newHTTPEngine(srv.Client(), "en-GB,en;q=0.9")
	page, err := eng.Render(context.Background(), &Request{URL: srv.URL + "/ok", Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if page.Title != "Perfume X" || page.StatusCode != 200 || page.Engine != "http" {
		t.Errorf("page = %+v", page)
	}
	if gotLang != "en-GB,en;q=0.9" {
		t.Errorf("Accept-Language = %q", gotLang)
	}

	for _, path := range []string{"/json", "/empty", "/missing"} {
		if _, err := eng.Render(context.Background(), &Request{URL: srv.URL + path}); err == nil {
			t.Errorf("Render(%s) succeeded", path)
		}
	}
}
