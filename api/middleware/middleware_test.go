package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/enrich/config"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(APIKeyContextKey))
	})
	return r
}

func TestAuth(t *testing.T) {
	r := newRouter(Auth([]string{"k1", ""}))
	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"x-api-key", "X-API-Key", "k1", http.StatusOK},
		{"bearer", "Authorization", "Bearer k1", http.StatusOK},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"basic auth ignored", "Authorization", "Basic k1", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ok", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAuthOpenWithoutKeys(t *testing.T) {
	r := newRouter(Auth(nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRateLimitPerKey(t *testing.T) {
	r := newRouter(Auth([]string{"a", "b"}), RateLimit(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}))

	do := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set("X-API-Key", key)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if got := do("a"); got != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, got)
		}
	}
	if got := do("a"); got != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", got)
	}
	if got := do("b"); got != http.StatusOK {
		t.Errorf("other key status = %d, want 200", got)
	}
}

func TestLimitersEvictIdle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := newLimiters(config.RateLimitConfig{RequestsPerSecond: 0.5, Burst: 1})
	l.now = func() time.Time { return now }

	l.get("old")
	now = now.Add(2 * time.Hour)
	l.get("fresh")
	l.evictIdle(time.Hour)

	if _, ok := l.entries["old"]; ok {
		t.Error("idle limiter not evicted")
	}
	if _, ok := l.entries["fresh"]; !ok {
		t.Error("fresh limiter evicted")
	}
	if got := l.retryAfter(); got != 2 {
		t.Errorf("retryAfter = %d, want 2", got)
	}
}
