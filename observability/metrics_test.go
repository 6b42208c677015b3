package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/use-agent/enrich/models"
)

func TestCounters(t *testing.T) {
	m := New()
	m.AttemptFinished(models.Attempt{Path: "generic", Outcome: models.OutcomeIncomplete})
	m.AttemptFinished(models.Attempt{Path: "generic", Outcome: models.OutcomeIncomplete})
	m.AttemptFinished(models.Attempt{Path: "specialized", Outcome: models.OutcomeSuccess})
	m.ProductFinished(&models.Report{Outcome: models.OutcomeSuccess, Duration: 3 * time.Second})
	m.EngineWon("http")

	if got := testutil.ToFloat64(m.attempts.WithLabelValues("generic", "incomplete")); got != 2 {
		t.Errorf("generic incomplete = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.products.WithLabelValues("success")); got != 1 {
		t.Errorf("products success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.engineWins.WithLabelValues("http")); got != 1 {
		t.Errorf("engine wins = %v, want 1", got)
	}
}

func TestHandlerAndMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/v1/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `enrich_http_requests_total{method="GET",route="/api/v1/health",status="200"} 1`) {
		t.Errorf("request counter missing from exposition:\n%s", body)
	}
}
