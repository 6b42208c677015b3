// Package observability exposes Prometheus counters for the enrichment
// pipeline, the render engines and the HTTP API.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/use-agent/enrich/models"
)

// Metrics holds every collector. The zero value is not usable; call New.
type Metrics struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	products        *prometheus.CounterVec
	productDuration prometheus.Histogram
	engineWins      *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry,
// alongside the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrich_attempts_total",
			Help: "Extraction attempts by path and outcome.",
		}, []string{"path", "outcome"}),
		products: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrich_products_total",
			Help: "Products processed by final outcome.",
		}, []string{"outcome"}),
		productDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrich_product_duration_seconds",
			Help:    "Wall time spent on one product, search to persist.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		engineWins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrich_engine_wins_total",
			Help: "Renders won by each engine in the dispatcher race.",
		}, []string{"engine"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrich_http_requests_total",
			Help: "API requests by route and status.",
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		m.attempts, m.products, m.productDuration, m.engineWins, m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// AttemptFinished counts one extraction attempt.
func (m *Metrics) AttemptFinished(a models.Attempt) {
	m.attempts.WithLabelValues(a.Path, string(a.Outcome)).Inc()
}

// ProductFinished counts one product and records its duration.
func (m *Metrics) ProductFinished(r *models.Report) {
	m.products.WithLabelValues(string(r.Outcome)).Inc()
	m.productDuration.Observe(r.Duration.Seconds())
}

// EngineWon counts a dispatcher race win.
func (m *Metrics) EngineWon(engine string) {
	m.engineWins.WithLabelValues(engine).Inc()
}

// Middleware counts API requests by matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Timeout: 10 * time.Second,
	})
}
