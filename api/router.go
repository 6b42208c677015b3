// Package api exposes the enrichment pipeline over HTTP.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/use-agent/enrich/api/handler"
	"github.com/use-agent/enrich/api/middleware"
	"github.com/use-agent/enrich/config"
	"github.com/use-agent/enrich/observability"
)

// Deps are the services the routes call. Store and Metrics may be nil.
type Deps struct {
	Enricher handler.Enricher
	Batch    handler.BatchDeps
	Pool     handler.PoolStatser
	Store    handler.Pinger
	Metrics  *observability.Metrics
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → Metrics (if enabled)
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics stay outside auth so monitoring probes always work.
func NewRouter(deps Deps, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
		if cfg.Metrics.Enabled {
			r.GET(cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
		}
	}

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(deps.Pool, deps.Store))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/enrich", handler.Enrich(deps.Enricher))
	protected.POST("/rank", handler.Rank())

	protected.POST("/batch", handler.PostBatch(deps.Batch))
	protected.GET("/batch/:id", handler.GetBatch())

	return r
}
