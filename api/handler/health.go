package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/enrich/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// PoolStatser reports browser pool utilisation and browser uptime.
type PoolStatser interface {
	Stats() models.PoolStats
	Uptime() time.Duration
}

// Pinger checks a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health returns a handler for GET /api/v1/health.
//
// Degrades status when more than 80% of pages are active or the store
// does not answer. store may be nil.
func Health(pool PoolStatser, store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := pool.Stats()

		status := "healthy"
		if stats.MaxPages > 0 && stats.ActivePages > int(float64(stats.MaxPages)*0.8) {
			status = "degraded"
		}

		storeStatus := "disabled"
		if store != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			err := store.Ping(ctx)
			cancel()
			if err != nil {
				storeStatus = "unavailable"
				status = "degraded"
			} else {
				storeStatus = "ok"
			}
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    pool.Uptime().Round(time.Second).String(),
			PoolStats: stats,
			Store:     storeStatus,
			Version:   Version,
		})
	}
}
