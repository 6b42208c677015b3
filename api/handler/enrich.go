package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/enrich/models"
	"github.com/use-agent/enrich/ranker"
)

// Enricher runs the extraction flow for one product.
type Enricher interface {
	Enrich(ctx context.Context, p models.Product) (*models.Report, error)
	Preview(ctx context.Context, p models.Product) (*models.Report, error)
}

// Enrich returns a handler for POST /api/v1/enrich.
//
// Flow:
//  1. Parse & validate request, apply defaults.
//  2. Enrich (persisting) or Preview (persist=false).
//  3. Map the report to the response; errors keep the report fields.
func Enrich(e Enricher) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.EnrichRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.EnrichResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		// ── 2. Run ──────────────────────────────────────────────────
		run := e.Enrich
		if !*req.Persist {
			run = e.Preview
		}
		rep, err := run(c.Request.Context(), req.Product())

		// ── 3. Respond ──────────────────────────────────────────────
		resp := models.EnrichResponse{
			ProductID:  req.ProductID,
			Candidates: []models.Candidate{},
			Attempts:   []models.Attempt{},
			Timing:     models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
		}
		if rep != nil {
			resp.Persisted = rep.Persisted
			if rep.Candidates != nil {
				resp.Candidates = rep.Candidates
			}
			if rep.Attempts != nil {
				resp.Attempts = rep.Attempts
			}
		}
		if err != nil {
			pe := models.AsPipelineError(err)
			resp.Error = pe.ToDetail()
			c.JSON(mapErrorToStatus(pe), resp)
			return
		}

		resp.Success = true
		resp.SourceURL = rep.SourceURL
		resp.Record = rep.Record
		c.JSON(http.StatusOK, resp)
	}
}

// Rank returns a handler for POST /api/v1/rank.
func Rank() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RankRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewPipelineError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		cands := ranker.Order(ranker.Rank(req.URLs))
		c.JSON(http.StatusOK, models.RankResponse{Candidates: cands, Total: len(cands)})
	}
}

// respondError writes a structured JSON error with the mapped status.
func respondError(c *gin.Context, err error) {
	pe := models.AsPipelineError(err)
	c.JSON(mapErrorToStatus(pe), models.ErrorResponse{Success: false, Error: pe.ToDetail()})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.PipelineError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeExhausted:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeSearch, models.ErrCodeFetch:
		return http.StatusBadGateway // 502
	case models.ErrCodeStore:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
