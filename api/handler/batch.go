package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/use-agent/enrich/models"
	"github.com/use-agent/enrich/pipeline"
	"github.com/use-agent/enrich/webhook"
)

// defaultPendingLimit bounds a backlog batch without an explicit limit.
const defaultPendingLimit = 100

// BatchRunner processes a list of products.
type BatchRunner interface {
	Run(ctx context.Context, products []models.Product, progress pipeline.ProgressFunc) (*models.BatchSummary, []*models.BatchResult)
}

// batchJob guards a models.BatchJob updated by worker goroutines.
type batchJob struct {
	mu  sync.Mutex
	job models.BatchJob
}

func (b *batchJob) snapshot() models.BatchStatusResponse {
	b.mu.Lock()
	defer b.mu.Unlock()
	results := make([]*models.BatchResult, 0, len(b.job.Results))
	for _, r := range b.job.Results {
		if r != nil {
			results = append(results, r)
		}
	}
	return models.BatchStatusResponse{
		ID:        b.job.ID,
		Status:    b.job.Status,
		Completed: b.job.Completed,
		Total:     b.job.Total,
		Summary:   b.job.Summary,
		Results:   results,
	}
}

// batchStore holds all in-flight and completed batch jobs.
var batchStore sync.Map

func init() {
	// Expire batch jobs older than 1 hour.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			batchStore.Range(func(key, value any) bool {
				b := value.(*batchJob)
				b.mu.Lock()
				expired := b.job.CreatedAt < cutoff && b.job.Status != "processing"
				b.mu.Unlock()
				if expired {
					batchStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// BatchDeps are the collaborators of the batch endpoints. Backlog and
// Notifier may be nil.
type BatchDeps struct {
	Runner         BatchRunner
	Backlog        pipeline.Backlog
	Notifier       *webhook.Notifier
	DefaultWebhook string
}

// PostBatch returns a handler for POST /api/v1/batch.
// It validates the request, creates a batch job, and runs it in the
// background.
func PostBatch(deps BatchDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewPipelineError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		products := req.Products
		switch {
		case len(products) > 0:
		case req.Pending && deps.Backlog == nil:
			respondError(c, models.NewPipelineError(models.ErrCodeInvalidInput, "no catalog store configured for pending batches", nil))
			return
		case req.Pending:
			limit := req.Limit
			if limit == 0 {
				limit = defaultPendingLimit
			}
			var err error
			if products, err = deps.Backlog.PendingProducts(c.Request.Context(), limit); err != nil {
				respondError(c, err)
				return
			}
		default:
			respondError(c, models.NewPipelineError(models.ErrCodeInvalidInput, "provide products or set pending", nil))
			return
		}

		jobID := "batch-" + uuid.NewString()
		b := &batchJob{job: models.BatchJob{
			ID:        jobID,
			Status:    "processing",
			Total:     len(products),
			Results:   make([]*models.BatchResult, len(products)),
			CreatedAt: time.Now().Unix(),
		}}
		batchStore.Store(jobID, b)

		hook := req.WebhookURL
		if hook == "" {
			hook = deps.DefaultWebhook
		}
		go runBatch(deps, b, products, hook)

		c.JSON(http.StatusOK, models.BatchResponse{
			ID:     jobID,
			Status: "processing",
			Total:  len(products),
		})
	}
}

// GetBatch returns a handler for GET /api/v1/batch/:id.
func GetBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := batchStore.Load(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "batch job not found",
				},
			})
			return
		}
		c.JSON(http.StatusOK, val.(*batchJob).snapshot())
	}
}

func runBatch(deps BatchDeps, b *batchJob, products []models.Product, hook string) {
	summary, results := deps.Runner.Run(context.Background(), products, func(i int, r *models.BatchResult) {
		b.mu.Lock()
		b.job.Results[i] = r
		b.job.Completed++
		b.mu.Unlock()
	})

	b.mu.Lock()
	b.job.Results = results
	b.job.Completed = len(results)
	b.job.Summary = summary
	b.job.Status = summary.Status()
	status := b.job.Status
	b.mu.Unlock()

	slog.Info("batch job finished",
		"id", b.job.ID,
		"status", status,
		"succeeded", summary.Succeeded,
		"total", summary.Total,
	)

	if hook != "" && deps.Notifier != nil {
		deps.Notifier.DeliverAsync(hook, &webhook.Event{
			Type:      webhook.EventBatchCompleted,
			JobID:     b.job.ID,
			Timestamp: time.Now().Unix(),
			Data:      b.snapshot(),
		}, nil)
	}
}
