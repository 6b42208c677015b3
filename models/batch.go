package models

// BatchResponse is the immediate response for POST /api/v1/batch.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	Completed int            `json:"completed"`
	Total     int            `json:"total"`
	Summary   *BatchSummary  `json:"summary,omitempty"`
	Results   []*BatchResult `json:"results,omitempty"`
}

// BatchResult is the per-identifier line of a batch.
type BatchResult struct {
	ProductID string       `json:"product_id"`
	Outcome   Outcome      `json:"outcome"`
	SourceURL string       `json:"source_url,omitempty"`
	Tried     []string     `json:"tried"`
	Error     *ErrorDetail `json:"error,omitempty"`
}

// BatchSummary aggregates a finished batch.
type BatchSummary struct {
	Total       int `json:"total"`
	Succeeded   int `json:"succeeded"`
	Exhausted   int `json:"exhausted"`
	StoreFailed int `json:"store_failed"`
	Failed      int `json:"failed"`
}

// BatchJob tracks an in-progress batch run.
type BatchJob struct {
	ID        string
	Status    string // "processing", "completed", "failed", "partial"
	Total     int
	Completed int
	Results   []*BatchResult
	Summary   *BatchSummary
	CreatedAt int64 // unix timestamp
}

// Status classifies a finished batch: "failed" when nothing succeeded,
// "partial" when some products did, else "completed".
func (s *BatchSummary) Status() string {
	switch {
	case s.Total > 0 && s.Succeeded == 0:
		return "failed"
	case s.Succeeded < s.Total:
		return "partial"
	default:
		return "completed"
	}
}
