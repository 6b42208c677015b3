package models

// EnrichResponse is the response for POST /api/v1/enrich.
type EnrichResponse struct {
	// Success is true when a complete record was accepted.
	Success bool `json:"success"`

	ProductID string `json:"product_id"`

	// SourceURL is the candidate the accepted record came from.
	SourceURL string `json:"source_url,omitempty"`

	// Record is the accepted record, present only on success.
	Record *ProductRecord `json:"record,omitempty"`

	// Persisted reports whether the record was written to the catalog store.
	Persisted bool `json:"persisted"`

	// Candidates is the ranked candidate list for the query.
	Candidates []Candidate `json:"candidates"`

	// Attempts lists every candidate tried, in order.
	Attempts []Attempt `json:"attempts"`

	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// RankResponse is the response for POST /api/v1/rank.
type RankResponse struct {
	Candidates []Candidate `json:"candidates"`
	Total      int         `json:"total"`
}

// TimingInfo breaks down the time spent on a request.
type TimingInfo struct {
	TotalMs int64 `json:"total_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Store     string    `json:"store"` // "ok", "unavailable" or "disabled"
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}

// ErrorResponse is the body of requests rejected before reaching a handler.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}
