package models

// EnrichRequest is the payload for POST /api/v1/enrich.
type EnrichRequest struct {
	// ProductID is the catalog identifier the result is stored under. Required.
	ProductID string `json:"product_id" binding:"required,max=64"`

	// Name is the descriptive product name used as the search query. Required.
	Name string `json:"name" binding:"required,max=256"`

	// Manufacturer is informational and is echoed back in the report.
	Manufacturer string `json:"manufacturer,omitempty"`

	// Persist controls whether an accepted record is written to the store.
	// Default: true.
	Persist *bool `json:"persist,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *EnrichRequest) Defaults() {
	if r.Persist == nil {
		t := true
		r.Persist = &t
	}
}

// Product converts the request into a backlog entry.
func (r *EnrichRequest) Product() Product {
	return Product{ID: r.ProductID, Name: r.Name, Manufacturer: r.Manufacturer}
}

// RankRequest is the payload for POST /api/v1/rank.
type RankRequest struct {
	URLs []string `json:"urls" binding:"required,min=1,max=100"`
}

// BatchRequest is the payload for POST /api/v1/batch.
//
// Either Products is non-empty, or Pending is true and the backlog is read
// from the catalog store (up to Limit entries).
type BatchRequest struct {
	Products   []Product `json:"products,omitempty" binding:"omitempty,max=500,dive"`
	Pending    bool      `json:"pending,omitempty"`
	Limit      int       `json:"limit,omitempty" binding:"omitempty,min=1,max=500"`
	WebhookURL string    `json:"webhook_url,omitempty" binding:"omitempty,url"`
}
