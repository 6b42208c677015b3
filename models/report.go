package models

import "time"

// Outcome is the result class of one extraction attempt or one product.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeIncomplete Outcome = "incomplete"
	OutcomeFailed     Outcome = "failed"
)

// ExtractionResult is what a single extraction path produced for one
// candidate. Record is set for success and incomplete; Err explains
// incomplete and failed results.
type ExtractionResult struct {
	Outcome   Outcome
	Record    *ProductRecord
	SourceURL string
	Err       error
}

// Attempt summarises one candidate tried for a product.
type Attempt struct {
	URL       string        `json:"url"`
	Class     RankClass     `json:"class"`
	Path      string        `json:"path"` // "specialized" or "generic"
	Outcome   Outcome       `json:"outcome"`
	ErrorCode string        `json:"error_code,omitempty"`
	Error     string        `json:"error,omitempty"`
	Response  string        `json:"response,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
}

// Report is the per-identifier summary of an enrichment run.
type Report struct {
	Product    Product        `json:"product"`
	Query      string         `json:"query"`
	Candidates []Candidate    `json:"candidates"`
	Attempts   []Attempt      `json:"attempts"`
	Outcome    Outcome        `json:"outcome"`
	SourceURL  string         `json:"source_url,omitempty"`
	Record     *ProductRecord `json:"record,omitempty"`
	Persisted  bool           `json:"persisted"`
	Duration   time.Duration  `json:"duration_ns"`
}

// Tried returns the URLs of every attempted candidate, in order.
func (r *Report) Tried() []string {
	urls := make([]string, 0, len(r.Attempts))
	for _, a := range r.Attempts {
		urls = append(urls, a.URL)
	}
	return urls
}

// LastResponse returns the most recent raw model output, or "".
func (r *Report) LastResponse() string {
	for i := len(r.Attempts) - 1; i >= 0; i-- {
		if r.Attempts[i].Response != "" {
			return r.Attempts[i].Response
		}
	}
	return ""
}
