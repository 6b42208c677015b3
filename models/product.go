package models

// NotFound is the sentinel LLM output and merge steps use for a field
// that could not be filled. It is distinct from the empty string.
const NotFound = "Not found"

// Product is one backlog entry from the catalog: an identifier lacking
// descriptive text, plus the descriptive name used as the search query.
type Product struct {
	ID           string `json:"product_id" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Manufacturer string `json:"manufacturer,omitempty"`
}

// RankClass records why a candidate URL survived ranking.
type RankClass string

const (
	RankSpecialized RankClass = "specialized-site"
	RankPriority    RankClass = "priority-domain"
	RankPattern     RankClass = "pattern-match"
	RankUnranked    RankClass = "unranked"
)

// Candidate is a URL believed to possibly host the target product's page.
type Candidate struct {
	URL   string    `json:"url"`
	Class RankClass `json:"class"`
}

// Specialized reports whether the candidate is served by the deterministic
// partner-site extractor.
func (c Candidate) Specialized() bool {
	return c.Class == RankSpecialized
}

// AttributeMap is the flattened key to value form of a product's
// specifications. Keys are unique; later writes overwrite earlier ones.
type AttributeMap map[string]string

// Merge copies every entry of other into m, overwriting duplicates.
func (m AttributeMap) Merge(other AttributeMap) {
	for k, v := range other {
		m[k] = v
	}
}
