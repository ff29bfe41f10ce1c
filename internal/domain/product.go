package domain

// ProductSummary is the catalog's read-only view of a product. The
// orchestrator holds a transient copy for the duration of one response.
type ProductSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Image    string  `json:"image"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// Candidate is the {id, name} projection of a product sent to the oracle as
// part of the recommendation sub-flow prompt. Never persisted.
type Candidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
