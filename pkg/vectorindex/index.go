package vectorindex

import "context"

// Match is a single nearest-neighbour hit
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// Index stores embedding vectors with metadata and answers similarity queries
type Index interface {
	Insert(ctx context.Context, id string, vector []float32, metadata map[string]any) error
	// Query returns up to topK matches, best first. A non-empty filter restricts
	// results to entries whose metadata contains every key/value pair.
	Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]Match, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}
