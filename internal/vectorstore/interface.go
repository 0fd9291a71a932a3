package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks proposal-ai/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// Filters narrows a similarity search. Empty fields are not applied.
// Author, Sector, and Client are equality matches; Tags matches points
// whose tag array overlaps any of the given values.
type Filters struct {
	Author string
	Sector string
	Client string
	Tags   []string
}

// Empty reports whether no filter field is set.
func (f Filters) Empty() bool {
	return f.Author == "" && f.Sector == "" && f.Client == "" && len(f.Tags) == 0
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a similarity search. Results below threshold are
	// excluded; threshold 0 disables the floor.
	Search(ctx context.Context, collection string, query []float32, k int, threshold float32, filters Filters) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error
}
