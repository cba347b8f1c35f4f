package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// VectorIndex provides similarity search over fixed-dimension vectors
// addressed by their insertion position.
//
// Add is single-writer. Once building is finished the index is read-only
// and Search is safe for concurrent use.
type VectorIndex interface {
	// Add appends a vector. id must equal Len().
	Add(ctx context.Context, id int, embedding []float32) error

	// Search returns min(k, Len()) hits by descending score, ties by ascending id.
	// k <= 0 fails with domain.ErrConfig; a query of the wrong length fails
	// with domain.ErrDimensionMismatch.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of stored vectors.
	Len() int

	// Dimension returns the fixed vector length.
	Dimension() int

	// Metric returns the similarity function.
	Metric() domain.Metric

	// Vectors exports the stored vectors in id order, as they will be scored.
	Vectors() []float32

	// Close releases resources.
	Close() error
}

// VectorIndexFactory creates vector indexes for builds and loads.
type VectorIndexFactory interface {
	// New creates an empty index.
	New(metric domain.Metric, dim int) (VectorIndex, error)

	// Restore wraps vectors previously exported with VectorIndex.Vectors.
	Restore(metric domain.Metric, dim int, data []float32) (VectorIndex, error)
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ID is the global chunk index of the matched vector.
	ID int

	// Score is the similarity; higher is closer.
	Score float64
}
