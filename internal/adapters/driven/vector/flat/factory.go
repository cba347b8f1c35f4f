package flat

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.VectorIndexFactory = Factory{}

// Factory creates flat indexes.
type Factory struct{}

// New creates an empty flat index.
func (Factory) New(metric domain.Metric, dim int) (driven.VectorIndex, error) {
	return New(metric, dim)
}

// Restore wraps exported vectors in a flat index.
func (Factory) Restore(metric domain.Metric, dim int, data []float32) (driven.VectorIndex, error) {
	return Restore(metric, dim, data)
}
