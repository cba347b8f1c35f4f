// Package flat provides an exact, brute-force vector index.
//
// Vectors live in one contiguous arena addressed by insertion position.
// Search scores every stored vector, so results are exact and
// reproducible: equal scores are ordered by ascending id.
package flat

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// ctxCheckEvery is how many vectors are scored between cancellation checks.
const ctxCheckEvery = 4096

// Index is an exact in-memory vector index.
type Index struct {
	mu     sync.RWMutex
	metric domain.Metric
	dim    int
	data   []float32
}

// New creates an empty index of the given dimension.
func New(metric domain.Metric, dim int) (*Index, error) {
	if !metric.IsValid() {
		return nil, fmt.Errorf("%w: unknown metric %d", domain.ErrConfig, uint32(metric))
	}
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrConfig, dim)
	}
	return &Index{metric: metric, dim: dim}, nil
}

// Restore creates an index over vectors that were exported with Vectors.
// The data is used as-is: cosine vectors are expected to be unit length already.
func Restore(metric domain.Metric, dim int, data []float32) (*Index, error) {
	idx, err := New(metric, dim)
	if err != nil {
		return nil, err
	}
	if len(data)%dim != 0 {
		return nil, fmt.Errorf("%w: %d floats is not a multiple of dimension %d",
			domain.ErrIndexCorrupt, len(data), dim)
	}
	idx.data = data
	return idx, nil
}

// Add appends a vector. id must equal Len().
func (x *Index) Add(ctx context.Context, id int, embedding []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(embedding) != x.dim {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(embedding), x.dim)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if n := len(x.data) / x.dim; id != n {
		return fmt.Errorf("%w: id %d out of order, next id is %d", domain.ErrInvalidInput, id, n)
	}

	start := len(x.data)
	x.data = append(x.data, embedding...)
	if x.metric == domain.MetricCosine {
		normalize(x.data[start:])
	}
	return nil
}

// Search returns the k best matches for query.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrConfig, k)
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d components, index has %d",
			domain.ErrDimensionMismatch, len(query), x.dim)
	}

	q := query
	if x.metric == domain.MetricCosine {
		q = slices.Clone(query)
		normalize(q)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	n := len(x.data) / x.dim
	hits := make([]driven.VectorHit, n)
	for i := range n {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		v := x.data[i*x.dim : (i+1)*x.dim]
		hits[i] = driven.VectorHit{ID: i, Score: x.score(q, v)}
	}

	slices.SortFunc(hits, func(a, b driven.VectorHit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return hits[:min(k, n)], nil
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.data) / x.dim
}

// Dimension returns the vector length.
func (x *Index) Dimension() int {
	return x.dim
}

// Metric returns the similarity function.
func (x *Index) Metric() domain.Metric {
	return x.metric
}

// Vectors returns a copy of the arena, one vector after another in id order.
func (x *Index) Vectors() []float32 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return slices.Clone(x.data)
}

// Close releases the arena.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.data = nil
	return nil
}

// score is higher-is-better for both metrics.
func (x *Index) score(q, v []float32) float64 {
	if x.metric == domain.MetricEuclidean {
		var sum float64
		for i := range q {
			d := float64(q[i]) - float64(v[i])
			sum += d * d
		}
		return -math.Sqrt(sum)
	}

	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(v[i])
	}
	return dot
}

// normalize scales v to unit length in place. Zero vectors are left as-is.
func normalize(v []float32) {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
