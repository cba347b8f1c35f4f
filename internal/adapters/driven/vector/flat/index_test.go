package flat

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func mustNew(t *testing.T, metric domain.Metric, dim int, vecs ...[]float32) *Index {
	t.Helper()
	idx, err := New(metric, dim)
	require.NoError(t, err)
	for i, v := range vecs {
		require.NoError(t, idx.Add(context.Background(), i, v))
	}
	return idx
}

func ids(hits []driven.VectorHit) []int {
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(domain.MetricCosine, 0)
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = New(domain.Metric(9), 3)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestAdd(t *testing.T) {
	idx := mustNew(t, domain.MetricCosine, 2)
	ctx := context.Background()

	t.Run("wrong dimension", func(t *testing.T) {
		err := idx.Add(ctx, 0, []float32{1, 2, 3})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
		assert.Equal(t, 0, idx.Len())
	})

	t.Run("out of order id", func(t *testing.T) {
		err := idx.Add(ctx, 1, []float32{1, 0})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("sequential ids", func(t *testing.T) {
		require.NoError(t, idx.Add(ctx, 0, []float32{1, 0}))
		require.NoError(t, idx.Add(ctx, 1, []float32{0, 1}))
		assert.Equal(t, 2, idx.Len())
		assert.Equal(t, 2, idx.Dimension())
		assert.Equal(t, domain.MetricCosine, idx.Metric())
	})
}

func TestSearch_Cosine(t *testing.T) {
	idx := mustNew(t, domain.MetricCosine, 2,
		[]float32{1, 0},
		[]float32{0, 1},
		[]float32{1, 1},
	)

	hits, err := idx.Search(context.Background(), []float32{10, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, ids(hits))
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.InDelta(t, 0.7071, hits[1].Score, 1e-4)
	assert.InDelta(t, 0.0, hits[2].Score, 1e-6)
}

func TestSearch_CosineNormalisesStoredVectors(t *testing.T) {
	idx := mustNew(t, domain.MetricCosine, 2, []float32{3, 4})

	vecs := idx.Vectors()
	assert.InDelta(t, 0.6, vecs[0], 1e-6)
	assert.InDelta(t, 0.8, vecs[1], 1e-6)
}

func TestSearch_Euclidean(t *testing.T) {
	idx := mustNew(t, domain.MetricEuclidean, 2,
		[]float32{0, 0},
		[]float32{3, 4},
		[]float32{1, 0},
	)

	hits, err := idx.Search(context.Background(), []float32{0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, ids(hits))
	assert.InDelta(t, 0.0, hits[0].Score, 1e-9)
	assert.InDelta(t, -1.0, hits[1].Score, 1e-9)
}

func TestSearch_TiesByAscendingID(t *testing.T) {
	idx := mustNew(t, domain.MetricCosine, 2,
		[]float32{0, 1},
		[]float32{1, 0},
		[]float32{0, 1},
		[]float32{1, 0},
	)

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 0, 2}, ids(hits))
}

func TestSearch_ClampsK(t *testing.T) {
	idx := mustNew(t, domain.MetricCosine, 2, []float32{1, 0}, []float32{0, 1})

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearch_Empty(t *testing.T) {
	idx := mustNew(t, domain.MetricCosine, 2)

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_Errors(t *testing.T) {
	idx := mustNew(t, domain.MetricCosine, 2, []float32{1, 0})

	_, err := idx.Search(context.Background(), []float32{1, 0}, 0)
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = idx.Search(context.Background(), []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = idx.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_DoesNotMutateQuery(t *testing.T) {
	idx := mustNew(t, domain.MetricCosine, 2, []float32{1, 0})
	q := []float32{3, 4}

	_, err := idx.Search(context.Background(), q, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, q)
}

func TestSearch_ConcurrentReaders(t *testing.T) {
	var vecs [][]float32
	for i := range 100 {
		vecs = append(vecs, []float32{float32(i), 1})
	}
	idx := mustNew(t, domain.MetricEuclidean, 2, vecs...)

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := idx.Search(context.Background(), []float32{float32(g * 10), 1}, 1)
			assert.NoError(t, err)
			assert.Equal(t, g*10, hits[0].ID, fmt.Sprintf("reader %d", g))
		}()
	}
	wg.Wait()
}

func TestRestore(t *testing.T) {
	src := mustNew(t, domain.MetricCosine, 2, []float32{3, 4}, []float32{0, 2})

	restored, err := Restore(domain.MetricCosine, 2, src.Vectors())
	require.NoError(t, err)
	assert.Equal(t, 2, restored.Len())

	want, err := src.Search(context.Background(), []float32{1, 1}, 2)
	require.NoError(t, err)
	got, err := restored.Search(context.Background(), []float32{1, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = Restore(domain.MetricCosine, 2, []float32{1, 2, 3})
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestClose(t *testing.T) {
	idx := mustNew(t, domain.MetricCosine, 2, []float32{1, 0})
	require.NoError(t, idx.Close())
	assert.Equal(t, 0, idx.Len())
}

func TestFactory(t *testing.T) {
	var f Factory

	idx, err := f.New(domain.MetricEuclidean, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.MetricEuclidean, idx.Metric())
	assert.Equal(t, 3, idx.Dimension())

	restored, err := f.Restore(domain.MetricCosine, 2, []float32{1, 0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, restored.Len())

	_, err = f.New(domain.MetricCosine, 0)
	assert.ErrorIs(t, err, domain.ErrConfig)
}
