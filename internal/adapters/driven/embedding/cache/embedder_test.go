package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

type mockEmbedder struct {
	model      string
	vec        []float32
	err        error
	calls      int
	batchCalls int
	batchSizes []int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	return m.vec, m.err
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.vec
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int                { return len(m.vec) }
func (m *mockEmbedder) ModelName() string              { return m.model }
func (m *mockEmbedder) Ping(ctx context.Context) error { return nil }
func (m *mockEmbedder) Close() error                   { return nil }

// memStore is an in-memory KVStore.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

func TestEmbed_MissThenHit(t *testing.T) {
	inner := &mockEmbedder{model: "m", vec: []float32{0.1, 0.2, 0.3}}
	store := newMemStore()
	ce := New(inner, store, nil)

	vec, err := ce.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Len(t, store.data, 1)

	vec, err = ce.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 1, inner.calls)
}

func TestEmbed_KeyScopedByModel(t *testing.T) {
	store := newMemStore()
	a := New(&mockEmbedder{model: "a", vec: []float32{1}}, store, nil)
	b := New(&mockEmbedder{model: "b", vec: []float32{2}}, store, nil)

	assert.NotEqual(t, a.cacheKey("x"), b.cacheKey("x"))
	assert.Equal(t, a.cacheKey("x"), a.cacheKey("x"))
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{model: "m", err: domain.ErrFatal}
	store := newMemStore()
	ce := New(inner, store, nil)

	_, err := ce.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrFatal)
	assert.Empty(t, store.data)
}

func TestEmbed_StoreFailuresDegradeToMiss(t *testing.T) {
	inner := &mockEmbedder{model: "m", vec: []float32{1, 2}}
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")
	ce := New(inner, store, nil)

	vec, err := ce.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)
}

func TestEmbed_CorruptEntryIsMiss(t *testing.T) {
	inner := &mockEmbedder{model: "m", vec: []float32{1}}
	store := newMemStore()
	ce := New(inner, store, nil)
	store.data[ce.cacheKey("x")] = []byte{1, 2, 3}

	vec, err := ce.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	assert.Equal(t, 1, inner.calls)
}

func TestEmbedBatch_OnlyMissesReachInner(t *testing.T) {
	inner := &mockEmbedder{model: "m", vec: []float32{5}}
	store := newMemStore()
	ce := New(inner, store, nil)
	store.data[ce.cacheKey("cached")] = vectorToBytes([]float32{9})

	vecs, err := ce.EmbedBatch(context.Background(), []string{"a", "cached", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{5}, {9}, {5}}, vecs)
	assert.Equal(t, []int{2}, inner.batchSizes)

	// All hits now.
	_, err = ce.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.batchCalls)
}

func TestVectorBytesRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25}
	out, err := bytesToVector(vectorToBytes(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
