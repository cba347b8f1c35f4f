package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore keeps one saved index in memory. Saves and loads copy the data.
type IndexStore struct {
	mu    sync.RWMutex
	index *domain.Index
	saves int
}

// NewIndexStore creates an empty store.
func NewIndexStore() *IndexStore {
	return &IndexStore{}
}

// Save replaces the stored index.
func (s *IndexStore) Save(ctx context.Context, index *domain.Index) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := index.Verify(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = cloneIndex(index)
	s.saves++
	return nil
}

// Load returns a copy of the stored index, or domain.ErrIndexCorrupt if nothing was saved.
func (s *IndexStore) Load(ctx context.Context) (*domain.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return nil, domain.ErrIndexCorrupt
	}
	return cloneIndex(s.index), nil
}

// Location returns a fixed marker.
func (s *IndexStore) Location() string {
	return ":memory:"
}

// Saves returns how many times Save succeeded.
func (s *IndexStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func cloneIndex(ix *domain.Index) *domain.Index {
	return &domain.Index{
		Manifest: ix.Manifest,
		Vectors:  slices.Clone(ix.Vectors),
		Meta:     slices.Clone(ix.Meta),
	}
}
