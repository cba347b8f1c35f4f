package memory

import (
	"container/list"
	"context"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure KVStore implements the interface.
var _ driven.KVStore = (*KVStore)(nil)

// KVStore is a bounded in-process key/value store that evicts the least
// recently used entry once full. It backs the embedding cache when no Redis
// is configured.
type KVStore struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type kvEntry struct {
	key   string
	value []byte
}

// NewKVStore creates a store holding at most capacity entries.
// A capacity below one is treated as one.
func NewKVStore(capacity int) *KVStore {
	return &KVStore{
		capacity: max(capacity, 1),
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get returns a copy of the value, or domain.ErrNotFound.
func (s *KVStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	s.order.MoveToFront(el)
	return append([]byte(nil), el.Value.(*kvEntry).value...), nil
}

// Set stores a copy of value.
func (s *KVStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value = append([]byte(nil), value...)
	if el, ok := s.entries[key]; ok {
		el.Value.(*kvEntry).value = value
		s.order.MoveToFront(el)
		return nil
	}

	s.entries[key] = s.order.PushFront(&kvEntry{key: key, value: value})
	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*kvEntry).key)
	}
	return nil
}

// Len returns the number of stored entries.
func (s *KVStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
