package memory

import (
	"maps"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps configuration in a map. It backs tests and runs that
// must not touch the user's config file.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore creates an empty store, optionally seeded with values.
func NewConfigStore(seed ...map[string]any) *ConfigStore {
	s := &ConfigStore{values: make(map[string]any)}
	for _, m := range seed {
		maps.Copy(s.values, m)
	}
	return s
}

// Get returns the raw value stored at key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

func (s *ConfigStore) GetString(key string) string { return config.Lookup(s.Get).String(key) }
func (s *ConfigStore) GetInt(key string) int { return config.Lookup(s.Get).Int(key) }
func (s *ConfigStore) GetFloat(key string) float64 { return config.Lookup(s.Get).Float(key) }
func (s *ConfigStore) GetBool(key string) bool { return config.Lookup(s.Get).Bool(key) }
func (s *ConfigStore) GetStringSlice(key string) []string {
	return config.Lookup(s.Get).StringSlice(key)
}

// Set stores value at key.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Save is a no-op; values live only as long as the store.
func (s *ConfigStore) Save() error { return nil }

// Path identifies the store in settings output.
func (s *ConfigStore) Path() string { return ":memory:" }
