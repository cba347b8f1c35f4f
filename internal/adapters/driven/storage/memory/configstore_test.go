package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("embedding.model", "nomic-embed-text"))
	require.NoError(t, store.Set("build.concurrency", 4))
	require.NoError(t, store.Set("build.max_failure_rate", 0.5))
	require.NoError(t, store.Set("cache.enabled", true))
	require.NoError(t, store.Set("build.extensions", []any{".md", 3, ".markdown"}))

	assert.Equal(t, "nomic-embed-text", store.GetString("embedding.model"))
	assert.Equal(t, 4, store.GetInt("build.concurrency"))
	assert.InDelta(t, 0.5, store.GetFloat("build.max_failure_rate"), 1e-9)
	assert.InDelta(t, 4.0, store.GetFloat("build.concurrency"), 1e-9)
	assert.True(t, store.GetBool("cache.enabled"))
	assert.Equal(t, []string{".md", ".markdown"}, store.GetStringSlice("build.extensions"))
}

func TestConfigStore_MissingAndWrongType(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("n", 1))

	_, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, "", store.GetString("n"))
	assert.Equal(t, 0, store.GetInt("missing"))
	assert.Zero(t, store.GetFloat("missing"))
	assert.False(t, store.GetBool("n"))
	assert.Nil(t, store.GetStringSlice("n"))
}

func TestConfigStore_NumericConversions(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("i64", int64(7)))
	require.NoError(t, store.Set("f", 2.9))
	require.NoError(t, store.Set("whole", 3.0))

	assert.Equal(t, 7, store.GetInt("i64"))
	assert.Zero(t, store.GetInt("f"))
	assert.Equal(t, 3, store.GetInt("whole"))
	assert.InDelta(t, 7.0, store.GetFloat("i64"), 1e-9)
}

func TestConfigStore_Seed(t *testing.T) {
	seed := map[string]any{"search.top_k": 8, "build.extensions": ".md,.txt"}
	store := NewConfigStore(seed)
	seed["search.top_k"] = 1

	assert.Equal(t, 8, store.GetInt("search.top_k"))
	assert.Equal(t, []string{".md", ".txt"}, store.GetStringSlice("build.extensions"))
}

func TestConfigStore_NoOpPersistence(t *testing.T) {
	store := NewConfigStore()
	assert.NoError(t, store.Save())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Set("key", i)
			_ = store.GetInt("key")
			_ = store.GetFloat("key")
		}()
	}
	wg.Wait()
}
