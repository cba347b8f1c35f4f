package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
}

func newTestService(t *testing.T, cfg Config, handler http.HandlerFunc) *EmbeddingService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.APIKey = "test-key"
	cfg.BaseURL = server.URL
	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)
	return svc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestNewEmbeddingService_Dimensions(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		wants int
	}{
		{"default model", Config{APIKey: "k"}, 1536},
		{"large model", Config{APIKey: "k", Model: "text-embedding-3-large"}, 3072},
		{"override", Config{APIKey: "k", Dimensions: 256}, 256},
		{"unknown model", Config{APIKey: "k", Model: "custom"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewEmbeddingService(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wants, svc.Dimensions())
		})
	}
}

func TestEmbeddingService_EmbedBatch_OrdersByIndex(t *testing.T) {
	svc := newTestService(t, Config{Model: "test-model"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"a", "b"}, req.Input)
		assert.Equal(t, "test-model", req.Model)

		writeJSON(w, http.StatusOK, embeddingResponse{
			Object: "list",
			Model:  "test-model",
			Data: []embeddingData{
				{Object: "embedding", Embedding: []float32{0, 1}, Index: 1},
				{Object: "embedding", Embedding: []float32{1, 0}, Index: 0},
			},
		})
	})

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestEmbeddingService_Embed(t *testing.T) {
	svc := newTestService(t, Config{}, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, embeddingResponse{
			Data: []embeddingData{{Embedding: []float32{0.1, 0.2, 0.3}}},
		})
	})

	vec, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbeddingService_Embed_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, domain.ErrTransient},
		{"server error", http.StatusInternalServerError, domain.ErrTransient},
		{"unauthorized", http.StatusUnauthorized, domain.ErrFatal},
		{"bad request", http.StatusBadRequest, domain.ErrFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, Config{}, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, map[string]any{
					"error": map[string]any{"message": "boom", "type": "test"},
				})
			})

			_, err := svc.Embed(context.Background(), "x")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEmbeddingService_Embed_EmptyDataIsFatal(t *testing.T) {
	svc := newTestService(t, Config{}, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, embeddingResponse{Object: "list"})
	})

	_, err := svc.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrFatal)
}

func TestEmbeddingService_Ping(t *testing.T) {
	svc := newTestService(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": []any{}})
	})

	assert.NoError(t, svc.Ping(context.Background()))
}
