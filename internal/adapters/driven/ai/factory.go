// Package ai assembles the embedding pipeline from settings.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/cache"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/gateway"
	ollamaembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Options tune pipeline assembly per command.
type Options struct {
	// MemoryCacheSize enables an in-process cache of that many entries
	// when Redis is not configured. Zero disables it.
	MemoryCacheSize int
}

// Embedder is the assembled pipeline plus the resources it owns.
type Embedder struct {
	driven.EmbeddingService

	redis *redis.Store
}

// Close releases the provider and the cache connection.
func (e *Embedder) Close() error {
	err := e.EmbeddingService.Close()
	if e.redis != nil {
		e.redis.Close()
	}
	return err
}

// NewEmbedder builds provider -> gateway -> cache from settings.
func NewEmbedder(settings *domain.AppSettings, opts Options) (*Embedder, error) {
	provider, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}

	var svc driven.EmbeddingService = gateway.New(provider, gateway.Config{
		Provider:          settings.Embedding.Provider.String(),
		Timeout:           settings.Embedding.Timeout,
		MaxAttempts:       settings.Embedding.MaxAttempts,
		RequestsPerSecond: settings.Embedding.RequestsPerSecond,
		Dimensions:        settings.Embedding.Dimensions,
	})
	e := &Embedder{}

	switch {
	case settings.Cache.Enabled():
		store, err := redis.NewStore(redis.Config{
			Addrs:    settings.Cache.RedisAddrs,
			Password: settings.Cache.RedisPassword,
		})
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("embedding cache: %w", err)
		}
		e.redis = store
		svc = cache.New(svc, store, logger.L())
		logger.Debug("Embedding cache: redis %v", settings.Cache.RedisAddrs)
	case opts.MemoryCacheSize > 0:
		svc = cache.New(svc, memory.NewKVStore(opts.MemoryCacheSize), logger.L())
		logger.Debug("Embedding cache: in-process, %d entries", opts.MemoryCacheSize)
	}

	e.EmbeddingService = svc
	return e, nil
}

// CreateEmbeddingService creates the provider client named by settings.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: embedding settings are missing", domain.ErrConfig)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Timeout:    settings.Timeout,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Timeout:    settings.Timeout,
			Dimensions: settings.Dimensions,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrConfig, settings.Provider)
	}
}

// Ping validates connectivity within pingTimeout.
func Ping(ctx context.Context, svc driven.EmbeddingService) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %s unreachable: %w", domain.ErrEmbeddingUnavailable, svc.ModelName(), err)
	}
	return nil
}
