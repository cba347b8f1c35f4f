package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/flatfile"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// queryCacheSize bounds the in-process query embedding cache of long-running commands.
const queryCacheSize = 1024

// Swappable in tests.
var (
	openConfigStore = func(path string) (driven.ConfigStore, error) {
		if path == "" {
			return file.NewConfigStore("")
		}
		return file.OpenConfigFile(path)
	}

	newEmbedder = func(settings *domain.AppSettings, opts ai.Options) (driven.EmbeddingService, error) {
		return ai.NewEmbedder(settings, opts)
	}

	pingEmbedder = ai.Ping
)

// loadSettings reads the config file and applies the flags the user set.
func loadSettings(cmd *cobra.Command) (*domain.AppSettings, error) {
	store, err := openConfigStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}
	settings, err := services.NewSettingsService(store).Get()
	if err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cmd, settings); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// applyFlagOverrides copies explicitly set flags over config values.
func applyFlagOverrides(cmd *cobra.Command, s *domain.AppSettings) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("window-size") {
		s.Chunking.WindowSize, _ = flags.GetInt("window-size")
	}
	if changed("overlap") {
		s.Chunking.Overlap, _ = flags.GetInt("overlap")
	}
	if changed("provider") {
		p, _ := flags.GetString("provider")
		if provider := domain.AIProvider(p); provider != s.Embedding.Provider {
			s.Embedding.Provider = provider
			// The configured endpoint belonged to the other provider.
			s.Embedding.BaseURL = ""
			if provider == domain.AIProviderOllama {
				s.Embedding.BaseURL = domain.DefaultOllamaURL
			}
		}
	}
	if changed("model") {
		s.Embedding.Model, _ = flags.GetString("model")
	}
	if changed("embed-url") {
		s.Embedding.BaseURL, _ = flags.GetString("embed-url")
	}
	if changed("concurrency") {
		s.Build.Concurrency, _ = flags.GetInt("concurrency")
	}
	if changed("max-failure-rate") {
		s.Build.MaxFailureRate, _ = flags.GetFloat64("max-failure-rate")
	}
	if changed("extensions") {
		raw, _ := flags.GetString("extensions")
		s.Build.Extensions = splitList(raw)
	}
	if changed("normalise") {
		s.Build.Normalise, _ = flags.GetBool("normalise")
	}
	if changed("metric") {
		raw, _ := flags.GetString("metric")
		m, err := domain.ParseMetric(raw)
		if err != nil {
			return err
		}
		s.Index.Metric = m
	}
	for _, name := range []string{"output", "index"} {
		if changed(name) {
			s.Index.Path, _ = flags.GetString(name)
		}
	}
	for _, name := range []string{"meta-output", "meta"} {
		if changed(name) {
			s.Index.MetaPath, _ = flags.GetString(name)
		}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newIndexStore(settings *domain.AppSettings) *flatfile.Store {
	return flatfile.New(settings.Index.Path, settings.Index.ResolvedMetaPath())
}

// newSearch assembles an unloaded search service over the configured index.
// The returned closer releases the index and the embedder; callers that load
// in the background must join the loader first.
func newSearch(settings *domain.AppSettings) (*services.SearchService, func(), error) {
	embedder, err := newEmbedder(settings, ai.Options{MemoryCacheSize: queryCacheSize})
	if err != nil {
		return nil, nil, err
	}
	search := services.NewSearchService(newIndexStore(settings), embedder, flat.Factory{})
	closer := func() {
		if err := search.Close(); err != nil {
			logger.Warn("closing index: %v", err)
		}
		if err := embedder.Close(); err != nil {
			logger.Warn("closing embedder: %v", err)
		}
	}
	return search, closer, nil
}

// openSearch assembles and loads a search service.
func openSearch(ctx context.Context, settings *domain.AppSettings) (*services.SearchService, func(), error) {
	search, closer, err := newSearch(settings)
	if err != nil {
		return nil, nil, err
	}
	if err := search.Load(ctx); err != nil {
		closer()
		return nil, nil, fmt.Errorf("loading index: %w", err)
	}
	return search, closer, nil
}
