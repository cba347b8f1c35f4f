package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// Default settings values.
const (
	DefaultWindowSize     = 500
	DefaultOverlap        = 50
	DefaultEmbeddingModel = "nomic-embed-text"
	DefaultOllamaURL      = "http://localhost:11434"
	DefaultEmbedTimeout   = 10 * time.Second
	DefaultMaxAttempts    = 3
	DefaultConcurrency    = 4
	DefaultMaxFailureRate = 0.5
)

// DefaultExtensions are the document file extensions picked up by a directory scan.
var DefaultExtensions = []string{".md", ".markdown"}

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API (or a compatible endpoint).
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// ChunkingSettings holds the token window parameters.
type ChunkingSettings struct {
	// WindowSize is the number of tokens per chunk.
	WindowSize int

	// Overlap is the number of tokens shared by consecutive chunks.
	Overlap int
}

// Validate rejects windows that cannot make progress.
func (c ChunkingSettings) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: window size must be positive, got %d", ErrConfig, c.WindowSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.WindowSize {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrConfig, c.WindowSize, c.Overlap)
	}
	return nil
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions declares the vector size. Zero means learn it from the first call.
	Dimensions int

	// Timeout bounds a single embedding call.
	Timeout time.Duration

	// MaxAttempts bounds retries of transient failures.
	MaxAttempts int

	// RequestsPerSecond paces outbound calls. Zero disables pacing.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// BuildSettings controls the index builder.
type BuildSettings struct {
	// Concurrency is the number of in-flight embedding calls.
	Concurrency int

	// MaxFailureRate aborts the build when failed/total exceeds it.
	MaxFailureRate float64

	// Extensions filters files during a directory scan.
	Extensions []string

	// Normalise strips Markdown and HTML markup before chunking.
	Normalise bool
}

// IndexSettings locates and describes the persisted index.
type IndexSettings struct {
	// Path is the vector file. Metadata defaults to Path + ".meta.json".
	Path string

	// MetaPath overrides the metadata file location.
	MetaPath string

	// Metric is the similarity function for new builds.
	Metric Metric
}

// ResolvedMetaPath returns the metadata file path.
func (i IndexSettings) ResolvedMetaPath() string {
	if i.MetaPath != "" {
		return i.MetaPath
	}
	return i.Path + ".meta.json"
}

// CacheSettings configures the optional embedding cache.
type CacheSettings struct {
	// RedisAddrs enables the cache when non-empty.
	RedisAddrs []string

	// RedisPassword authenticates to Redis.
	RedisPassword string
}

// Enabled reports whether the cache is configured.
func (c CacheSettings) Enabled() bool {
	return len(c.RedisAddrs) > 0
}

// AppSettings holds all application settings.
type AppSettings struct {
	Chunking  ChunkingSettings
	Embedding EmbeddingSettings
	Build     BuildSettings
	Index     IndexSettings
	Cache     CacheSettings

	// TopK is the default number of search results.
	TopK int

	// HistoryDir holds the build history database.
	HistoryDir string
}

// DefaultAppSettings returns settings with sensible defaults.
// Paths are left empty and resolved by the settings service.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunking: ChunkingSettings{
			WindowSize: DefaultWindowSize,
			Overlap:    DefaultOverlap,
		},
		Embedding: EmbeddingSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultEmbeddingModel,
			BaseURL:     DefaultOllamaURL,
			Timeout:     DefaultEmbedTimeout,
			MaxAttempts: DefaultMaxAttempts,
		},
		Build: BuildSettings{
			Concurrency:    DefaultConcurrency,
			MaxFailureRate: DefaultMaxFailureRate,
			Extensions:     append([]string(nil), DefaultExtensions...),
		},
		Index: IndexSettings{
			Metric: MetricCosine,
		},
		TopK: DefaultTopK,
	}
}

// Validate checks the settings that gate any work.
func (s AppSettings) Validate() error {
	if err := s.Chunking.Validate(); err != nil {
		return err
	}
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrConfig, s.Embedding.Provider)
	}
	if s.Embedding.Model == "" {
		return fmt.Errorf("%w: embedding model is required", ErrConfig)
	}
	if s.Embedding.Dimensions < 0 {
		return fmt.Errorf("%w: embedding dimensions must not be negative", ErrConfig)
	}
	if s.Embedding.MaxAttempts <= 0 {
		return fmt.Errorf("%w: embedding max attempts must be positive", ErrConfig)
	}
	if s.Build.Concurrency <= 0 {
		return fmt.Errorf("%w: build concurrency must be positive", ErrConfig)
	}
	if s.Build.MaxFailureRate <= 0 || s.Build.MaxFailureRate > 1 {
		return fmt.Errorf("%w: max failure rate must be in (0, 1], got %g", ErrConfig, s.Build.MaxFailureRate)
	}
	if !s.Index.Metric.IsValid() {
		return fmt.Errorf("%w: unknown metric %d", ErrConfig, uint32(s.Index.Metric))
	}
	return nil
}
