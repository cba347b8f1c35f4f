package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyWindowSize     = "chunking.window_size"
	keyOverlap        = "chunking.overlap"
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedDims      = "embedding.dimensions"
	keyEmbedTimeout   = "embedding.timeout"
	keyEmbedAttempts  = "embedding.max_attempts"
	keyEmbedRPS       = "embedding.requests_per_second"
	keyConcurrency    = "build.concurrency"
	keyMaxFailureRate = "build.max_failure_rate"
	keyExtensions     = "build.extensions"
	keyNormalise      = "build.normalise"
	keyIndexPath      = "index.path"
	keyIndexMetaPath  = "index.meta_path"
	keyIndexMetric    = "index.metric"
	keyTopK           = "search.top_k"
	keyRedisAddrs     = "cache.redis_addrs"
	keyRedisPassword  = "cache.redis_password"
	keyHistoryPath    = "history.path"
)

// EnvOpenAIKey is consulted when no API key is configured.
//
//nolint:gosec // G101: environment variable name.
const EnvOpenAIKey = "OPENAI_API_KEY"

// dataDirName is the per-user directory holding the index, history and config.
const dataDirName = ".sercha-rag"

// SettingsService builds typed settings from a ConfigStore.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
	homeDir     func() (string, error)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
		homeDir:     os.UserHomeDir,
	}
}

// Get retrieves current application settings with defaults applied.
// Values that cannot be parsed or fail validation return domain.ErrConfig.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := s.GetDefaults()

	timeout, err := s.getDuration(keyEmbedTimeout, defaults.Embedding.Timeout)
	if err != nil {
		return nil, err
	}
	metric := defaults.Index.Metric
	if raw := s.configStore.GetString(keyIndexMetric); raw != "" {
		if metric, err = domain.ParseMetric(raw); err != nil {
			return nil, err
		}
	}

	settings := &domain.AppSettings{
		Chunking: domain.ChunkingSettings{
			WindowSize: s.getInt(keyWindowSize, defaults.Chunking.WindowSize),
			Overlap:    s.getInt(keyOverlap, defaults.Chunking.Overlap),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          domain.AIProvider(s.getString(keyEmbedProvider, defaults.Embedding.Provider.String())),
			Model:             s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.getInt(keyEmbedDims, defaults.Embedding.Dimensions),
			Timeout:           timeout,
			MaxAttempts:       s.getInt(keyEmbedAttempts, defaults.Embedding.MaxAttempts),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, defaults.Embedding.RequestsPerSecond),
		},
		Build: domain.BuildSettings{
			Concurrency:    s.getInt(keyConcurrency, defaults.Build.Concurrency),
			MaxFailureRate: s.getFloat(keyMaxFailureRate, defaults.Build.MaxFailureRate),
			Extensions:     s.getStringSlice(keyExtensions, defaults.Build.Extensions),
			Normalise:      s.configStore.GetBool(keyNormalise),
		},
		Index: domain.IndexSettings{
			Path:     s.getPath(keyIndexPath, defaults.Index.Path),
			MetaPath: s.getPath(keyIndexMetaPath, ""),
			Metric:   metric,
		},
		Cache: domain.CacheSettings{
			RedisAddrs:    s.configStore.GetStringSlice(keyRedisAddrs),
			RedisPassword: s.configStore.GetString(keyRedisPassword),
		},
		TopK:       s.getInt(keyTopK, defaults.TopK),
		HistoryDir: s.getPath(keyHistoryPath, defaults.HistoryDir),
	}

	// Ollama is the only provider with a local default endpoint.
	if settings.Embedding.BaseURL == "" && settings.Embedding.Provider == domain.AIProviderOllama {
		settings.Embedding.BaseURL = domain.DefaultOllamaURL
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.getenv(EnvOpenAIKey)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyWindowSize, settings.Chunking.WindowSize},
		{keyOverlap, settings.Chunking.Overlap},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedTimeout, settings.Embedding.Timeout.String()},
		{keyEmbedAttempts, settings.Embedding.MaxAttempts},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyConcurrency, settings.Build.Concurrency},
		{keyMaxFailureRate, settings.Build.MaxFailureRate},
		{keyExtensions, settings.Build.Extensions},
		{keyNormalise, settings.Build.Normalise},
		{keyIndexPath, settings.Index.Path},
		{keyIndexMetric, settings.Index.Metric.String()},
		{keyTopK, settings.TopK},
		{keyHistoryPath, settings.HistoryDir},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Secrets and optional values are only written when set.
	optional := map[string]any{
		keyEmbedAPIKey:   settings.Embedding.APIKey,
		keyIndexMetaPath: settings.Index.MetaPath,
		keyRedisPassword: settings.Cache.RedisPassword,
	}
	for key, value := range optional {
		if value == "" {
			continue
		}
		if err := s.configStore.Set(key, value); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	if len(settings.Cache.RedisAddrs) > 0 {
		if err := s.configStore.Set(keyRedisAddrs, settings.Cache.RedisAddrs); err != nil {
			return fmt.Errorf("save %s: %w", keyRedisAddrs, err)
		}
	}

	return nil
}

// GetDefaults returns default settings with per-user paths resolved.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	defaults := domain.DefaultAppSettings()

	root := dataDirName
	if home, err := s.homeDir(); err == nil {
		root = filepath.Join(home, dataDirName)
	}
	defaults.Index.Path = filepath.Join(root, "index", "docs.idx")
	defaults.HistoryDir = filepath.Join(root, "data")
	return defaults
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt treats an explicit zero as a value, so overlap = 0 survives.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	val := s.configStore.GetStringSlice(key)
	if len(val) == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	raw, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal, nil
	}
	switch v := raw.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", domain.ErrConfig, key, err)
		}
		return d, nil
	case time.Duration:
		return v, nil
	default:
		// Bare numbers are seconds.
		if n := s.configStore.GetFloat(key); n > 0 {
			return time.Duration(n * float64(time.Second)), nil
		}
		return 0, fmt.Errorf("%w: %s: unsupported value %v", domain.ErrConfig, key, raw)
	}
}

func (s *SettingsService) getPath(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return s.expandHome(val)
}

// expandHome resolves a leading "~/" against the user's home directory.
func (s *SettingsService) expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := s.homeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
