package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSettingsShow(t *testing.T) {
	w := newWorkspace(t)

	out, _, err := executeCommand(t, "settings", "show", "--config", w.config)
	require.NoError(t, err)

	assert.Contains(t, out, "Window size: 500 tokens")
	assert.Contains(t, out, "Overlap: 50 tokens")
	assert.Contains(t, out, "Model: nomic-embed-text")
	assert.Contains(t, out, "Vectors: "+w.index)
	assert.Contains(t, out, "Metadata: "+w.index+".meta.json")
	assert.Contains(t, out, "Metric: cosine")
	assert.Contains(t, out, "Redis: disabled")
}

func TestSettingsShow_InvalidConfig(t *testing.T) {
	w := newWorkspace(t)
	require.NoError(t, os.WriteFile(w.config, []byte("[chunking]\nwindow_size = 10\noverlap = 20\n"), 0o600))

	_, _, err := executeCommand(t, "settings", "--config", w.config)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get settings")
}

func TestSettingsInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, _, err := executeCommand(t, "settings", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Default settings written.")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "chunking.window_size: 500")

	out, _, err = executeCommand(t, "settings", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Window size: 500 tokens")
}

func TestFlagOverrides(t *testing.T) {
	w := newWorkspace(t)

	out, _, err := executeCommand(t, "build", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--window-size")

	resetFlags(rootCmd)
	require.NoError(t, buildCmd.ParseFlags([]string{
		"--window-size", "64", "--overlap", "0", "--provider", "openai", "--extensions", " .md, .txt ,",
		"--metric", "euclidean", "--normalise", "-o", "/tmp/x.idx",
	}))
	configPath = w.config
	t.Cleanup(func() { configPath = "" })

	settings, err := loadSettings(buildCmd)
	require.NoError(t, err)
	assert.Equal(t, 64, settings.Chunking.WindowSize)
	assert.Equal(t, 0, settings.Chunking.Overlap)
	assert.Equal(t, "openai", settings.Embedding.Provider.String())
	assert.Empty(t, settings.Embedding.BaseURL)
	assert.Equal(t, []string{".md", ".txt"}, settings.Build.Extensions)
	assert.Equal(t, "euclidean", settings.Index.Metric.String())
	assert.True(t, settings.Build.Normalise)
	assert.Equal(t, "/tmp/x.idx", settings.Index.Path)

	resetFlags(rootCmd)
	require.NoError(t, buildCmd.ParseFlags([]string{"--metric", "manhattan"}))
	configPath = w.config
	_, err = loadSettings(buildCmd)
	assert.Error(t, err)
}
