package cli

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

const fakeDim = 8

// fakeEmbedder maps identical text to identical vectors without a network.
type fakeEmbedder struct {
	fail  bool
	calls atomic.Int64
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.fail {
		return nil, fmt.Errorf("%w: embedding backend down", domain.ErrTransient)
	}
	sum := sha256.Sum256([]byte(text))
	v := make([]float32, fakeDim)
	for i := range v {
		v[i] = float32(sum[i])/127.5 - 1
	}
	return v, nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int { return 0 }
func (e *fakeEmbedder) ModelName() string { return "fake" }
func (e *fakeEmbedder) Ping(context.Context) error { return nil }
func (e *fakeEmbedder) Close() error { return nil }

// useFakeEmbedder swaps the embedding backend for the test's duration.
func useFakeEmbedder(t *testing.T, e *fakeEmbedder) {
	t.Helper()
	origNew, origPing := newEmbedder, pingEmbedder
	newEmbedder = func(*domain.AppSettings, ai.Options) (driven.EmbeddingService, error) {
		return e, nil
	}
	pingEmbedder = func(context.Context, driven.EmbeddingService) error { return nil }
	t.Cleanup(func() {
		newEmbedder, pingEmbedder = origNew, origPing
	})
}

// resetFlags restores every flag so state does not leak between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// executeCommand runs the root command and returns stdout and stderr.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// workspace is a temp directory with a config file and a document corpus.
type workspace struct {
	root   string
	config string
	docs   string
	index  string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	root := t.TempDir()
	w := &workspace{
		root:   root,
		config: filepath.Join(root, "config.toml"),
		docs:   filepath.Join(root, "docs"),
		index:  filepath.Join(root, "index", "docs.idx"),
	}

	cfg := fmt.Sprintf("[index]\npath = '%s'\n\n[history]\npath = '%s'\n",
		w.index, filepath.Join(root, "history"))
	require.NoError(t, os.WriteFile(w.config, []byte(cfg), 0o600))
	require.NoError(t, os.MkdirAll(w.docs, 0o755))
	return w
}

func (w *workspace) writeDoc(t *testing.T, name, content string) {
	t.Helper()
	path := filepath.Join(w.docs, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// words returns n space-separated tokens prefix0 ... prefix<n-1>.
func words(prefix string, n int) string {
	toks := make([]string, n)
	for i := range toks {
		toks[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(toks, " ")
}
