package services

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// stubEmbedder is a deterministic embedding service.
type stubEmbedder struct {
	dim      int
	declared int
	embedFn  func(ctx context.Context, text string) ([]float32, error)
	calls    atomic.Int64
}

func newStubEmbedder(dim int) *stubEmbedder {
	return &stubEmbedder{dim: dim}
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.embedFn != nil {
		return e.embedFn(ctx, text)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return textVector(text, e.dim), nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *stubEmbedder) Dimensions() int { return e.declared }
func (e *stubEmbedder) ModelName() string { return "stub" }
func (e *stubEmbedder) Ping(_ context.Context) error { return nil }
func (e *stubEmbedder) Close() error { return nil }

// textVector derives a vector in [-1, 1]^dim from the text.
func textVector(text string, dim int) []float32 {
	sum := sha256.Sum256([]byte(text))
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(sum[i%len(sum)])/127.5 - 1
	}
	return v
}

// words returns n space-separated tokens prefix0 ... prefix<n-1>.
func words(prefix string, n int) string {
	toks := make([]string, n)
	for i := range toks {
		toks[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(toks, " ")
}

// recordingReports is an in-memory BuildReportStore.
type recordingReports struct {
	mu      sync.Mutex
	reports []domain.BuildReport
	err     error
}

var _ driven.BuildReportStore = (*recordingReports)(nil)

func (r *recordingReports) SaveReport(_ context.Context, report *domain.BuildReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.reports = append(r.reports, *report)
	return nil
}

func (r *recordingReports) ListReports(_ context.Context, limit int) ([]domain.BuildReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.BuildReport, 0, len(r.reports))
	for i := len(r.reports) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.reports[i])
	}
	return out, nil
}

func (r *recordingReports) GetReport(_ context.Context, id string) (*domain.BuildReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.reports {
		if r.reports[i].ID == id {
			report := r.reports[i]
			return &report, nil
		}
	}
	return nil, domain.ErrNotFound
}
