package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/metrics"
)

// Ensure IndexBuilder implements the interface.
var _ driving.IndexBuilder = (*IndexBuilder)(nil)

// progressEvery is how many embedded chunks pass between progress log lines.
const progressEvery = 50

// warmupChunks caps the serial attempts made before fanning out, so a
// failing head of the corpus does not pay every retry back to back.
const warmupChunks = 3


// BuilderConfig holds the build policies.
type BuilderConfig struct {
	// Metric is recorded in the index and fixes query-time scoring.
	Metric domain.Metric

	// Concurrency bounds in-flight embedding calls.
	Concurrency int

	// MaxFailureRate aborts the build when failed/total chunks exceeds it.
	MaxFailureRate float64
}

// IndexBuilder chunks, embeds and persists a corpus.
type IndexBuilder struct {
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	vectors  driven.VectorIndexFactory
	store    driven.IndexStore
	reports  driven.BuildReportStore
	cfg      BuilderConfig
	now      func() time.Time
}

// NewIndexBuilder creates a builder. Invalid policies return domain.ErrConfig.
func NewIndexBuilder(
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	vectors driven.VectorIndexFactory,
	store driven.IndexStore,
	cfg BuilderConfig,
) (*IndexBuilder, error) {
	if !cfg.Metric.IsValid() {
		return nil, fmt.Errorf("%w: unknown metric %d", domain.ErrConfig, uint32(cfg.Metric))
	}
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("%w: concurrency must be positive, got %d", domain.ErrConfig, cfg.Concurrency)
	}
	if cfg.MaxFailureRate <= 0 || cfg.MaxFailureRate > 1 {
		return nil, fmt.Errorf("%w: max failure rate must be in (0, 1], got %g", domain.ErrConfig, cfg.MaxFailureRate)
	}
	return &IndexBuilder{
		chunker:  chunker,
		embedder: embedder,
		vectors:  vectors,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// SetReportStore enables build history. A nil store only logs reports.
func (b *IndexBuilder) SetReportStore(store driven.BuildReportStore) {
	b.reports = store
}

// embedResult is the outcome for one chunk, stored at the chunk's submission slot.
type embedResult struct {
	vector []float32
	err    error
}

// Build chunks every document in order, embeds the chunks with bounded
// parallelism and persists the index. Chunks whose embedding fails are
// skipped and recorded; global chunk indices are assigned afterwards in
// submission order so they never depend on completion order.
func (b *IndexBuilder) Build(ctx context.Context, docs []domain.Document) (*domain.BuildReport, error) {
	logger.Section("Index Build")

	report := &domain.BuildReport{
		ID:        uuid.NewString(),
		IndexPath: b.store.Location(),
		Documents: len(docs),
		StartedAt: b.now(),
	}

	chunks, err := b.collectChunks(ctx, docs)
	if err != nil {
		return b.finish(ctx, report, domain.BuildStatusFailed, err)
	}
	report.Chunks = len(chunks)
	logger.Info("Embedding %d chunks from %d documents with %s", len(chunks), len(docs), b.embedder.ModelName())

	results, err := b.embedAll(ctx, chunks)
	if err != nil {
		return b.finish(ctx, report, domain.BuildStatusFailed, err)
	}

	dim := b.embedder.Dimensions()
	if dim == 0 {
		dim = firstDimension(results)
	}

	var records []domain.Record
	for i, chunk := range chunks {
		res := results[i]
		if res.err == nil && len(res.vector) != dim {
			res.err = fmt.Errorf("%w: %w: got %d, want %d",
				domain.ErrFatal, domain.ErrDimensionMismatch, len(res.vector), dim)
		}
		if res.err != nil {
			report.Failures = append(report.Failures, domain.ChunkFailure{
				SourcePath:   chunk.SourceID,
				FileChunkIdx: chunk.FileChunkIdx,
				Error:        res.err.Error(),
			})
			metrics.BuildChunksTotal.WithLabelValues("skipped").Inc()
			logger.Warn("Skipping chunk %d of %s: %v", chunk.FileChunkIdx, chunk.SourceID, res.err)
			continue
		}
		records = append(records, domain.Record{
			ChunkMeta: domain.ChunkMeta{
				SourcePath:   chunk.SourceID,
				ChunkIdx:     len(records),
				FileChunkIdx: chunk.FileChunkIdx,
				Text:         chunk.Text,
			},
			Vector: res.vector,
		})
		metrics.BuildChunksTotal.WithLabelValues("embedded").Inc()
	}
	report.Records = len(records)

	if rate := report.FailureRate(); rate > b.cfg.MaxFailureRate {
		err := fmt.Errorf("%w: %d of %d chunks failed (%.1f%% > %.1f%%)", domain.ErrBuildAborted,
			len(report.Failures), report.Chunks, rate*100, b.cfg.MaxFailureRate*100)
		return b.finish(ctx, report, domain.BuildStatusAborted, err)
	}

	index, err := b.assemble(ctx, records, dim)
	if err != nil {
		return b.finish(ctx, report, domain.BuildStatusFailed, err)
	}
	if err := b.store.Save(ctx, index); err != nil {
		return b.finish(ctx, report, domain.BuildStatusFailed, fmt.Errorf("save index: %w", err))
	}
	report.IndexID = index.Manifest.ID

	return b.finish(ctx, report, domain.BuildStatusSucceeded, nil)
}

// collectChunks flattens every document into one ordered chunk list.
func (b *IndexBuilder) collectChunks(ctx context.Context, docs []domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for chunk := range b.chunker.Chunks(doc) {
			chunks = append(chunks, chunk)
		}
		logger.Debug("Chunked %s", doc.SourceID)
	}
	return chunks, nil
}

// embedAll embeds chunks into submission-ordered slots. Up to warmupChunks
// chunks are embedded one at a time so the first success fixes the
// dimension, then the rest fan out. Only cancellation fails the whole call.
func (b *IndexBuilder) embedAll(ctx context.Context, chunks []domain.Chunk) ([]embedResult, error) {
	results := make([]embedResult, len(chunks))
	var done atomic.Int64

	embed := func(ctx context.Context, i int) error {
		vec, err := b.embedder.Embed(ctx, chunks[i].Text)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil && len(vec) == 0 {
			err = fmt.Errorf("%w: empty embedding", domain.ErrFatal)
		}
		results[i] = embedResult{vector: vec, err: err}
		if n := done.Add(1); n%progressEvery == 0 {
			logger.Info("Embedded %d/%d chunks", n, len(chunks))
		}
		return nil
	}

	next := 0
	for ; next < min(len(chunks), warmupChunks); next++ {
		if err := embed(ctx, next); err != nil {
			return nil, err
		}
		if results[next].err == nil {
			next++
			break
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Concurrency)
	for i := next; i < len(chunks); i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return embed(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// assemble loads the records into a vector index and checks that vectors
// and metadata still pair up before anything is persisted.
func (b *IndexBuilder) assemble(ctx context.Context, records []domain.Record, dim int) (*domain.Index, error) {
	index := &domain.Index{
		Manifest: domain.Manifest{Metric: b.cfg.Metric, Count: len(records)},
		Meta:     make([]domain.ChunkMeta, len(records)),
	}
	if len(records) > 0 {
		vi, err := b.vectors.New(b.cfg.Metric, dim)
		if err != nil {
			return nil, err
		}
		defer vi.Close()

		for i, rec := range records {
			if err := vi.Add(ctx, rec.ChunkIdx, rec.Vector); err != nil {
				return nil, fmt.Errorf("%w: add chunk %d: %w", domain.ErrBuildIntegrity, rec.ChunkIdx, err)
			}
			index.Meta[i] = rec.ChunkMeta
		}
		if vi.Len() != len(index.Meta) {
			return nil, fmt.Errorf("%w: %d vectors for %d metadata records",
				domain.ErrBuildIntegrity, vi.Len(), len(index.Meta))
		}
		index.Manifest.Dimension = dim
		index.Vectors = vi.Vectors()
	}

	if err := index.Verify(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBuildIntegrity, err)
	}
	index.Manifest.ID = index.ContentID()
	return index, nil
}

// finish stamps, records and logs a report, and returns it with err.
func (b *IndexBuilder) finish(
	ctx context.Context, report *domain.BuildReport, status domain.BuildStatus, err error,
) (*domain.BuildReport, error) {
	report.Status = status
	report.FinishedAt = b.now()
	if err != nil {
		report.Error = err.Error()
	}
	metrics.BuildsTotal.WithLabelValues(string(status)).Inc()

	if b.reports != nil {
		// History is written even when the build was cancelled.
		saveCtx := context.WithoutCancel(ctx)
		if saveErr := b.reports.SaveReport(saveCtx, report); saveErr != nil {
			logger.Warn("Failed to record build %s: %v", report.ID, saveErr)
		}
	}

	switch {
	case err == nil:
		logger.Info("Built index %s: %d records from %d chunks (%d skipped) in %s",
			report.IndexID, report.Records, report.Chunks, len(report.Failures), report.Duration().Round(time.Millisecond))
	case errors.Is(err, domain.ErrBuildAborted):
		logger.Error("Build aborted: %v", err)
	default:
		logger.Error("Build failed: %v", err)
	}
	return report, err
}

// firstDimension returns the length of the first successful vector in submission order.
func firstDimension(results []embedResult) int {
	for _, r := range results {
		if r.err == nil {
			return len(r.vector)
		}
	}
	return 0
}
