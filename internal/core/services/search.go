package services

import (
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/metrics"
)

// Ensure SearchService implements the interfaces.
var (
	_ driving.SearchService  = (*SearchService)(nil)
	_ driving.IndexLoader    = (*SearchService)(nil)
	_ driving.IndexInspector = (*SearchService)(nil)
)

// rerankWeight is the score bonus per query token found in a chunk.
const rerankWeight = 0.3

// SearchService answers queries over one loaded index.
// After Load succeeds the index is read-only, so queries never block each other.
type SearchService struct {
	store    driven.IndexStore
	embedder driven.EmbeddingService
	vectors  driven.VectorIndexFactory

	state atomic.Int32

	// Written once by Load before the state becomes Ready.
	index    driven.VectorIndex
	meta     []domain.ChunkMeta
	manifest domain.Manifest
}

// NewSearchService creates an unloaded search service.
func NewSearchService(
	store driven.IndexStore,
	embedder driven.EmbeddingService,
	vectors driven.VectorIndexFactory,
) *SearchService {
	return &SearchService{
		store:    store,
		embedder: embedder,
		vectors:  vectors,
	}
}

// Load reads the persisted index and validates it against the embedder.
// Any failure leaves the service Failed for good.
func (s *SearchService) Load(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(domain.StateUnloaded), int32(domain.StateLoading)) {
		return fmt.Errorf("%w: load called in state %s", domain.ErrInvalidInput, s.State())
	}
	logger.Section("Index Load")

	if err := s.load(ctx); err != nil {
		s.state.Store(int32(domain.StateFailed))
		logger.Error("Index load from %s failed: %v", s.store.Location(), err)
		return err
	}

	s.state.Store(int32(domain.StateReady))
	metrics.IndexRecords.Set(float64(len(s.meta)))
	logger.Info("Loaded index %s: %d records, dimension %d, %s",
		s.manifest.ID, s.manifest.Count, s.manifest.Dimension, s.manifest.Metric)
	return nil
}

func (s *SearchService) load(ctx context.Context) error {
	index, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if err := index.Verify(); err != nil {
		return err
	}

	m := index.Manifest
	if want := s.embedder.Dimensions(); m.Count > 0 && want > 0 && want != m.Dimension {
		return fmt.Errorf("%w: index dimension %d, embedder %s produces %d",
			domain.ErrDimensionMismatch, m.Dimension, s.embedder.ModelName(), want)
	}

	if m.Count > 0 {
		vi, err := s.vectors.Restore(m.Metric, m.Dimension, index.Vectors)
		if err != nil {
			return err
		}
		if vi.Len() != m.Count {
			vi.Close()
			return fmt.Errorf("%w: %d vectors for %d metadata records", domain.ErrIndexCorrupt, vi.Len(), m.Count)
		}
		s.index = vi
	}
	s.meta = index.Meta
	s.manifest = m
	return nil
}

// State returns the current lifecycle state.
func (s *SearchService) State() domain.ServiceState {
	return domain.ServiceState(s.state.Load())
}

// Count returns the number of indexed chunks (0 unless Ready).
func (s *SearchService) Count() int {
	if s.State() != domain.StateReady {
		return 0
	}
	return len(s.meta)
}

// Manifest returns the loaded index manifest (zero unless Ready).
func (s *SearchService) Manifest() domain.Manifest {
	if s.State() != domain.StateReady {
		return domain.Manifest{}
	}
	return s.manifest
}

// Chunk returns the metadata of one indexed chunk by global index.
func (s *SearchService) Chunk(idx int) (domain.ChunkMeta, error) {
	if s.State() != domain.StateReady {
		return domain.ChunkMeta{}, domain.ErrNotReady
	}
	if idx < 0 || idx >= len(s.meta) {
		return domain.ChunkMeta{}, fmt.Errorf("%w: chunk %d", domain.ErrNotFound, idx)
	}
	return s.meta[idx], nil
}

// Search embeds query and returns the closest chunks by descending score.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) (results []domain.SearchResult, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = domain.ErrorCode(err)
		}
		metrics.SearchRequestsTotal.WithLabelValues(status).Inc()
		metrics.SearchDuration.Observe(time.Since(start).Seconds())
	}()

	if s.State() != domain.StateReady {
		return nil, fmt.Errorf("%w: state is %s", domain.ErrNotReady, s.State())
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", domain.ErrInvalidInput)
	}

	k := opts.TopK
	if k <= 0 {
		k = domain.DefaultTopK
	}
	n := len(s.meta)
	if n == 0 {
		logger.Debug("Empty index, returning no results for %q", query)
		return []domain.SearchResult{}, nil
	}
	k = min(k, n)

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrSearch, err)
	}

	fetch := k
	if opts.Rerank {
		fetch = min(n, max(6*k, k+10))
	}
	hits, err := s.index.Search(ctx, vec, fetch)
	if err != nil {
		return nil, err
	}

	results = make([]domain.SearchResult, len(hits))
	for i, hit := range hits {
		m := s.meta[hit.ID]
		results[i] = domain.SearchResult{
			Score:        hit.Score,
			SourcePath:   m.SourcePath,
			ChunkIdx:     m.ChunkIdx,
			FileChunkIdx: m.FileChunkIdx,
			Text:         m.Text,
		}
	}
	if opts.Rerank {
		results = rerank(query, results, k)
	}

	logger.Debug("Search %q: %d results (k=%d, rerank=%t)", query, len(results), k, opts.Rerank)
	return results, nil
}

// Close releases the loaded index. Only a Ready service holds one; Load
// publishes the index before the state flips, so reading it here is safe.
func (s *SearchService) Close() error {
	if s.State() != domain.StateReady || s.index == nil {
		return nil
	}
	return s.index.Close()
}

// rerank adds a bonus per distinct query token present in the chunk text and
// keeps the k best by reranked score, ties by chunk index.
func rerank(query string, results []domain.SearchResult, k int) []domain.SearchResult {
	queryTokens := lexicalTokens(query)
	for i := range results {
		chunkTokens := lexicalTokens(results[i].Text)
		overlap := 0
		for tok := range queryTokens {
			if _, ok := chunkTokens[tok]; ok {
				overlap++
			}
		}
		score := results[i].Score + rerankWeight*float64(overlap)
		results[i].TokenOverlap = overlap
		results[i].RerankScore = &score
	}

	slices.SortStableFunc(results, func(a, b domain.SearchResult) int {
		if c := cmp.Compare(*b.RerankScore, *a.RerankScore); c != 0 {
			return c
		}
		return cmp.Compare(a.ChunkIdx, b.ChunkIdx)
	})
	return results[:min(k, len(results))]
}

var (
	separators = strings.NewReplacer("/", " ", "_", " ", "-", " ")
	camelCase  = regexp.MustCompile(`([a-z])([A-Z])`)
	wordRunes  = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

// lexicalTokens returns the distinct lower-cased words of text, splitting
// paths, snake_case, kebab-case and camelCase.
func lexicalTokens(text string) map[string]struct{} {
	text = separators.Replace(text)
	text = camelCase.ReplaceAllString(text, "$1 $2")
	words := wordRunes.FindAllString(strings.ToLower(text), -1)

	tokens := make(map[string]struct{}, len(words))
	for _, w := range words {
		tokens[w] = struct{}{}
	}
	return tokens
}
