package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SearchService answers nearest-chunk queries over a loaded index.
type SearchService interface {
	// Search embeds the query and returns the closest chunks by descending score.
	// Fails with domain.ErrNotReady until a load has succeeded.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// State returns the current lifecycle state.
	State() domain.ServiceState

	// Count returns the number of indexed chunks (0 unless Ready).
	Count() int
}

// IndexLoader moves a search service from Unloaded to Ready or Failed.
type IndexLoader interface {
	// Load reads and validates the persisted index. It may only be called once.
	Load(ctx context.Context) error
}

// IndexInspector exposes read-only views of the loaded index.
type IndexInspector interface {
	// Manifest returns the loaded manifest (zero unless Ready).
	Manifest() domain.Manifest

	// Chunk returns one chunk's metadata by global index.
	// Fails with domain.ErrNotReady before load and domain.ErrNotFound when out of range.
	Chunk(idx int) (domain.ChunkMeta, error)
}
