package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IndexBuilder turns a corpus into a persisted index.
type IndexBuilder interface {
	// Build chunks and embeds every document in order and persists the result.
	// The report is returned for successful and aborted runs alike.
	Build(ctx context.Context, docs []domain.Document) (*domain.BuildReport, error)
}
