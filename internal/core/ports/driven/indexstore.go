package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IndexStore persists the paired vector and metadata artifacts of an index.
type IndexStore interface {
	// Save writes both artifacts. Either both are replaced or neither is.
	Save(ctx context.Context, index *domain.Index) error

	// Load reads both artifacts and verifies that they pair up.
	// Missing or inconsistent artifacts fail with domain.ErrIndexCorrupt.
	Load(ctx context.Context) (*domain.Index, error)

	// Location describes where the artifacts live, for logs.
	Location() string
}

// BuildReportStore keeps the history of build runs.
type BuildReportStore interface {
	// SaveReport records a finished run together with its chunk failures.
	SaveReport(ctx context.Context, report *domain.BuildReport) error

	// ListReports returns the most recent runs first.
	ListReports(ctx context.Context, limit int) ([]domain.BuildReport, error)

	// GetReport returns a run with its failures, or domain.ErrNotFound.
	GetReport(ctx context.Context, id string) (*domain.BuildReport, error)
}
