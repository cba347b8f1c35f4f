package domain

import "time"

// BuildStatus is the outcome of a build run.
type BuildStatus string

// Build outcomes.
const (
	BuildStatusSucceeded BuildStatus = "succeeded"
	BuildStatusAborted   BuildStatus = "aborted"
	BuildStatusFailed    BuildStatus = "failed"
)

// ChunkFailure records a chunk that was skipped because it could not be embedded.
type ChunkFailure struct {
	SourcePath   string
	FileChunkIdx int
	Error        string
}

// BuildReport summarises one build run.
type BuildReport struct {
	// ID identifies the run. It is not part of the index contents.
	ID string

	// IndexID is the content-derived ID of the produced index (empty on failure).
	IndexID string

	// IndexPath is where the vector file was written.
	IndexPath string

	Status    BuildStatus
	Documents int
	Chunks    int
	Records   int
	Failures  []ChunkFailure

	// Error holds the terminal error message for aborted or failed runs.
	Error string

	StartedAt  time.Time
	FinishedAt time.Time
}

// FailureRate returns the fraction of chunks that failed to embed.
func (r *BuildReport) FailureRate() float64 {
	if r.Chunks == 0 {
		return 0
	}
	return float64(len(r.Failures)) / float64(r.Chunks)
}

// Duration returns the wall-clock time of the run.
func (r *BuildReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
