package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrConfig indicates invalid parameters, rejected before any work starts.
	ErrConfig = errors.New("configuration error")

	// Embedding Errors.

	// ErrTransient indicates a retryable embedding failure (timeout, 5xx, unavailable).
	ErrTransient = errors.New("transient embedding error")

	// ErrFatal indicates a non-retryable embedding failure
	// (malformed response, dimension mismatch).
	ErrFatal = errors.New("fatal embedding error")

	// Build Errors.

	// ErrBuildIntegrity indicates the vector and metadata counts diverged.
	// Nothing is persisted.
	ErrBuildIntegrity = errors.New("build integrity error")

	// ErrBuildAborted indicates the per-chunk failure rate exceeded the threshold.
	ErrBuildAborted = errors.New("build aborted")

	// Index and Query Errors.

	// ErrIndexCorrupt indicates persisted artifacts are missing, unpaired or inconsistent.
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrDimensionMismatch indicates a vector length differs from the index dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNotReady indicates a query was issued before a successful load.
	ErrNotReady = errors.New("search service not ready")

	// ErrSearch indicates the query could not be embedded.
	ErrSearch = errors.New("search error")
)

// Error codes surfaced at the tool-call boundary.
const (
	CodeConfig            = "config_error"
	CodeInvalidInput      = "invalid_input"
	CodeNotReady          = "not_ready"
	CodeDimensionMismatch = "dimension_mismatch"
	CodeSearch            = "search_error"
	CodeInternal          = "internal_error"
)

// ErrorCode maps an error onto a stable code for structured error replies.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotReady):
		return CodeNotReady
	case errors.Is(err, ErrSearch):
		return CodeSearch
	case errors.Is(err, ErrDimensionMismatch):
		return CodeDimensionMismatch
	case errors.Is(err, ErrConfig):
		return CodeConfig
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	default:
		return CodeInternal
	}
}
