package types

import "errors"

// Retrieval errors
var (
	// ErrEmbeddingUnavailable is returned when the embedding service yields no vector.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrDimensionMismatch is returned when a vector length differs from the deployment dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrStrategyQueryFailed wraps the failure of a single search strategy.
	ErrStrategyQueryFailed = errors.New("search strategy query failed")
	// ErrStorageUnavailable is returned when the comment table cannot be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Validation errors
var (
	ErrMissingIsolationKey = errors.New("project path is required")
	ErrEmptyID             = errors.New("comment ID cannot be empty")
	ErrInvalidKind         = errors.New("invalid comment kind")
	ErrInvalidChunkKind    = errors.New("invalid chunk kind")
	ErrInvalidLineRange    = errors.New("invalid line range")
)
