package types

import "errors"

// Domain errors shared across the engine
var (
	// ErrNotIndexed is returned when a search runs before a successful index pass
	ErrNotIndexed = errors.New("workspace not indexed yet: run an index pass first")

	// ErrVectorLengthMismatch is returned when two vectors of different length are compared
	ErrVectorLengthMismatch = errors.New("vectors must be the same length")

	// ErrUnsupportedIndexVersion marks a persisted index written by another schema version
	ErrUnsupportedIndexVersion = errors.New("unsupported index version")

	// ErrInvalidIndex marks a persisted index that fails structural validation
	ErrInvalidIndex = errors.New("invalid embedding index")
)
