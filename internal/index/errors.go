package index

import "errors"

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrIDConflict        = errors.New("chunk id already present with different content")
	ErrIncompatibleIndex = errors.New("persisted index incompatible with configuration")
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
)
