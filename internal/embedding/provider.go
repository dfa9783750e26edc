// Package embedding maps text to fixed-dimension vectors. The core depends
// only on the Provider contract; the concrete implementation is selected by
// configuration at startup.
package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable reports that the embedding capability cannot produce a
// vector. Callers decide on fallback; the error is propagated, not swallowed.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Provider generates embeddings. Every vector a provider returns has exactly
// Dimension() elements; a provider never pads or truncates.
type Provider interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the fixed vector dimension.
	Dimension() int
}
