// Package synthesis produces natural-language answers from a question and a
// context passage. The closed set of variants (abstractive and extractive)
// is selected by configuration at startup; the engine depends only on the
// contract.
package synthesis

import (
	"context"
	"errors"
)

// ErrUnavailable reports that the synthesis capability cannot produce an
// answer for this call. The reasoning engine recovers at step granularity.
var ErrUnavailable = errors.New("synthesizer unavailable")

// Result is a synthesized answer with the synthesizer's own confidence
// signal in [0, 1].
type Result struct {
	Text       string
	Confidence float64
}

// Synthesizer answers a question from a retrieved context passage.
type Synthesizer interface {
	Answer(ctx context.Context, question, passage string) (Result, error)
}
