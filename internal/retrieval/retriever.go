// Package retrieval turns a query string into the top-k most similar chunks
// by embedding it and searching the vector index.
package retrieval

import (
	"context"
	"fmt"

	"github.com/bull/corpusqa/internal/embedding"
	"github.com/bull/corpusqa/internal/index"
)

// DefaultTopK matches the engine's default retrieval depth per step.
const DefaultTopK = 4

// Retriever embeds query text and delegates to the index. Capability
// failures from the embedding provider are propagated, not swallowed; the
// reasoning engine decides on fallback.
type Retriever struct {
	provider embedding.Provider
	idx      index.Index
}

// New creates a Retriever over the given provider and index.
func New(provider embedding.Provider, idx index.Index) *Retriever {
	return &Retriever{provider: provider, idx: idx}
}

// Retrieve returns up to k chunks ordered by descending similarity. A
// non-positive k uses DefaultTopK.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]index.ScoredEntry, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	vector, err := r.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := r.idx.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return results, nil
}
