// Package index stores chunk embeddings with their metadata and answers
// k-nearest-neighbor queries over them. Two backends implement the contract:
// an embedded brute-force index with on-disk persistence and a Qdrant-backed
// index for larger collections.
package index

import "context"

// MetricCosine is the only similarity metric the index supports. It is
// recorded in the persisted header so a loaded index can be validated.
const MetricCosine = "cosine"

// Metadata carries everything needed to reconstruct a retrieved chunk for
// evidence display.
type Metadata struct {
	DocumentID  string `json:"document_id"`
	Text        string `json:"text"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Sequence    int    `json:"sequence"`
	ContentHash string `json:"content_hash"`
	Source      string `json:"source,omitempty"`
}

// Entry pairs a chunk id with its embedding and metadata.
type Entry struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
	Meta      Metadata  `json:"meta"`
}

// ScoredEntry is a search hit. Score is cosine similarity in [-1, 1].
type ScoredEntry struct {
	Entry Entry
	Score float64
}

// Index is the vector index contract shared by all backends.
//
// Insert is idempotent for identical content: re-inserting an id with the
// same content hash is a no-op, while the same id with different content
// fails with ErrIDConflict. Search returns at most k entries ordered by
// descending similarity, ties broken by insertion order (earlier first).
// Remove of an absent id is a no-op.
type Index interface {
	Insert(ctx context.Context, entry Entry) error
	Search(ctx context.Context, embedding []float32, k int) ([]ScoredEntry, error)
	Remove(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Dimension() int
}
