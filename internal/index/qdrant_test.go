//go:build integration

package index

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 8

// setupTestIndex creates a Qdrant-backed index against a throwaway
// collection. Skips the test if Qdrant is not running.
func setupTestIndex(t *testing.T) *QdrantIndex {
	collection := "corpusqa-test-" + uuid.New().String()
	idx, err := NewQdrantIndex("localhost", 6334, collection, testDimension)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	t.Cleanup(func() {
		_ = idx.client.DeleteCollection(context.Background(), collection)
		idx.Close()
	})
	return idx
}

func qdrantEntry(id, doc string, embedding []float32) Entry {
	return Entry{
		ID:        id,
		Embedding: embedding,
		Meta: Metadata{
			DocumentID:  doc,
			Text:        "passage for " + id,
			Start:       0,
			End:         100,
			Sequence:    0,
			ContentHash: "hash-" + id,
			Source:      "test.txt",
		},
	}
}

func TestQdrantIndex_InsertSearchRoundTrip(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	embedding := make([]float32, testDimension)
	embedding[0] = 1
	entry := qdrantEntry("chunk-a", "doc-1", embedding)

	require.NoError(t, idx.Insert(ctx, entry))

	hits, err := idx.Search(ctx, embedding, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	got := hits[0].Entry
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, entry.Meta.DocumentID, got.Meta.DocumentID)
	assert.Equal(t, entry.Meta.Text, got.Meta.Text)
	assert.Equal(t, entry.Meta.End, got.Meta.End)
	assert.Equal(t, entry.Meta.ContentHash, got.Meta.ContentHash)
	assert.Equal(t, entry.Meta.Source, got.Meta.Source)
	assert.Greater(t, hits[0].Score, 0.99)
}

func TestQdrantIndex_IdempotentInsert(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	embedding := make([]float32, testDimension)
	embedding[1] = 1
	entry := qdrantEntry("chunk-b", "doc-1", embedding)

	require.NoError(t, idx.Insert(ctx, entry))
	require.NoError(t, idx.Insert(ctx, entry))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "re-inserting the same chunk must not duplicate it")
}

func TestQdrantIndex_DimensionGuard(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	err := idx.Insert(ctx, qdrantEntry("bad", "doc", make([]float32, testDimension+1)))
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	_, err = idx.Search(ctx, make([]float32, testDimension-1), 3)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}

func TestQdrantIndex_RemoveDocument(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		embedding := make([]float32, testDimension)
		embedding[i] = 1
		entry := qdrantEntry(uuid.New().String(), "doc-gone", embedding)
		entry.Meta.Sequence = i
		require.NoError(t, idx.Insert(ctx, entry))
	}
	other := qdrantEntry("keeper", "doc-kept", make([]float32, testDimension))
	other.Embedding[7] = 1
	require.NoError(t, idx.Insert(ctx, other))

	_, err := idx.RemoveDocument(ctx, "doc-gone")
	require.NoError(t, err)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
