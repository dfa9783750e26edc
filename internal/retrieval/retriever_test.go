package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/bull/corpusqa/internal/embedding"
	"github.com/bull/corpusqa/internal/index"
)

// failingProvider simulates an unavailable embedding capability.
type failingProvider struct{}

func (failingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, embedding.ErrUnavailable
}

func (failingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, embedding.ErrUnavailable
}

func (failingProvider) Dimension() int { return 4 }

func TestRetrieve_ReturnsNearestChunks(t *testing.T) {
	ctx := context.Background()
	provider := embedding.NewHashProvider(64)
	idx, err := index.NewMemoryIndex(provider.Dimension())
	if err != nil {
		t.Fatalf("NewMemoryIndex failed: %v", err)
	}

	passages := map[string]string{
		"c1": "the invoice is due within thirty days of receipt",
		"c2": "employees accrue vacation time each calendar month",
		"c3": "the office dog is named biscuit",
	}
	for id, text := range passages {
		vec, err := provider.Embed(ctx, text)
		if err != nil {
			t.Fatalf("Embed failed: %v", err)
		}
		err = idx.Insert(ctx, index.Entry{
			ID:        id,
			Embedding: vec,
			Meta:      index.Metadata{DocumentID: "doc", Text: text, ContentHash: id},
		})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	retriever := New(provider, idx)
	results, err := retriever.Retrieve(ctx, "when is the invoice due", 2)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Entry.ID != "c1" {
		t.Errorf("Expected invoice passage first, got %s", results[0].Entry.ID)
	}
	if results[0].Score < results[1].Score {
		t.Error("Results not ordered by descending score")
	}
}

func TestRetrieve_PropagatesEmbeddingUnavailable(t *testing.T) {
	idx, _ := index.NewMemoryIndex(4)
	retriever := New(failingProvider{}, idx)

	_, err := retriever.Retrieve(context.Background(), "anything", 3)
	if !errors.Is(err, embedding.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable to propagate, got %v", err)
	}
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	ctx := context.Background()
	provider := embedding.NewHashProvider(32)
	idx, _ := index.NewMemoryIndex(provider.Dimension())
	for i, text := range []string{"alpha one", "beta two", "gamma three", "delta four", "epsilon five", "zeta six"} {
		vec, _ := provider.Embed(ctx, text)
		idx.Insert(ctx, index.Entry{
			ID:        text,
			Embedding: vec,
			Meta:      index.Metadata{DocumentID: "doc", Text: text, Sequence: i, ContentHash: text},
		})
	}

	retriever := New(provider, idx)
	results, err := retriever.Retrieve(ctx, "alpha", 0)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != DefaultTopK {
		t.Errorf("Expected %d results for k=0, got %d", DefaultTopK, len(results))
	}
}
