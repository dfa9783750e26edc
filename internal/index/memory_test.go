package index

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func testEntry(id, doc string, embedding []float32) Entry {
	return Entry{
		ID:        id,
		Embedding: embedding,
		Meta: Metadata{
			DocumentID:  doc,
			Text:        "text for " + id,
			ContentHash: "hash-" + id,
		},
	}
}

func TestMemoryIndex_InsertAndCount(t *testing.T) {
	ctx := context.Background()
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatalf("NewMemoryIndex failed: %v", err)
	}

	if err := idx.Insert(ctx, testEntry("a", "doc", []float32{1, 0, 0})); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := idx.Insert(ctx, testEntry("b", "doc", []float32{0, 1, 0})); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	count, err := idx.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}
}

func TestMemoryIndex_DimensionGuard(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewMemoryIndex(3)

	err := idx.Insert(ctx, testEntry("a", "doc", []float32{1, 0}))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch, got %v", err)
	}

	// A rejected insert must leave the index untouched.
	count, _ := idx.Count(ctx)
	if count != 0 {
		t.Errorf("Count changed after rejected insert: %d", count)
	}

	if _, err := idx.Search(ctx, []float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch from search, got %v", err)
	}
}

func TestMemoryIndex_IdempotentInsert(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewMemoryIndex(3)
	entry := testEntry("a", "doc", []float32{1, 0, 0})

	if err := idx.Insert(ctx, entry); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := idx.Insert(ctx, entry); err != nil {
		t.Fatalf("Duplicate insert should be a no-op, got %v", err)
	}
	count, _ := idx.Count(ctx)
	if count != 1 {
		t.Errorf("Expected count 1 after duplicate insert, got %d", count)
	}
}

func TestMemoryIndex_IDConflict(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewMemoryIndex(3)

	if err := idx.Insert(ctx, testEntry("a", "doc", []float32{1, 0, 0})); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	conflicting := testEntry("a", "doc", []float32{0, 1, 0})
	conflicting.Meta.ContentHash = "different"
	if err := idx.Insert(ctx, conflicting); !errors.Is(err, ErrIDConflict) {
		t.Errorf("Expected ErrIDConflict, got %v", err)
	}
}

func TestMemoryIndex_SearchOrdering(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewMemoryIndex(2)

	// Similarities against query (1,0): a=1.0, b=0.0, c~0.707.
	idx.Insert(ctx, testEntry("a", "doc", []float32{1, 0}))
	idx.Insert(ctx, testEntry("b", "doc", []float32{0, 1}))
	idx.Insert(ctx, testEntry("c", "doc", []float32{1, 1}))

	results, err := idx.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	wantOrder := []string{"a", "c", "b"}
	if len(results) != len(wantOrder) {
		t.Fatalf("Expected %d results, got %d", len(wantOrder), len(results))
	}
	for i, want := range wantOrder {
		if results[i].Entry.ID != want {
			t.Errorf("Result %d: expected %s, got %s", i, want, results[i].Entry.ID)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("Results not sorted by descending score at %d", i)
		}
	}
}

func TestMemoryIndex_TieBreakByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewMemoryIndex(2)

	// Identical vectors: all score the same against any query.
	idx.Insert(ctx, testEntry("first", "doc", []float32{1, 1}))
	idx.Insert(ctx, testEntry("second", "doc", []float32{1, 1}))
	idx.Insert(ctx, testEntry("third", "doc", []float32{1, 1}))

	results, err := idx.Search(ctx, []float32{1, 1}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	wantOrder := []string{"first", "second", "third"}
	for i, want := range wantOrder {
		if results[i].Entry.ID != want {
			t.Errorf("Tie-break position %d: expected %s, got %s", i, want, results[i].Entry.ID)
		}
	}
}

func TestMemoryIndex_KLargerThanCount(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewMemoryIndex(2)
	idx.Insert(ctx, testEntry("a", "doc", []float32{1, 0}))
	idx.Insert(ctx, testEntry("b", "doc", []float32{0, 1}))

	results, err := idx.Search(ctx, []float32{1, 0}, 50)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected all 2 entries, got %d", len(results))
	}
	seen := map[string]bool{}
	for _, r := range results {
		if seen[r.Entry.ID] {
			t.Errorf("Entry %s returned more than once", r.Entry.ID)
		}
		seen[r.Entry.ID] = true
	}
}

func TestMemoryIndex_Remove(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewMemoryIndex(2)
	idx.Insert(ctx, testEntry("a", "doc", []float32{1, 0}))
	idx.Insert(ctx, testEntry("b", "doc", []float32{0, 1}))

	if err := idx.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	results, _ := idx.Search(ctx, []float32{1, 0}, 10)
	for _, r := range results {
		if r.Entry.ID == "a" {
			t.Error("Removed entry still returned by search")
		}
	}

	// Absent id is a no-op.
	if err := idx.Remove(ctx, "missing"); err != nil {
		t.Errorf("Remove of absent id should be a no-op, got %v", err)
	}
}

func TestMemoryIndex_RemoveDocument(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewMemoryIndex(2)
	idx.Insert(ctx, testEntry("a1", "doc-a", []float32{1, 0}))
	idx.Insert(ctx, testEntry("a2", "doc-a", []float32{0, 1}))
	idx.Insert(ctx, testEntry("b1", "doc-b", []float32{1, 1}))

	removed, err := idx.RemoveDocument(ctx, "doc-a")
	if err != nil {
		t.Fatalf("RemoveDocument failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}
	count, _ := idx.Count(ctx)
	if count != 1 {
		t.Errorf("Expected 1 remaining entry, got %d", count)
	}
}

func TestMemoryIndex_PersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.json")

	idx, _ := NewMemoryIndex(3)
	idx.Insert(ctx, testEntry("a", "doc", []float32{1, 0, 0}))
	idx.Insert(ctx, testEntry("b", "doc", []float32{0, 1, 0}))
	idx.Insert(ctx, testEntry("c", "doc", []float32{0.5, 0.5, 0}))

	if err := idx.Persist(path); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	loaded, err := LoadMemoryIndex(path, 3)
	if err != nil {
		t.Fatalf("LoadMemoryIndex failed: %v", err)
	}

	origCount, _ := idx.Count(ctx)
	loadedCount, _ := loaded.Count(ctx)
	if origCount != loadedCount {
		t.Errorf("Count differs after round-trip: %d vs %d", origCount, loadedCount)
	}
	if loaded.Dimension() != idx.Dimension() {
		t.Errorf("Dimension differs after round-trip: %d vs %d", idx.Dimension(), loaded.Dimension())
	}

	probe := []float32{0.9, 0.1, 0}
	origResults, _ := idx.Search(ctx, probe, 3)
	loadedResults, _ := loaded.Search(ctx, probe, 3)
	if len(origResults) != len(loadedResults) {
		t.Fatalf("Result counts differ: %d vs %d", len(origResults), len(loadedResults))
	}
	for i := range origResults {
		if origResults[i].Entry.ID != loadedResults[i].Entry.ID {
			t.Errorf("Result %d differs: %s vs %s", i, origResults[i].Entry.ID, loadedResults[i].Entry.ID)
		}
		if origResults[i].Score != loadedResults[i].Score {
			t.Errorf("Score %d differs: %v vs %v", i, origResults[i].Score, loadedResults[i].Score)
		}
	}
}

func TestLoadMemoryIndex_IncompatibleDimension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	idx, _ := NewMemoryIndex(3)
	idx.Insert(context.Background(), testEntry("a", "doc", []float32{1, 0, 0}))
	if err := idx.Persist(path); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	if _, err := LoadMemoryIndex(path, 5); !errors.Is(err, ErrIncompatibleIndex) {
		t.Errorf("Expected ErrIncompatibleIndex, got %v", err)
	}
}

// TestMemoryIndex_ConcurrentReadWrite exercises the readers-writer discipline
// under the race detector: concurrent searches during ingestion must never
// observe a half-applied entry.
func TestMemoryIndex_ConcurrentReadWrite(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewMemoryIndex(4)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				entry := testEntry(id, fmt.Sprintf("doc-%d", w), []float32{float32(i), 1, 2, 3})
				if err := idx.Insert(ctx, entry); err != nil {
					t.Errorf("Insert %s failed: %v", id, err)
				}
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				results, err := idx.Search(ctx, []float32{1, 1, 1, 1}, 5)
				if err != nil {
					t.Errorf("Search failed: %v", err)
				}
				for _, r := range results {
					if len(r.Entry.Embedding) != 4 {
						t.Errorf("Search observed malformed entry %s", r.Entry.ID)
					}
				}
			}
		}()
	}
	wg.Wait()

	count, _ := idx.Count(ctx)
	if count != 200 {
		t.Errorf("Expected 200 entries, got %d", count)
	}
}
