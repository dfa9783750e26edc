package chunk

import (
	"strings"
	"testing"
)

// TestSplit_ReferenceOffsets checks the canonical 900-rune example:
// size 300 with overlap 50 produces four windows at a stride of 250.
func TestSplit_ReferenceOffsets(t *testing.T) {
	text := strings.Repeat("a", 900)

	chunker, err := NewChunker(300, 50)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}
	chunks := chunker.Split("doc-1", text)

	expected := [][2]int{{0, 300}, {250, 550}, {500, 800}, {750, 900}}
	if len(chunks) != len(expected) {
		t.Fatalf("Expected %d chunks, got %d", len(expected), len(chunks))
	}
	for i, want := range expected {
		if chunks[i].Start != want[0] || chunks[i].End != want[1] {
			t.Errorf("Chunk %d: expected [%d,%d), got [%d,%d)", i, want[0], want[1], chunks[i].Start, chunks[i].End)
		}
		if chunks[i].Sequence != i {
			t.Errorf("Chunk %d: expected sequence %d, got %d", i, i, chunks[i].Sequence)
		}
	}
}

// TestSplit_Coverage verifies the windows cover the whole document with no
// gaps and that consecutive windows overlap by exactly the configured amount.
func TestSplit_Coverage(t *testing.T) {
	cases := []struct {
		name    string
		length  int
		size    int
		overlap int
	}{
		{"exact multiple", 1000, 250, 0},
		{"with overlap", 900, 300, 50},
		{"short tail", 730, 200, 40},
		{"single window", 100, 300, 50},
		{"one rune", 1, 10, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text := strings.Repeat("x", tc.length)
			chunker, err := NewChunker(tc.size, tc.overlap)
			if err != nil {
				t.Fatalf("NewChunker failed: %v", err)
			}
			chunks := chunker.Split("doc", text)

			if len(chunks) == 0 {
				t.Fatal("Expected at least one chunk")
			}
			if chunks[0].Start != 0 {
				t.Errorf("First chunk starts at %d, expected 0", chunks[0].Start)
			}
			if chunks[len(chunks)-1].End != tc.length {
				t.Errorf("Last chunk ends at %d, expected %d", chunks[len(chunks)-1].End, tc.length)
			}
			for i := 1; i < len(chunks); i++ {
				gap := chunks[i].Start - chunks[i-1].End
				if gap > 0 {
					t.Errorf("Gap of %d runes between chunks %d and %d", gap, i-1, i)
				}
				overlap := chunks[i-1].End - chunks[i].Start
				if i < len(chunks)-1 && overlap != tc.overlap {
					t.Errorf("Chunks %d/%d overlap by %d, expected %d", i-1, i, overlap, tc.overlap)
				}
			}
		})
	}
}

// TestSplit_EmptyDocument verifies empty text yields no chunks and no error.
func TestSplit_EmptyDocument(t *testing.T) {
	chunker, err := NewChunker(300, 50)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}
	if chunks := chunker.Split("doc", ""); len(chunks) != 0 {
		t.Errorf("Expected 0 chunks for empty text, got %d", len(chunks))
	}
}

// TestSplit_DeterministicIDs verifies re-chunking produces identical ids and
// that ids depend on document id, offsets and content.
func TestSplit_DeterministicIDs(t *testing.T) {
	text := strings.Repeat("the quick brown fox. ", 60)
	chunker, err := NewChunker(120, 20)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}

	first := chunker.Split("doc-a", text)
	second := chunker.Split("doc-a", text)
	if len(first) != len(second) {
		t.Fatalf("Chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("Chunk %d id not stable: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}

	other := chunker.Split("doc-b", text)
	if first[0].ID == other[0].ID {
		t.Error("Chunk ids should differ across documents")
	}
}

func TestNewChunker_RejectsBadParameters(t *testing.T) {
	if _, err := NewChunker(0, 0); err == nil {
		t.Error("Expected error for zero size")
	}
	if _, err := NewChunker(100, 100); err == nil {
		t.Error("Expected error for overlap == size")
	}
	if _, err := NewChunker(100, -1); err == nil {
		t.Error("Expected error for negative overlap")
	}
}

func TestSplit_UnicodeOffsetsAreRunes(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 30) // multibyte runes
	chunker, err := NewChunker(50, 10)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}
	chunks := chunker.Split("doc", text)
	for i, c := range chunks {
		if got := len([]rune(c.Text)); got != c.End-c.Start {
			t.Errorf("Chunk %d: text length %d runes, offsets span %d", i, got, c.End-c.Start)
		}
	}
}
