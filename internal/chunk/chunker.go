// Package chunk splits extracted document text into overlapping fixed-size
// passages with stable, content-derived identities.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Chunk is a bounded contiguous span of a document's text, the unit of
// embedding and retrieval. Start and End are rune offsets into the document,
// End exclusive. ID is deterministic over (document id, offsets, text), so
// re-chunking the same document with the same parameters yields the same ids.
type Chunk struct {
	ID          string
	DocumentID  string
	Text        string
	Start       int
	End         int
	Sequence    int
	ContentHash string
}

// Chunker produces fixed-size windows advancing by size-overlap runes.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the window parameters. Both must be positive and the
// overlap strictly smaller than the window size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, size), got size=%d overlap=%d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split chunks the document text into consecutive windows. The final window
// may be shorter than the configured size; it is never padded. Empty text
// yields an empty slice, not an error.
func (c *Chunker) Split(documentID, text string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	stride := c.size - c.overlap
	var chunks []Chunk
	for start := 0; start < len(runes); start += stride {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		body := string(runes[start:end])
		chunks = append(chunks, Chunk{
			ID:          ChunkID(documentID, start, end, body),
			DocumentID:  documentID,
			Text:        body,
			Start:       start,
			End:         end,
			Sequence:    len(chunks),
			ContentHash: contentHash(body),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Size returns the configured window size in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured window overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }

// ChunkID derives the deterministic chunk identifier from the owning document
// id, the rune offsets and the chunk text. Identical inputs always produce
// the same id, which is what makes re-ingestion idempotent at the index layer.
func ChunkID(documentID string, start, end int, text string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d|%s", documentID, start, end, contentHash(text))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}
