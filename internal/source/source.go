package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Document is a unit of text ready for chunking and indexing.
type Document struct {
	ID      string   // Deterministic identifier derived from the source locator
	Path    string   // Relative path within the source
	Text    string   // Plain text content
	Outline []string // Header paths for markdown documents, nil otherwise
	Origin  string   // Human-readable origin (file path or raw URL)
}

// Source provides documents from some backing store.
type Source interface {
	// List returns the relative paths of all documents, in a stable order.
	List(ctx context.Context) ([]string, error)

	// Fetch loads a single document by its relative path.
	Fetch(ctx context.Context, relativePath string) (*Document, error)
}

// DocumentID derives a stable identifier from a source locator. The same
// locator always yields the same ID, so re-ingesting a document supersedes
// its previous chunks rather than duplicating them.
func DocumentID(locator string) string {
	sum := sha256.Sum256([]byte(locator))
	return hex.EncodeToString(sum[:])[:16]
}
