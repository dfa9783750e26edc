package index

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemoryIndex is an embedded brute-force vector index. Every stored embedding
// is compared against the query with true cosine similarity, which keeps the
// top-k contract exact for collections up to low tens of thousands of chunks.
//
// Reads run concurrently; inserts and removals take the write lock, so an
// in-flight search sees either the pre- or post-write state, never a
// partially applied entry.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]*Entry
	order     []string // insertion order, for deterministic tie-breaking
}

// NewMemoryIndex creates an empty index configured for the given embedding
// dimension.
func NewMemoryIndex(dimension int) (*MemoryIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	return &MemoryIndex{
		dimension: dimension,
		entries:   make(map[string]*Entry),
	}, nil
}

// Dimension returns the configured embedding dimension.
func (m *MemoryIndex) Dimension() int { return m.dimension }

// Insert stores an entry. Re-inserting an id with identical content is a
// no-op; the same id with a different content hash fails with ErrIDConflict.
// Ids are content-derived, so a conflict indicates a hash collision or a
// caller bug, not a normal condition.
func (m *MemoryIndex) Insert(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(entry.Embedding) != m.dimension {
		return fmt.Errorf("%w: got %d dimensions, index configured for %d",
			ErrDimensionMismatch, len(entry.Embedding), m.dimension)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[entry.ID]; ok {
		if existing.Meta.ContentHash != entry.Meta.ContentHash {
			return fmt.Errorf("%w: id %s", ErrIDConflict, entry.ID)
		}
		// Identical chunk re-ingested; keep the original slot.
		return nil
	}

	stored := entry
	stored.Embedding = append([]float32(nil), entry.Embedding...)
	m.entries[entry.ID] = &stored
	m.order = append(m.order, entry.ID)
	return nil
}

// Search returns the top k entries by descending cosine similarity. A k
// larger than the index size returns every entry. Ties are broken by
// insertion order, earlier entries first.
func (m *MemoryIndex) Search(ctx context.Context, embedding []float32, k int) ([]ScoredEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(embedding) != m.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index configured for %d",
			ErrDimensionMismatch, len(embedding), m.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type hit struct {
		pos   int // insertion position, the tie-breaker
		score float64
	}
	hits := make([]hit, 0, len(m.order))
	for pos, id := range m.order {
		hits = append(hits, hit{pos: pos, score: cosine(embedding, m.entries[id].Embedding)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].pos < hits[j].pos
	})

	if k > len(hits) {
		k = len(hits)
	}
	results := make([]ScoredEntry, 0, k)
	for _, h := range hits[:k] {
		results = append(results, ScoredEntry{Entry: *m.entries[m.order[h.pos]], Score: h.score})
	}
	return results, nil
}

// Remove deletes an entry. Removing an absent id is a no-op.
func (m *MemoryIndex) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return nil
	}
	delete(m.entries, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// RemoveDocument deletes every chunk belonging to the given document and
// returns how many were removed. Used when a document is superseded by
// re-ingestion.
func (m *MemoryIndex) RemoveDocument(ctx context.Context, documentID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.order[:0]
	removed := 0
	for _, id := range m.order {
		if m.entries[id].Meta.DocumentID == documentID {
			delete(m.entries, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return removed, nil
}

// Count returns the number of stored entries.
func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order), nil
}

// DocumentCounts returns the number of chunks stored per document id.
func (m *MemoryIndex) DocumentCounts(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[string]int)
	for _, id := range m.order {
		counts[m.entries[id].Meta.DocumentID]++
	}
	return counts, nil
}

// indexFile is the on-disk representation. Entries are stored in insertion
// order so a loaded index preserves the search tie-break behavior.
type indexFile struct {
	Dimension int     `json:"dimension"`
	Metric    string  `json:"metric"`
	Entries   []Entry `json:"entries"`
}

// Persist writes the full index to path, replacing any previous file. The
// write goes through a temp file and rename so a crash never leaves a
// half-written index behind.
func (m *MemoryIndex) Persist(path string) error {
	m.mu.RLock()
	file := indexFile{
		Dimension: m.dimension,
		Metric:    MetricCosine,
		Entries:   make([]Entry, 0, len(m.order)),
	}
	for _, id := range m.order {
		file.Entries = append(file.Entries, *m.entries[id])
	}
	m.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// LoadMemoryIndex restores a persisted index. It fails with
// ErrIncompatibleIndex if the stored dimensionality or metric differs from
// the caller's configuration.
func LoadMemoryIndex(path string, dimension int) (*MemoryIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	var file indexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if file.Dimension != dimension {
		return nil, fmt.Errorf("%w: stored dimension %d, configured %d",
			ErrIncompatibleIndex, file.Dimension, dimension)
	}
	if file.Metric != MetricCosine {
		return nil, fmt.Errorf("%w: stored metric %q, expected %q",
			ErrIncompatibleIndex, file.Metric, MetricCosine)
	}

	idx, err := NewMemoryIndex(dimension)
	if err != nil {
		return nil, err
	}
	for _, entry := range file.Entries {
		if err := idx.Insert(context.Background(), entry); err != nil {
			return nil, fmt.Errorf("restore entry %s: %w", entry.ID, err)
		}
	}
	return idx, nil
}

// cosine computes true cosine similarity. Zero vectors score zero against
// everything.
func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
