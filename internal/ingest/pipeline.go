// Package ingest orchestrates the document pipeline: a Source yields
// documents, the chunker windows them, the embedding provider vectorizes the
// chunks, and the index stores the results. Failures are isolated per
// document so one unreadable file never aborts a whole run.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/corpusqa/internal/chunk"
	"github.com/bull/corpusqa/internal/embedding"
	"github.com/bull/corpusqa/internal/index"
	"github.com/bull/corpusqa/internal/source"
)

// Result contains statistics about an ingestion run.
type Result struct {
	TotalDocs      int
	TotalChunks    int
	SuccessfulDocs int
	FailedDocs     []FailedDoc
	Duration       time.Duration
}

// FailedDoc records a document that could not be ingested and why.
type FailedDoc struct {
	Path   string
	Reason string
}

// documentRemover is implemented by index backends that can drop all chunks
// of a document in one call. Used to supersede a document's previous chunks
// before re-ingesting it.
type documentRemover interface {
	RemoveDocument(ctx context.Context, documentID string) (int, error)
}

// Pipeline wires a document source into the index.
type Pipeline struct {
	source   source.Source
	chunker  *chunk.Chunker
	provider embedding.Provider
	idx      index.Index
	logger   *slog.Logger
}

// NewPipeline creates an ingestion pipeline from its components.
func NewPipeline(
	src source.Source,
	chunker *chunk.Chunker,
	provider embedding.Provider,
	idx index.Index,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:   src,
		chunker:  chunker,
		provider: provider,
		idx:      idx,
		logger:   logger,
	}
}

// IngestAll processes every document the source lists. A document that fails
// at any stage is recorded in FailedDocs and skipped; the run continues.
func (p *Pipeline) IngestAll(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	paths, err := p.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	result.TotalDocs = len(paths)
	p.logger.Info("Starting ingestion", "documents", len(paths))

	for _, path := range paths {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		chunks, err := p.ingestDocument(ctx, path)
		if err != nil {
			p.logger.Warn("Failed to ingest document", "path", path, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{
				Path:   path,
				Reason: err.Error(),
			})
			continue
		}
		result.SuccessfulDocs++
		result.TotalChunks += chunks
	}

	result.Duration = time.Since(start)
	p.logger.Info("Ingestion complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)

	return result, nil
}

// IngestDocument runs the pipeline for a single document by path.
func (p *Pipeline) IngestDocument(ctx context.Context, path string) (int, error) {
	return p.ingestDocument(ctx, path)
}

func (p *Pipeline) ingestDocument(ctx context.Context, path string) (int, error) {
	doc, err := p.source.Fetch(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	p.logger.Debug("Fetched document", "path", path, "size", len(doc.Text))

	chunks := p.chunker.Split(doc.ID, doc.Text)
	if len(chunks) == 0 {
		p.logger.Debug("Document is empty, skipping", "path", path)
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := p.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedding count %d does not match chunk count %d", len(embeddings), len(chunks))
	}

	// Drop any chunks from a previous ingestion of this document before
	// inserting the new ones. Chunk ids are content-derived, so unchanged
	// chunks would be re-inserted as no-ops anyway, but a shrunk or edited
	// document must not leave stale chunks behind.
	if remover, ok := p.idx.(documentRemover); ok {
		removed, err := remover.RemoveDocument(ctx, doc.ID)
		if err != nil {
			return 0, fmt.Errorf("supersede: %w", err)
		}
		if removed > 0 {
			p.logger.Debug("Superseded previous chunks", "path", path, "removed", removed)
		}
	}

	for i, c := range chunks {
		entry := index.Entry{
			ID:        c.ID,
			Embedding: embeddings[i],
			Meta: index.Metadata{
				DocumentID:  c.DocumentID,
				Text:        c.Text,
				Start:       c.Start,
				End:         c.End,
				Sequence:    c.Sequence,
				ContentHash: c.ContentHash,
				Source:      doc.Origin,
			},
		}
		if err := p.idx.Insert(ctx, entry); err != nil {
			return 0, fmt.Errorf("insert chunk %d: %w", c.Sequence, err)
		}
	}

	p.logger.Info("Ingested document", "path", path, "chunks", len(chunks))
	return len(chunks), nil
}
