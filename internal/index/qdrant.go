package index

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// chunkNamespace seeds the deterministic chunk-id → point-id mapping. Qdrant
// point ids must be UUIDs, so each content-derived chunk id is hashed into a
// stable UUID; re-ingesting an identical chunk upserts the same point.
var chunkNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// QdrantIndex implements Index on a Qdrant collection. Suited to collections
// too large for the embedded brute-force index; Qdrant's HNSW search keeps
// the top-k contract within its documented recall bounds.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewQdrantIndex connects to Qdrant, verifies health with exponential backoff
// and ensures the collection exists with the configured dimensionality. It
// fails with ErrIncompatibleIndex if an existing collection was created with
// a different dimension.
func NewQdrantIndex(host string, port int, collection string, dimension int) (*QdrantIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	idx := &QdrantIndex{client: client, collection: collection, dimension: dimension}

	ctx := context.Background()
	if err := idx.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}
	if err := idx.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return idx, nil
}

func (q *QdrantIndex) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return q.Health(ctx)
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
func (q *QdrantIndex) Health(ctx context.Context) error {
	result, err := q.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// ensureCollection creates the collection if missing, or validates the
// stored vector dimension if present. Idempotent.
func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	collections, err := q.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, name := range collections {
		if name == q.collection {
			info, err := q.client.GetCollectionInfo(ctx, q.collection)
			if err != nil {
				return fmt.Errorf("get collection: %w", err)
			}
			params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
			if params != nil && int(params.GetSize()) != q.dimension {
				return fmt.Errorf("%w: collection %s has dimension %d, configured %d",
					ErrIncompatibleIndex, q.collection, params.GetSize(), q.dimension)
			}
			return nil
		}
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	// Index the document id so RemoveDocument filters stay fast.
	_, err = q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: q.collection,
		FieldName:      "document_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("create document_id index: %w", err)
	}
	return nil
}

// Dimension returns the configured embedding dimension.
func (q *QdrantIndex) Dimension() int { return q.dimension }

// Insert upserts a single chunk. Idempotency rides on the content-derived
// chunk id: the same chunk maps to the same point, so re-ingestion rewrites
// an identical point in place.
func (q *QdrantIndex) Insert(ctx context.Context, entry Entry) error {
	if len(entry.Embedding) != q.dimension {
		return fmt.Errorf("%w: got %d dimensions, index configured for %d",
			ErrDimensionMismatch, len(entry.Embedding), q.dimension)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(PointID(entry.ID)),
		Vectors: qdrant.NewVectors(entry.Embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			"chunk_id":     entry.ID,
			"document_id":  entry.Meta.DocumentID,
			"text":         entry.Meta.Text,
			"start":        entry.Meta.Start,
			"end":          entry.Meta.End,
			"sequence":     entry.Meta.Sequence,
			"content_hash": entry.Meta.ContentHash,
			"source":       entry.Meta.Source,
		}),
	}
	return q.upsertWithRetry(ctx, []*qdrant.PointStruct{point})
}

func (q *QdrantIndex) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection,
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}

// Search returns the top k chunks by cosine similarity.
func (q *QdrantIndex) Search(ctx context.Context, embedding []float32, k int) ([]ScoredEntry, error) {
	if len(embedding) != q.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index configured for %d",
			ErrDimensionMismatch, len(embedding), q.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	hits := make([]ScoredEntry, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		hits = append(hits, ScoredEntry{
			Entry: Entry{
				ID: payload["chunk_id"].GetStringValue(),
				Meta: Metadata{
					DocumentID:  payload["document_id"].GetStringValue(),
					Text:        payload["text"].GetStringValue(),
					Start:       int(payload["start"].GetIntegerValue()),
					End:         int(payload["end"].GetIntegerValue()),
					Sequence:    int(payload["sequence"].GetIntegerValue()),
					ContentHash: payload["content_hash"].GetStringValue(),
					Source:      payload["source"].GetStringValue(),
				},
			},
			Score: float64(result.Score),
		})
	}
	return hits, nil
}

// Remove deletes a chunk by id. Absent ids are a no-op on the Qdrant side.
func (q *QdrantIndex) Remove(ctx context.Context, id string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(PointID(id))),
	})
	if err != nil {
		return fmt.Errorf("delete chunk: %w", err)
	}
	return nil
}

// RemoveDocument deletes every chunk belonging to the document. The removed
// count is not reported by Qdrant's filter delete, so -1 is returned.
func (q *QdrantIndex) RemoveDocument(ctx context.Context, documentID string) (int, error) {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_id", documentID),
			},
		}),
	})
	if err != nil {
		return 0, fmt.Errorf("delete document chunks: %w", err)
	}
	return -1, nil
}

// Count returns the number of stored chunks.
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	info, err := q.client.GetCollectionInfo(ctx, q.collection)
	if err != nil {
		return 0, fmt.Errorf("get collection: %w", err)
	}
	return int(info.GetPointsCount()), nil
}

// ClearCollection drops and recreates the collection. Used for full
// re-ingestion.
func (q *QdrantIndex) ClearCollection(ctx context.Context) error {
	if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return q.ensureCollection(ctx)
}

// Close closes the client connection.
func (q *QdrantIndex) Close() error {
	if q.client != nil {
		return q.client.Close()
	}
	return nil
}

// PointID maps a content-derived chunk id to the stable UUID used as the
// Qdrant point id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(chunkNamespace, []byte(chunkID)).String()
}
