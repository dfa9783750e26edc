package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// OpenAIModel is the embedding model used for all vectors.
	OpenAIModel = "text-embedding-3-small"

	// OpenAIDimension is the vector dimension for text-embedding-3-small.
	OpenAIDimension = 1536

	// DefaultBatchSize balances requests-per-minute vs tokens-per-minute rate
	// limits. OpenAI supports up to 2048 texts per batch, but smaller batches
	// reduce TPM pressure.
	DefaultBatchSize = 500
)

// OpenAIProvider generates embeddings with OpenAI's text-embedding-3-small.
// Requests are batched and retried with exponential backoff on rate limits.
type OpenAIProvider struct {
	client    *openai.Client
	batchSize int
}

// NewOpenAIProvider creates a provider reading OPENAI_API_KEY from the
// environment. A batchSize of 0 uses DefaultBatchSize.
func NewOpenAIProvider(batchSize int) (*OpenAIProvider, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY environment variable not set", ErrUnavailable)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	client := openai.NewClient()
	return &OpenAIProvider{client: &client, batchSize: batchSize}, nil
}

// Client returns the underlying OpenAI client for reuse by other capability
// adapters (the abstractive synthesizer shares it).
func (p *OpenAIProvider) Client() *openai.Client {
	return p.client
}

// Dimension returns the fixed vector dimension.
func (p *OpenAIProvider) Dimension() int { return OpenAIDimension }

// Embed generates a vector for a single text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates vectors for the given texts, preserving order.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var all [][]float32
	for i := 0; i < len(texts); i += p.batchSize {
		end := min(i+p.batchSize, len(texts))
		batch, err := p.embedBatchWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, batch...)
	}
	return all, nil
}

// embedBatchWithRetry embeds one batch, retrying with exponential backoff on
// rate limit errors (HTTP 429). Other API errors are permanent and surface as
// ErrUnavailable so callers can degrade.
func (p *OpenAIProvider) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32

	operation := func() error {
		resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: OpenAIModel,
		})
		if err != nil {
			if isRateLimitError(err) {
				return err // retried with backoff
			}
			return backoff.Permanent(err)
		}
		embeddings = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			embeddings[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return embeddings, nil
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts the API's float64 response to the float32 the index
// stores.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
