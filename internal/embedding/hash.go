package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultHashDimension keeps the local embedder cheap while leaving enough
// buckets to separate typical document vocabularies.
const DefaultHashDimension = 256

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// HashProvider is the always-available local embedder. It feature-hashes
// lowercased tokens into a fixed number of buckets and L2-normalizes the
// result. The vectors carry only lexical signal, not semantics; the provider
// exists so ingestion and retrieval keep working when no model-backed
// capability is configured, and as a deterministic stand-in for tests.
type HashProvider struct {
	dimension int
}

// NewHashProvider creates a provider with the given bucket count. A
// non-positive dimension uses DefaultHashDimension.
func NewHashProvider(dimension int) *HashProvider {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashProvider{dimension: dimension}
}

// Dimension returns the configured bucket count.
func (p *HashProvider) Dimension() int { return p.dimension }

// Embed generates a deterministic vector for the text. Identical input
// always yields an identical vector.
func (p *HashProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, p.dimension)
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	for _, token := range tokens {
		h := fnv.New32a()
		h.Write([]byte(token))
		bucket := int(h.Sum32()) % p.dimension
		if bucket < 0 {
			bucket += p.dimension
		}
		vec[bucket]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := 1 / math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) * inv)
		}
	}
	return vec, nil
}

// EmbedBatch generates vectors for multiple texts, preserving order.
func (p *HashProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}
