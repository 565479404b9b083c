package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// LocalProvider is the development variant of Provider. It produces
// deterministic vectors from token hashes: no network, no API key, stable
// across runs, and similar texts land near each other because they share
// token buckets. Not suitable for production retrieval quality.
type LocalProvider struct {
	dimension int
}

// NewLocalProvider creates a local provider with the given dimensionality.
// dimension <= 0 selects 256.
func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = 256
	}
	return &LocalProvider{dimension: dimension}
}

// Dimension reports the configured vector dimensionality.
func (p *LocalProvider) Dimension() int {
	return p.dimension
}

// EmbedDocuments embeds each text independently, preserving order.
func (p *LocalProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, &EmbeddingError{Provider: "local", Err: err}
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = p.embed(text)
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (p *LocalProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, &EmbeddingError{Provider: "local", Err: err}
	}
	return p.embed(text), nil
}

func (p *LocalProvider) embed(text string) []float32 {
	vec := make([]float32, p.dimension)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, token := range tokens {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[int(h.Sum32())%p.dimension]++
	}

	// L2-normalize so cosine similarity behaves like the real providers.
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}
