// Package embedding converts text into fixed-dimension vectors.
//
// Provider is a capability interface with two variants: OpenAIProvider for
// deployments and LocalProvider for development and tests. All vectors of a
// deployment share one dimensionality; stores fail fast on mismatch.
package embedding

import (
	"context"
	"fmt"
)

// Provider generates embeddings for documents and queries.
type Provider interface {
	// EmbedDocuments embeds texts in one batched call. The result is
	// order-preserving and has the same length as texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension reports the vector dimensionality this provider produces.
	Dimension() int
}

// EmbeddingError reports a provider failure after its retry budget is
// exhausted. It aborts the enclosing ingest or query.
type EmbeddingError struct {
	Provider string
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding provider %s failed: %v", e.Provider, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}
