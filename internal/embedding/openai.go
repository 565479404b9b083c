package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultModel is the embedding model used for deployments.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimension is the vector dimension for text-embedding-3-small.
	DefaultDimension = 1536

	// DefaultBatchSize balances requests-per-minute vs tokens-per-minute
	// rate limits. OpenAI accepts up to 2048 texts per batch.
	DefaultBatchSize = 500

	// maxAttempts is the per-batch retry budget.
	maxAttempts = 3
)

// OpenAIProvider implements Provider against the OpenAI embeddings API.
// Requests are batched and retried with exponential backoff on rate limits.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	dimension int
	batchSize int
}

// NewOpenAIProvider creates a provider for the given API key and model.
// Empty model and non-positive dimension/batchSize select the defaults.
func NewOpenAIProvider(apiKey, model string, dimension, batchSize int) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key not set")
	}
	if model == "" {
		model = DefaultModel
	}
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &OpenAIProvider{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		dimension: dimension,
		batchSize: batchSize,
	}, nil
}

// Dimension reports the configured vector dimensionality.
func (p *OpenAIProvider) Dimension() int {
	return p.dimension
}

// EmbedDocuments embeds texts in batches, preserving input order.
func (p *OpenAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += p.batchSize {
		end := min(i+p.batchSize, len(texts))

		vectors, err := p.embedBatchWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, &EmbeddingError{Provider: "openai", Err: fmt.Errorf("batch %d-%d: %w", i, end, err)}
		}
		all = append(all, vectors...)
	}

	return all, nil
}

// EmbedQuery embeds a single query string.
func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, &EmbeddingError{Provider: "openai", Err: fmt.Errorf("expected 1 vector, got %d", len(vectors))}
	}
	return vectors[0], nil
}

// embedBatchWithRetry embeds one batch, retrying rate-limit errors with
// exponential backoff up to the retry budget. Other errors are permanent.
func (p *OpenAIProvider) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	operation := func() error {
		params := openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model:      openai.EmbeddingModel(p.model),
			Dimensions: openai.Int(int64(p.dimension)),
		}

		resp, err := p.client.Embeddings.New(ctx, params)
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("embedded %d texts, got %d vectors", len(texts), len(resp.Data)))
		}

		vectors = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vectors[i] = toFloat32(data.Embedding)
			if len(vectors[i]) != p.dimension {
				return backoff.Permanent(fmt.Errorf("vector %d has %d dimensions, expected %d", i, len(vectors[i]), p.dimension))
			}
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, maxAttempts-1), ctx))
	return vectors, err
}

// isRateLimitError checks for HTTP 429 from the API.
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts the API's float64 vectors to float32 for storage.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
