package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// EmbeddingModel is the OpenAI model used for generating embeddings.
	EmbeddingModel = "text-embedding-3-small"

	// EmbeddingDimension is the vector dimension for text-embedding-3-small.
	// Vectors from different models are never mixed in one index, so this
	// must match the index's configured dimension.
	EmbeddingDimension = 1536
)

// Client is the boundary to an external embedding service: a list of texts
// in, a list of vectors out in the same order. The Embedder batches and
// retries on top of this; tests substitute fakes.
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIClient implements Client against the OpenAI embeddings API.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates an embedding client with the given API key.
// The key is passed explicitly rather than read from the environment so
// construction stays testable and configuration stays in one place.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{client: &client}, nil
}

// OpenAI exposes the underlying client so other packages (generation) can
// share one configured API client instead of constructing their own.
func (c *OpenAIClient) OpenAI() *openai.Client {
	return c.client
}

// Embed requests embeddings for the given texts in a single API call.
// Transport failures are mapped onto the package error taxonomy.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: EmbeddingModel,
	})
	if err != nil {
		return nil, classify(err)
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = toFloat32(data.Embedding)
	}
	return embeddings, nil
}

// classify maps transport-level errors onto the package taxonomy so callers
// can decide retryability without knowing about the OpenAI SDK.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case apiErr.StatusCode >= 500:
			return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		case apiErr.StatusCode == 400:
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	return err
}

// toFloat32 converts []float64 to []float32.
// The API returns float64, but the index stores float32 for memory efficiency.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
