// Package embedding turns chunk texts into fixed-dimension vectors via an
// external embedding service, batching requests and retrying transient
// failures with exponential backoff.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultBatchSize balances requests-per-minute vs tokens-per-minute rate
// limits. The API supports up to 2048 texts per batch, but smaller batches
// reduce TPM pressure.
const DefaultBatchSize = 500

// RetryPolicy bounds the retry loop around transient embedding failures.
// Tests inject millisecond intervals so retry behavior is verifiable
// without real delays.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy retries transient failures up to 3 attempts total.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Embedder generates embeddings for batches of texts, preserving input
// order 1:1. Oversized batches are split into sequential sub-batches and
// the results concatenated in order; a failed sub-batch surfaces its index
// range so the caller can retry only that portion.
type Embedder struct {
	client    Client
	batchSize int
	policy    RetryPolicy
}

// NewEmbedder creates an Embedder over the given client.
// A batchSize of 0 selects DefaultBatchSize.
func NewEmbedder(client Client, batchSize int, policy RetryPolicy) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &Embedder{
		client:    client,
		batchSize: batchSize,
		policy:    policy,
	}
}

// Embed generates embeddings for the given texts, order preserved.
// Empty texts fail immediately with ErrInvalidInput before any network call.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: text %d is empty", ErrInvalidInput, i)
		}
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))

		embeddings, err := e.embedBatchWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("sub-batch %d-%d: %w", i, end, err)
		}
		all = append(all, embeddings...)
	}

	return all, nil
}

// embedBatchWithRetry generates embeddings for one sub-batch, retrying
// transient errors per the policy. Non-retryable errors fail immediately.
func (e *Embedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32

	operation := func() error {
		result, err := e.client.Embed(ctx, texts)
		if err != nil {
			if retryable(err) {
				return err // Will retry with backoff
			}
			return backoff.Permanent(err)
		}
		if len(result) != len(texts) {
			return backoff.Permanent(fmt.Errorf(
				"embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(result)))
		}
		embeddings = result
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.policy.InitialInterval
	b.MaxInterval = e.policy.MaxInterval
	b.MaxElapsedTime = 0 // Bounded by attempt count, not wall clock

	err := backoff.Retry(operation, backoff.WithMaxRetries(
		backoff.WithContext(b, ctx), uint64(e.policy.MaxAttempts-1)))
	if err != nil {
		return nil, err
	}
	return embeddings, nil
}

// retryable reports whether an error is transient per the taxonomy.
func retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
