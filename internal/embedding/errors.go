package embedding

import "errors"

var (
	// ErrRateLimited indicates the embedding service rejected the request
	// with a rate limit (retryable with backoff).
	ErrRateLimited = errors.New("embedding service rate limited")
	// ErrServiceUnavailable indicates a transient server-side failure (retryable).
	ErrServiceUnavailable = errors.New("embedding service unavailable")
	// ErrTimeout indicates the caller-supplied deadline expired (retryable).
	ErrTimeout = errors.New("embedding request timed out")
	// ErrInvalidInput indicates a request the service can never accept,
	// such as an empty text (non-retryable).
	ErrInvalidInput = errors.New("invalid embedding input")
)
