package vectorindex

import "errors"

var (
	// ErrIndexUnreachable indicates the vector store cannot be reached.
	ErrIndexUnreachable = errors.New("vector index unreachable")
	// ErrDimensionMismatch indicates a vector whose dimension does not match
	// the index's configured dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
