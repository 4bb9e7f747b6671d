// Package vectorindex stores chunk embeddings and answers nearest-neighbor
// queries. Two implementations exist: Qdrant for production and Memory for
// tests and local runs without a Qdrant instance.
package vectorindex

import "context"

// Payload is the chunk metadata stored alongside each vector and returned
// with query results.
type Payload struct {
	DocumentID string
	ChunkIndex int
	Text       string
	Start      int // Rune offset of the chunk in the extracted text
	End        int
	Model      string // Embedding model identifier that produced the vector
}

// Point is an (id, vector, metadata) tuple for upsert.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Scored is a query hit. Results are ordered by descending similarity.
type Scored struct {
	ID      string
	Score   float64
	Payload Payload
}

// Index is the vector-store boundary. Upsert is idempotent by point ID:
// re-upserting an existing ID replaces the prior entry. Query returns at
// most k results ordered by descending cosine similarity. DeleteDocument
// removes every point belonging to one document.
type Index interface {
	Upsert(ctx context.Context, points []Point) error
	Query(ctx context.Context, vector []float32, k int) ([]Scored, error)
	DeleteDocument(ctx context.Context, documentID string) error
	Health(ctx context.Context) error
}
