//go:build integration

package vectorindex

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const integrationDimension = 1536

// setupTestIndex connects to a local Qdrant and ensures the collection exists.
// Skips the test if Qdrant is not running.
func setupTestIndex(t *testing.T) *Qdrant {
	idx, err := NewQdrant("localhost", 6334, integrationDimension)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	err = idx.EnsureCollection(context.Background())
	require.NoError(t, err, "Failed to ensure collection")

	return idx
}

// testVector builds a vector with a distinctive spike so points from one test
// do not collide with points left behind by other tests in the shared collection.
func testVector(spike int) []float32 {
	v := make([]float32, integrationDimension)
	for i := range v {
		v[i] = 0.01
	}
	v[spike%integrationDimension] = 5.0
	return v
}

// findByID returns the hit with the given ID, or nil.
func findByID(hits []Scored, id string) *Scored {
	for i := range hits {
		if hits[i].ID == id {
			return &hits[i]
		}
	}
	return nil
}

func TestQdrant_EnsureCollectionIdempotent(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()

	ctx := context.Background()

	// Repeat calls must be no-ops, not failures.
	require.NoError(t, idx.EnsureCollection(ctx))
	require.NoError(t, idx.EnsureCollection(ctx))

	info, err := idx.GetCollectionInfo(ctx)
	require.NoError(t, err, "Failed to get collection info")
	assert.NotNil(t, info)
}

func TestQdrant_UpsertQueryRoundTrip(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()

	ctx := context.Background()
	docID := "doc-" + uuid.New().String()
	pointID := uuid.New().String()
	vector := testVector(7)

	point := Point{
		ID:     pointID,
		Vector: vector,
		Payload: Payload{
			DocumentID: docID,
			ChunkIndex: 3,
			Text:       "Entropy always increases in an isolated system.",
			Start:      350,
			End:        420,
			Model:      "text-embedding-3-small",
		},
	}
	require.NoError(t, idx.Upsert(ctx, []Point{point}), "Failed to upsert point")

	// Qdrant indexes asynchronously.
	time.Sleep(100 * time.Millisecond)

	hits, err := idx.Query(ctx, vector, 10)
	require.NoError(t, err, "Failed to query")

	hit := findByID(hits, pointID)
	require.NotNil(t, hit, "Upserted point not found in query results")
	assert.Equal(t, point.Payload, hit.Payload)
	assert.Greater(t, hit.Score, 0.0)
	assert.LessOrEqual(t, hit.Score, 1.0001)
}

func TestQdrant_UpsertIdempotent(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()

	ctx := context.Background()
	docID := "doc-" + uuid.New().String()
	pointID := uuid.New().String()
	vector := testVector(11)

	point := Point{
		ID:     pointID,
		Vector: vector,
		Payload: Payload{DocumentID: docID, ChunkIndex: 0, Text: "first version"},
	}
	require.NoError(t, idx.Upsert(ctx, []Point{point}))

	point.Payload.Text = "second version"
	require.NoError(t, idx.Upsert(ctx, []Point{point}))

	time.Sleep(100 * time.Millisecond)

	hits, err := idx.Query(ctx, vector, 20)
	require.NoError(t, err)

	occurrences := 0
	for _, h := range hits {
		if h.ID == pointID {
			occurrences++
			assert.Equal(t, "second version", h.Payload.Text, "Re-upsert must replace the payload")
		}
	}
	assert.Equal(t, 1, occurrences, "Re-upserting the same ID must leave exactly one entry")
}

func TestQdrant_DeleteDocumentFiltering(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()

	ctx := context.Background()
	docA := "doc-" + uuid.New().String()
	docB := "doc-" + uuid.New().String()
	vector := testVector(23)

	err := idx.Upsert(ctx, []Point{
		{ID: uuid.New().String(), Vector: vector, Payload: Payload{DocumentID: docA, ChunkIndex: 0, Text: "a0"}},
		{ID: uuid.New().String(), Vector: vector, Payload: Payload{DocumentID: docA, ChunkIndex: 1, Text: "a1"}},
		{ID: uuid.New().String(), Vector: vector, Payload: Payload{DocumentID: docB, ChunkIndex: 0, Text: "b0"}},
	})
	require.NoError(t, err)

	require.NoError(t, idx.DeleteDocument(ctx, docA), "Failed to delete document")
	time.Sleep(100 * time.Millisecond)

	hits, err := idx.Query(ctx, vector, 50)
	require.NoError(t, err)

	survivorFound := false
	for _, h := range hits {
		assert.NotEqual(t, docA, h.Payload.DocumentID, "Deleted document's chunks must not survive")
		if h.Payload.DocumentID == docB {
			survivorFound = true
		}
	}
	assert.True(t, survivorFound, "Other documents' chunks must survive the delete")
}

func TestQdrant_DimensionValidation(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()

	ctx := context.Background()

	wrong := Point{
		ID:      uuid.New().String(),
		Vector:  make([]float32, 512),
		Payload: Payload{DocumentID: "doc", ChunkIndex: 0, Text: "wrong dimension"},
	}
	err := idx.Upsert(ctx, []Point{wrong})
	assert.ErrorIs(t, err, ErrDimensionMismatch, "Should reject wrong vector dimension")

	_, err = idx.Query(ctx, make([]float32, 512), 10)
	assert.ErrorIs(t, err, ErrDimensionMismatch, "Should reject wrong query dimension")
}

func TestQdrant_GetCollectionInfo(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()

	ctx := context.Background()

	point := Point{
		ID:      uuid.New().String(),
		Vector:  testVector(31),
		Payload: Payload{DocumentID: "doc-" + uuid.New().String(), ChunkIndex: 0, Text: "counted"},
	}
	require.NoError(t, idx.Upsert(ctx, []Point{point}))
	time.Sleep(100 * time.Millisecond)

	info, err := idx.GetCollectionInfo(ctx)
	require.NoError(t, err, "Failed to get collection info")
	assert.GreaterOrEqual(t, info.PointsCount, uint64(1))
}
