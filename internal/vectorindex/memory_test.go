package vectorindex

import (
	"context"
	"errors"
	"testing"
)

func point(id string, vector []float32, docID string, index int) Point {
	return Point{
		ID:     id,
		Vector: vector,
		Payload: Payload{
			DocumentID: docID,
			ChunkIndex: index,
			Text:       id + " text",
			Model:      "test-model",
		},
	}
}

// TestMemory_UpsertIdempotent verifies re-upserting an ID replaces the entry
// instead of accumulating duplicates.
func TestMemory_UpsertIdempotent(t *testing.T) {
	idx := NewMemory(3)
	ctx := context.Background()

	err := idx.Upsert(ctx, []Point{point("c1", []float32{1, 0, 0}, "doc", 0)})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	err = idx.Upsert(ctx, []Point{point("c1", []float32{0, 1, 0}, "doc", 0)})
	if err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	if idx.Len() != 1 {
		t.Fatalf("Expected exactly 1 entry after re-upsert, got %d", idx.Len())
	}

	// The replacement vector should be the one queried against.
	results, err := idx.Query(ctx, []float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 || results[0].Score < 0.99 {
		t.Errorf("Expected replaced vector to match query, got %+v", results)
	}
}

// TestMemory_QueryOrdering verifies scores are non-increasing and capped at k.
func TestMemory_QueryOrdering(t *testing.T) {
	idx := NewMemory(2)
	ctx := context.Background()

	err := idx.Upsert(ctx, []Point{
		point("far", []float32{0, 1}, "doc", 0),
		point("near", []float32{1, 0.1}, "doc", 1),
		point("exact", []float32{1, 0}, "doc", 2),
		point("mid", []float32{1, 1}, "doc", 3),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	results, err := idx.Query(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("Expected 3 results (k cap), got %d", len(results))
	}
	if results[0].ID != "exact" {
		t.Errorf("Expected best match 'exact', got %q", results[0].ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("Scores not non-increasing at %d: %f > %f", i, results[i].Score, results[i-1].Score)
		}
	}
}

// TestMemory_TieBreakRecency verifies equal scores order most-recently-inserted first.
func TestMemory_TieBreakRecency(t *testing.T) {
	idx := NewMemory(2)
	ctx := context.Background()

	// Same vector, inserted in order: older, newer.
	err := idx.Upsert(ctx, []Point{point("older", []float32{1, 0}, "doc", 0)})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	err = idx.Upsert(ctx, []Point{point("newer", []float32{1, 0}, "doc", 1)})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	results, err := idx.Query(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].ID != "newer" || results[1].ID != "older" {
		t.Errorf("Expected [newer, older], got [%s, %s]", results[0].ID, results[1].ID)
	}
}

// TestMemory_DimensionMismatch verifies both paths reject wrong dimensions.
func TestMemory_DimensionMismatch(t *testing.T) {
	idx := NewMemory(3)
	ctx := context.Background()

	err := idx.Upsert(ctx, []Point{point("c1", []float32{1, 0}, "doc", 0)})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Upsert: expected ErrDimensionMismatch, got %v", err)
	}

	_, err = idx.Query(ctx, []float32{1, 0}, 5)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Query: expected ErrDimensionMismatch, got %v", err)
	}
}

// TestMemory_EmptyIndex verifies querying an empty index returns no results.
func TestMemory_EmptyIndex(t *testing.T) {
	idx := NewMemory(3)

	results, err := idx.Query(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected empty result set, got %d", len(results))
	}
}

// TestMemory_KLargerThanIndex verifies k larger than the index returns everything.
func TestMemory_KLargerThanIndex(t *testing.T) {
	idx := NewMemory(2)
	ctx := context.Background()

	err := idx.Upsert(ctx, []Point{
		point("a", []float32{1, 0}, "doc", 0),
		point("b", []float32{0, 1}, "doc", 1),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	results, err := idx.Query(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}
}

// TestMemory_DeleteDocument verifies deletion removes only the named
// document's points and leaves the rest queryable.
func TestMemory_DeleteDocument(t *testing.T) {
	idx := NewMemory(2)
	ctx := context.Background()

	err := idx.Upsert(ctx, []Point{
		point("a0", []float32{1, 0}, "doc-a", 0),
		point("a1", []float32{0, 1}, "doc-a", 1),
		point("b0", []float32{1, 1}, "doc-b", 0),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := idx.DeleteDocument(ctx, "doc-a"); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}

	if idx.Len() != 1 {
		t.Fatalf("Expected 1 entry after delete, got %d", idx.Len())
	}
	results, err := idx.Query(ctx, []float32{1, 1}, 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "b0" {
		t.Errorf("Expected only b0 to survive, got %+v", results)
	}

	// Surviving entries must stay replaceable by ID after compaction.
	if err := idx.Upsert(ctx, []Point{point("b0", []float32{0, 1}, "doc-b", 0)}); err != nil {
		t.Fatalf("Re-upsert after delete failed: %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("Expected re-upsert to replace, got %d entries", idx.Len())
	}
}

// TestMemory_ClearCollection verifies clearing empties the index.
func TestMemory_ClearCollection(t *testing.T) {
	idx := NewMemory(2)
	ctx := context.Background()

	err := idx.Upsert(ctx, []Point{point("a", []float32{1, 0}, "doc", 0)})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := idx.ClearCollection(ctx); err != nil {
		t.Fatalf("ClearCollection failed: %v", err)
	}

	info, err := idx.GetCollectionInfo(ctx)
	if err != nil {
		t.Fatalf("GetCollectionInfo failed: %v", err)
	}
	if info.PointsCount != 0 {
		t.Errorf("Expected empty collection, got %d points", info.PointsCount)
	}
}

// TestMemory_PayloadRoundTrip verifies metadata survives upsert and query.
func TestMemory_PayloadRoundTrip(t *testing.T) {
	idx := NewMemory(2)
	ctx := context.Background()

	p := Point{
		ID:     "c1",
		Vector: []float32{1, 0},
		Payload: Payload{
			DocumentID: "doc-42",
			ChunkIndex: 7,
			Text:       "the chunk text",
			Start:      350,
			End:        420,
			Model:      "text-embedding-3-small",
		},
	}
	if err := idx.Upsert(ctx, []Point{p}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	results, err := idx.Query(ctx, []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Payload != p.Payload {
		t.Errorf("Payload mismatch: expected %+v, got %+v", p.Payload, results[0].Payload)
	}
}
