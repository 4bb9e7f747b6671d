package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Memory is a brute-force cosine-similarity index kept entirely in memory.
// It honors the same contract as Qdrant and additionally guarantees the
// tie-break order (most recently inserted first), which makes it the
// reference implementation for tests.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	entries   []memEntry
	byID      map[string]int
	seq       uint64
}

type memEntry struct {
	id      string
	vector  []float32
	payload Payload
	seq     uint64 // Insertion recency; replacement refreshes it
}

// NewMemory creates an empty in-memory index with the given dimension.
func NewMemory(dimension int) *Memory {
	return &Memory{
		dimension: dimension,
		byID:      make(map[string]int),
	}
}

// Upsert inserts or replaces points by ID.
func (m *Memory) Upsert(ctx context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, p := range points {
		if len(p.Vector) != m.dimension {
			return fmt.Errorf("%w: point %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(p.Vector), m.dimension)
		}
	}

	for _, p := range points {
		m.seq++
		entry := memEntry{
			id:      p.ID,
			vector:  append([]float32(nil), p.Vector...),
			payload: p.Payload,
			seq:     m.seq,
		}
		if at, ok := m.byID[p.ID]; ok {
			m.entries[at] = entry
		} else {
			m.byID[p.ID] = len(m.entries)
			m.entries = append(m.entries, entry)
		}
	}
	return nil
}

// Query returns at most k entries by descending cosine similarity.
// Equal scores order most-recently-inserted first.
func (m *Memory) Query(ctx context.Context, vector []float32, k int) ([]Scored, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(vector) != m.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), m.dimension)
	}
	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}

	type hit struct {
		score float64
		seq   uint64
		at    int
	}
	hits := make([]hit, 0, len(m.entries))
	for i, e := range m.entries {
		hits = append(hits, hit{
			score: cosine(vector, e.vector),
			seq:   e.seq,
			at:    i,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].seq > hits[j].seq
	})

	if k > len(hits) {
		k = len(hits)
	}
	results := make([]Scored, 0, k)
	for _, h := range hits[:k] {
		e := m.entries[h.at]
		results = append(results, Scored{
			ID:      e.id,
			Score:   h.score,
			Payload: e.payload,
		})
	}
	return results, nil
}

// DeleteDocument removes every point belonging to the given document.
func (m *Memory) DeleteDocument(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	byID := make(map[string]int)
	for _, e := range m.entries {
		if e.payload.DocumentID == documentID {
			continue
		}
		byID[e.id] = len(kept)
		kept = append(kept, e)
	}
	m.entries = kept
	m.byID = byID
	return nil
}

// ClearCollection drops every point.
func (m *Memory) ClearCollection(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.byID = make(map[string]int)
	return nil
}

// GetCollectionInfo reports the point count, mirroring the Qdrant method.
func (m *Memory) GetCollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &CollectionInfo{PointsCount: uint64(len(m.entries))}, nil
}

// Health always succeeds; the index lives in process memory.
func (m *Memory) Health(ctx context.Context) error {
	return nil
}

// Len reports how many points the index holds.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// cosine computes cosine similarity without assuming normalized vectors.
// A zero vector scores 0 against everything.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
