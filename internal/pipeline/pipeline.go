// Package pipeline orchestrates the ingestion write path: extract text,
// chunk it, embed the chunks, and upsert the vectors into the index.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eduflow-ai/rag-engine/internal/chunker"
	"github.com/eduflow-ai/rag-engine/internal/embedding"
	"github.com/eduflow-ai/rag-engine/internal/extractor"
	"github.com/eduflow-ai/rag-engine/internal/vectorindex"
)

// IngestRequest carries one document through the write path.
// ChunkSize and Overlap fall back to the pipeline defaults independently
// when zero; a defaulted overlap that would reach a smaller custom
// ChunkSize is reduced to a fifth of that size.
type IngestRequest struct {
	DocumentID string // Generated when empty
	Format     extractor.Format
	Payload    []byte
	ChunkSize  int
	Overlap    int
}

// IngestResult reports what one ingestion produced.
type IngestResult struct {
	DocumentID string
	ChunkCount int
	Duration   time.Duration
}

// Pipeline wires the ingestion components together. Requests are handled
// independently; the only shared state is the vector index itself.
type Pipeline struct {
	extractor *extractor.Extractor
	embedder  *embedding.Embedder
	index     vectorindex.Index
	logger    *slog.Logger

	chunkSize int
	overlap   int
}

// New creates an ingestion pipeline with the given components and default
// chunking parameters.
func New(
	ex *extractor.Extractor,
	embedder *embedding.Embedder,
	index vectorindex.Index,
	logger *slog.Logger,
	chunkSize, overlap int,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: ex,
		embedder:  embedder,
		index:     index,
		logger:    logger,
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// Ingest runs the full write path for one document and returns the number
// of chunks indexed. Vectors are staged in memory and upserted only after
// every chunk embedded successfully, so a failed ingestion leaves the index
// unchanged for that document. Chunk IDs derive deterministically from
// (document id, chunk index), which makes re-ingestion idempotent via
// upsert semantics.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	start := time.Now()

	docID := req.DocumentID
	if docID == "" {
		docID = uuid.New().String()
	}
	size := req.ChunkSize
	if size <= 0 {
		size = p.chunkSize
	}
	overlap := req.Overlap
	if overlap <= 0 {
		overlap = p.overlap
		if overlap >= size {
			// A custom size smaller than the default overlap keeps the
			// default's 1:5 ratio instead of failing validation.
			overlap = size / 5
		}
	}

	text, err := p.extractor.Extract(extractor.Document{
		ID:         docID,
		Format:     req.Format,
		Payload:    req.Payload,
		UploadedAt: start,
	})
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	p.logger.Debug("Extracted document", "document", docID, "chars", len(text))

	chunks, err := chunker.Split(docID, text, size, overlap)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	p.logger.Debug("Chunked document", "document", docID, "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	// Stage all points before touching the index: either every chunk of the
	// document is upserted or none are.
	points := make([]vectorindex.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vectorindex.Point{
			ID:     c.ID,
			Vector: vectors[i],
			Payload: vectorindex.Payload{
				DocumentID: c.DocumentID,
				ChunkIndex: c.Index,
				Text:       c.Text,
				Start:      c.Start,
				End:        c.End,
				Model:      embedding.EmbeddingModel,
			},
		}
	}

	if err := p.index.Upsert(ctx, points); err != nil {
		return nil, fmt.Errorf("upsert: %w", err)
	}

	result := &IngestResult{
		DocumentID: docID,
		ChunkCount: len(chunks),
		Duration:   time.Since(start),
	}
	p.logger.Info("Ingested document",
		"document", docID,
		"chunks", result.ChunkCount,
		"duration", result.Duration,
	)
	return result, nil
}
