package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eduflow-ai/rag-engine/internal/extractor"
	"github.com/eduflow-ai/rag-engine/internal/pipeline"
)

// MaterialSource lists and downloads course files. Satisfied by Fetcher.
type MaterialSource interface {
	ListMaterials(ctx context.Context) ([]string, error)
	FetchMaterial(ctx context.Context, relativePath string) (*MaterialFile, error)
}

// Ingestor runs one document through the write path. Satisfied by
// pipeline.Pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, req pipeline.IngestRequest) (*pipeline.IngestResult, error)
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Files         int
	ChunksIndexed int
	Failed        []string
	Duration      time.Duration
}

// Syncer mirrors a repository's markdown course material into the vector
// index. Re-running a sync re-ingests each file under the same document ID,
// so unchanged content is overwritten in place rather than duplicated.
type Syncer struct {
	source   MaterialSource
	ingestor Ingestor
	logger   *slog.Logger
}

func NewSyncer(source MaterialSource, ingestor Ingestor, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		source:   source,
		ingestor: ingestor,
		logger:   logger,
	}
}

// DocumentID derives the stable document ID for a course file from its
// repository-relative path.
func DocumentID(relativePath string) string {
	return "github:" + strings.TrimSuffix(relativePath, ".md")
}

// Sync lists every markdown file in the source and ingests each one. A file
// that fails to fetch or ingest is recorded and skipped; the run continues
// so one broken file does not block the rest of the content.
func (s *Syncer) Sync(ctx context.Context) (*SyncResult, error) {
	start := time.Now()

	paths, err := s.source.ListMaterials(ctx)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	s.logger.Info("Starting content sync", "files", len(paths))

	result := &SyncResult{Files: len(paths)}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		file, err := s.source.FetchMaterial(ctx, p)
		if err != nil {
			s.logger.Warn("Failed to fetch file", "path", p, "error", err)
			result.Failed = append(result.Failed, p)
			continue
		}

		ingested, err := s.ingestor.Ingest(ctx, pipeline.IngestRequest{
			DocumentID: DocumentID(p),
			Format:     extractor.FormatMarkdown,
			Payload:    []byte(file.Content),
		})
		if err != nil {
			s.logger.Warn("Failed to ingest file", "path", p, "error", err)
			result.Failed = append(result.Failed, p)
			continue
		}

		result.ChunksIndexed += ingested.ChunkCount
	}

	result.Duration = time.Since(start)
	s.logger.Info("Content sync complete",
		"files", result.Files,
		"chunks", result.ChunksIndexed,
		"failed", len(result.Failed),
		"duration", result.Duration,
	)
	return result, nil
}
