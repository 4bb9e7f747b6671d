// Package main provides the eduflow CLI: the HTTP API server plus ingestion,
// query, and content-sync commands for the retrieval pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/eduflow-ai/rag-engine/internal/assembler"
	"github.com/eduflow-ai/rag-engine/internal/config"
	"github.com/eduflow-ai/rag-engine/internal/embedding"
	"github.com/eduflow-ai/rag-engine/internal/extractor"
	"github.com/eduflow-ai/rag-engine/internal/generation"
	"github.com/eduflow-ai/rag-engine/internal/httpapi"
	"github.com/eduflow-ai/rag-engine/internal/pipeline"
	"github.com/eduflow-ai/rag-engine/internal/source"
	"github.com/eduflow-ai/rag-engine/internal/vectorindex"
)

var (
	memoryIndex bool
	resetIndex  bool
)

var rootCmd = &cobra.Command{
	Use:   "eduflow",
	Short: "EduFlow retrieval and learning-block generation engine",
	Long: `Document ingestion, semantic retrieval, and learning-block generation.

Environment variables:
  PORT            HTTP listen port (default: 8080)
  QDRANT_HOST     Qdrant hostname (default: localhost)
  QDRANT_PORT     Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY  OpenAI API key for embeddings and generation (required)
  GITHUB_TOKEN    GitHub token for content sync (optional)`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a document into the vector index",
	Long:  "Extracts text from a txt, md, pdf, or docx file, chunks and embeds it, and upserts the vectors.",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Retrieve an assembled context for a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync markdown course material from GitHub into the index",
	Long: `Fetches all markdown files from the configured GitHub repository and
ingests each one. Files keep stable document IDs derived from their paths,
so re-running a sync overwrites changed content in place.

Environment variables:
  EDUFLOW_SYNC_OWNER  Repository owner (required)
  EDUFLOW_SYNC_REPO   Repository name (required)
  EDUFLOW_SYNC_PATH   Base directory within the repo (default: content)`,
	RunE: runSync,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&memoryIndex, "memory", false,
		"use an in-memory vector index instead of Qdrant")
	syncCmd.Flags().BoolVar(&resetIndex, "reset", false,
		"clear the collection before syncing")
	rootCmd.AddCommand(serveCmd, ingestCmd, queryCmd, syncCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// components is the wired pipeline shared by every subcommand.
type components struct {
	cfg       *config.Config
	pipeline  *pipeline.Pipeline
	assembler *assembler.Assembler
	generator generation.Generator
	index     vectorindex.Index
	logger    *slog.Logger

	closeIndex func() error
}

func buildComponents(ctx context.Context) (*components, error) {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	client, err := embedding.NewOpenAIClient(cfg.OpenAIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(client, cfg.EmbedBatchSize, embedding.DefaultRetryPolicy())

	var index vectorindex.Index
	closeIndex := func() error { return nil }
	if memoryIndex {
		index = vectorindex.NewMemory(embedding.EmbeddingDimension)
	} else {
		qdrant, err := vectorindex.NewQdrant(cfg.QdrantHost, cfg.QdrantPort, embedding.EmbeddingDimension)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		if err := qdrant.EnsureCollection(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure collection: %w", err)
		}
		index = qdrant
		closeIndex = qdrant.Close
	}

	return &components{
		cfg:        cfg,
		pipeline:   pipeline.New(extractor.New(), embedder, index, logger, cfg.ChunkSize, cfg.ChunkOverlap),
		assembler:  assembler.New(embedder, index, cfg.MinScore),
		generator:  generation.NewOpenAIGenerator(client.OpenAI()),
		index:      index,
		logger:     logger,
		closeIndex: closeIndex,
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	c, err := buildComponents(ctx)
	if err != nil {
		return err
	}
	defer c.closeIndex()

	server := httpapi.New(c.pipeline, c.assembler, c.generator, c.index, c.cfg, c.logger)
	httpServer := &http.Server{
		Addr:    "0.0.0.0:" + c.cfg.Port,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("Starting HTTP server", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	c.logger.Info("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := buildComponents(ctx)
	if err != nil {
		return err
	}
	defer c.closeIndex()

	path := args[0]
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	format, err := extractor.ParseFormat(filepath.Ext(path))
	if err != nil {
		return err
	}

	result, err := c.pipeline.Ingest(ctx, pipeline.IngestRequest{
		DocumentID: filepath.Base(path),
		Format:     format,
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Ingested %s\n", result.DocumentID)
	fmt.Printf("  Chunks: %d\n", result.ChunkCount)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := buildComponents(ctx)
	if err != nil {
		return err
	}
	defer c.closeIndex()

	result, err := c.assembler.Assemble(ctx, args[0], c.cfg.TopK, c.cfg.MaxContextSize)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if result.Empty() {
		fmt.Println("No relevant chunks found")
		return nil
	}

	fmt.Printf("Context (%d chunks):\n\n%s\n", len(result.ChunkIDs), result.Text)
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	c, err := buildComponents(ctx)
	if err != nil {
		return err
	}
	defer c.closeIndex()

	if c.cfg.SyncOwner == "" || c.cfg.SyncRepo == "" {
		return fmt.Errorf("EDUFLOW_SYNC_OWNER and EDUFLOW_SYNC_REPO must be set")
	}

	ghClient, err := source.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}
	fetcher := source.NewFetcher(ghClient, c.cfg.SyncOwner, c.cfg.SyncRepo, c.cfg.SyncBasePath)

	if resetIndex {
		clearer, ok := c.index.(interface {
			ClearCollection(context.Context) error
		})
		if !ok {
			return fmt.Errorf("index does not support clearing")
		}
		fmt.Println("Clearing existing collection...")
		if err := clearer.ClearCollection(ctx); err != nil {
			return fmt.Errorf("failed to clear collection: %w", err)
		}
	}

	fmt.Printf("Syncing %s/%s (%s)...\n", c.cfg.SyncOwner, c.cfg.SyncRepo, c.cfg.SyncBasePath)

	result, err := source.NewSyncer(fetcher, c.pipeline, c.logger).Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Sync complete!")
	fmt.Printf("  Files: %d\n", result.Files)
	fmt.Printf("  Chunks: %d\n", result.ChunksIndexed)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))
	if sha, err := fetcher.LatestCommitSHA(ctx); err == nil {
		fmt.Printf("  Commit: %s\n", sha)
	}
	if len(result.Failed) > 0 {
		fmt.Println("Failed files:")
		for _, f := range result.Failed {
			fmt.Printf("  - %s\n", f)
		}
	}
	return nil
}
