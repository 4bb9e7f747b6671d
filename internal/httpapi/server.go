// Package httpapi exposes the ingestion and retrieval pipeline over HTTP:
// document upload, context queries, learning-block generation, and health.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/eduflow-ai/rag-engine/internal/assembler"
	"github.com/eduflow-ai/rag-engine/internal/chunker"
	"github.com/eduflow-ai/rag-engine/internal/config"
	"github.com/eduflow-ai/rag-engine/internal/embedding"
	"github.com/eduflow-ai/rag-engine/internal/extractor"
	"github.com/eduflow-ai/rag-engine/internal/generation"
	"github.com/eduflow-ai/rag-engine/internal/pipeline"
	"github.com/eduflow-ai/rag-engine/internal/vectorindex"
)

// maxUploadBytes bounds multipart parsing memory for document uploads.
const maxUploadBytes = 32 << 20

// Server holds the wired pipeline components behind the HTTP surface.
type Server struct {
	pipeline  *pipeline.Pipeline
	assembler *assembler.Assembler
	generator generation.Generator
	index     vectorindex.Index
	cfg       *config.Config
	logger    *slog.Logger
}

// New creates the HTTP server façade over the given components.
func New(
	p *pipeline.Pipeline,
	a *assembler.Assembler,
	g generation.Generator,
	index vectorindex.Index,
	cfg *config.Config,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		pipeline:  p,
		assembler: a,
		generator: g,
		index:     index,
		cfg:       cfg,
		logger:    logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ingest", s.handleIngest)
	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("POST /api/generate/direct", s.handleGenerateDirect)
	mux.HandleFunc("POST /api/generate/upload", s.handleGenerateUpload)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps the pipeline error taxonomy onto HTTP status codes:
// caller errors become 400, exhausted transient errors become 502,
// anything else is a 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, extractor.ErrUnsupportedFormat),
		errors.Is(err, extractor.ErrCorruptDocument),
		errors.Is(err, chunker.ErrInvalidChunking),
		errors.Is(err, embedding.ErrInvalidInput),
		errors.Is(err, vectorindex.ErrDimensionMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, embedding.ErrRateLimited),
		errors.Is(err, embedding.ErrServiceUnavailable),
		errors.Is(err, embedding.ErrTimeout),
		errors.Is(err, vectorindex.ErrIndexUnreachable):
		status = http.StatusBadGateway
	default:
		var genErr *generation.GenerationError
		if errors.As(err, &genErr) {
			status = http.StatusBadGateway
		}
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
