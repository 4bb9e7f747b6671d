package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/eduflow-ai/rag-engine/internal/extractor"
	"github.com/eduflow-ai/rag-engine/internal/generation"
	"github.com/eduflow-ai/rag-engine/internal/pipeline"
)

type ingestResponse struct {
	DocumentID    string `json:"document_id"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

type queryRequest struct {
	Query          string `json:"query"`
	K              int    `json:"k,omitempty"`
	MaxContextSize int    `json:"max_context_size,omitempty"`
}

type queryResponse struct {
	Context  string   `json:"context"`
	ChunkIDs []string `json:"chunk_ids"`
}

type generateDirectRequest struct {
	Topic     string `json:"topic"`
	Level     string `json:"level,omitempty"`
	Objective string `json:"objective,omitempty"`
}

type generateResponse struct {
	Block      *generation.LearningBlock `json:"block"`
	DocumentID string                    `json:"document_id,omitempty"`
	ChunkIDs   []string                  `json:"chunk_ids,omitempty"`
}

// handleIngest accepts a multipart document upload and runs the write path.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	req, err := s.readUpload(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.pipeline.Ingest(r.Context(), *req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ingestResponse{
		DocumentID:    result.DocumentID,
		ChunksIndexed: result.ChunkCount,
	})
}

// handleQuery embeds the query, retrieves top-K chunks, and returns the
// assembled context with the chunk IDs used.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query must not be empty"})
		return
	}
	if req.K <= 0 {
		req.K = s.cfg.TopK
	}
	if req.MaxContextSize <= 0 {
		req.MaxContextSize = s.cfg.MaxContextSize
	}

	result, err := s.assembler.Assemble(r.Context(), req.Query, req.K, req.MaxContextSize)
	if err != nil {
		s.writeError(w, err)
		return
	}

	chunkIDs := result.ChunkIDs
	if chunkIDs == nil {
		chunkIDs = []string{}
	}
	s.writeJSON(w, http.StatusOK, queryResponse{
		Context:  result.Text,
		ChunkIDs: chunkIDs,
	})
}

// handleGenerateDirect produces an ungrounded learning block from a topic.
func (s *Server) handleGenerateDirect(w http.ResponseWriter, r *http.Request) {
	var req generateDirectRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "topic must not be empty"})
		return
	}
	applyGenerateDefaults(&req)

	block, err := s.generator.Generate(r.Context(), generation.Request{
		Topic:     req.Topic,
		Level:     req.Level,
		Objective: req.Objective,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, generateResponse{Block: block})
}

// handleGenerateUpload ingests an uploaded document, assembles a retrieval
// context for the topic, and generates a grounded learning block. An empty
// context falls back to ungrounded generation.
func (s *Server) handleGenerateUpload(w http.ResponseWriter, r *http.Request) {
	req, err := s.readUpload(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	topic := r.FormValue("topic")
	if strings.TrimSpace(topic) == "" {
		topic = "the main content of the document"
	}
	genReq := generateDirectRequest{
		Topic:     topic,
		Level:     r.FormValue("level"),
		Objective: r.FormValue("objective"),
	}
	applyGenerateDefaults(&genReq)

	result, err := s.pipeline.Ingest(r.Context(), *req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	assembled, err := s.assembler.Assemble(r.Context(), topic, s.cfg.TopK, s.cfg.MaxContextSize)
	if err != nil {
		s.writeError(w, err)
		return
	}

	block, err := s.generator.Generate(r.Context(), generation.Request{
		Topic:     genReq.Topic,
		Level:     genReq.Level,
		Objective: genReq.Objective,
		Context:   assembled.Text,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, generateResponse{
		Block:      block,
		DocumentID: result.DocumentID,
		ChunkIDs:   assembled.ChunkIDs,
	})
}

// handleDeleteDocument removes every indexed chunk of one document.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if strings.TrimSpace(id) == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "document id must not be empty"})
		return
	}

	if err := s.index.DeleteDocument(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"document_id": id})
}

// readUpload parses a multipart document upload into an ingestion request.
// The format tag comes from the form field when present, otherwise from the
// uploaded filename's extension.
func (s *Server) readUpload(r *http.Request) (*pipeline.IngestRequest, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("%w: %v", extractor.ErrCorruptDocument, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: missing file field", extractor.ErrCorruptDocument)
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", extractor.ErrCorruptDocument, err)
	}

	tag := r.FormValue("format")
	if tag == "" {
		tag = filepath.Ext(header.Filename)
	}
	format, err := extractor.ParseFormat(tag)
	if err != nil {
		return nil, err
	}

	return &pipeline.IngestRequest{
		DocumentID: r.FormValue("document_id"),
		Format:     format,
		Payload:    payload,
		ChunkSize:  formInt(r, "chunk_size"),
		Overlap:    formInt(r, "overlap"),
	}, nil
}

func applyGenerateDefaults(req *generateDirectRequest) {
	if req.Level == "" {
		req.Level = "Intermediate"
	}
	if req.Objective == "" {
		req.Objective = "Learning"
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func formInt(r *http.Request, key string) int {
	if v := r.FormValue(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return 0
}
