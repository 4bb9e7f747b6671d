package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/eduflow-ai/rag-engine/internal/vectorindex"
)

// healthResponse is the JSON body of the /health endpoint.
type healthResponse struct {
	Status        string  `json:"status"`
	VectorIndex   string  `json:"vector_index"`
	KeyConfigured bool    `json:"openai_key_configured"`
	ChunksIndexed *uint64 `json:"chunks_indexed,omitempty"`
	Timestamp     string  `json:"timestamp"`
}

// collectionInfoProvider is implemented by indexes that can report point
// counts. Optional; health reporting works without it.
type collectionInfoProvider interface {
	GetCollectionInfo(ctx context.Context) (*vectorindex.CollectionInfo, error)
}

// handleHealth checks vector-index connectivity and reports whether the
// OpenAI key is configured. Unreachable index yields 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{
		KeyConfigured: s.cfg.OpenAIKey != "",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.index.Health(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.VectorIndex = "disconnected"
		s.writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	resp.Status = "healthy"
	resp.VectorIndex = "connected"

	if provider, ok := s.index.(collectionInfoProvider); ok {
		if info, err := provider.GetCollectionInfo(ctx); err == nil {
			resp.ChunksIndexed = &info.PointsCount
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}
