// Package assembler answers retrieval queries: it embeds the query text,
// fetches the most similar chunks from the vector index, and concatenates
// them into a bounded context block for the generation call.
package assembler

import (
	"context"
	"fmt"
	"strings"

	"github.com/eduflow-ai/rag-engine/internal/embedding"
	"github.com/eduflow-ai/rag-engine/internal/vectorindex"
)

// separator joins chunk texts in the assembled context. It counts toward
// the context budget.
const separator = "\n\n"

// Context is the assembled block handed to the external generation call,
// plus the ordered chunk IDs used, for traceability and citation.
type Context struct {
	Text     string
	ChunkIDs []string
}

// Empty reports whether retrieval produced no usable chunks. The caller
// decides whether to fall back to ungrounded generation.
func (c *Context) Empty() bool {
	return len(c.ChunkIDs) == 0
}

// Assembler wires the embedder and the vector index behind a single
// query-time operation.
type Assembler struct {
	embedder *embedding.Embedder
	index    vectorindex.Index
	minScore float64
}

// New creates an Assembler. Chunks scoring below minScore are treated as
// non-matches and never enter a context.
func New(embedder *embedding.Embedder, index vectorindex.Index, minScore float64) *Assembler {
	return &Assembler{
		embedder: embedder,
		index:    index,
		minScore: minScore,
	}
}

// Assemble embeds the query, retrieves the top-k chunks, and concatenates
// chunk texts in descending-score order until the next chunk would exceed
// maxContextSize runes. Chunks are never truncated partially. Zero retrieved
// chunks yield an empty context and a nil error.
func (a *Assembler) Assemble(ctx context.Context, query string, k, maxContextSize int) (*Context, error) {
	embeddings, err := a.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := a.index.Query(ctx, embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	var (
		sb       strings.Builder
		chunkIDs []string
		size     int
	)
	for _, hit := range hits {
		if hit.Score < a.minScore {
			// Results are score-ordered; everything after is below threshold too.
			break
		}

		textLen := len([]rune(hit.Payload.Text))
		cost := textLen
		if len(chunkIDs) > 0 {
			cost += len(separator)
		}
		if size+cost > maxContextSize {
			break
		}

		if len(chunkIDs) > 0 {
			sb.WriteString(separator)
		}
		sb.WriteString(hit.Payload.Text)
		size += cost
		chunkIDs = append(chunkIDs, hit.ID)
	}

	return &Context{
		Text:     sb.String(),
		ChunkIDs: chunkIDs,
	}, nil
}
