// Package chunker splits extracted text into overlapping fixed-size segments
// for embedding and retrieval. Chunking is a pure function of
// (text, size, overlap): identical input always produces identical chunk
// boundaries, which is what makes re-indexing reproducible.
package chunker

import (
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidChunking indicates size/overlap parameters outside 0 <= overlap < size.
var ErrInvalidChunking = fmt.Errorf("invalid chunking parameters")

// Chunk is a bounded text segment derived from a source document.
// Offsets are rune positions into the extracted text, half-open [Start, End).
type Chunk struct {
	ID         string // Deterministic UUID derived from (document id, index)
	DocumentID string
	Index      int // Position in document (0, 1, 2...)
	Text       string
	Start      int
	End        int
}

// ID derives the deterministic chunk identifier for (docID, index).
// Re-ingesting the same document produces the same IDs, so index upserts
// replace prior entries instead of accumulating duplicates.
func ID(docID string, index int) string {
	name := fmt.Sprintf("eduflow:chunk:%s:%d", docID, index)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// Split slides a window of size runes across the text, advancing by
// size-overlap each step. The final chunk may be shorter than size and is
// never padded. Text shorter than size yields exactly one chunk.
func Split(docID, text string, size, overlap int) ([]Chunk, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunking, size, overlap)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	stride := size - overlap
	var chunks []Chunk
	for start := 0; ; start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}

		index := len(chunks)
		chunks = append(chunks, Chunk{
			ID:         ID(docID, index),
			DocumentID: docID,
			Index:      index,
			Text:       string(runes[start:end]),
			Start:      start,
			End:        end,
		})

		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}
