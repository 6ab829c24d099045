package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"roteiro/internal/adapter/analyzer"
	"roteiro/internal/domain"
)

// WindowChunker splits text into fixed-size character windows that overlap
// by a fixed amount. The last window may be shorter; it is never padded.
type WindowChunker struct {
	size      int
	overlap   int
	tokenizer *analyzer.Tokenizer
}

// NewWindowChunker validates the window geometry up front so that a bad
// configuration fails at setup rather than at query time.
func NewWindowChunker(size, overlap int, tokenizer *analyzer.Tokenizer) (*WindowChunker, error) {
	if err := validateWindow(size, overlap); err != nil {
		return nil, err
	}
	return &WindowChunker{
		size:      size,
		overlap:   overlap,
		tokenizer: tokenizer,
	}, nil
}

func (c *WindowChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	runes := []rune(doc.Text)
	spans := windowSpans(len(runes), c.size, c.overlap)
	return buildChunks(doc.ID, runes, spans, c.tokenizer), nil
}

type span struct {
	start int
	end   int
}

func (s span) len() int {
	return s.end - s.start
}

func validateWindow(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfiguration, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", domain.ErrInvalidConfiguration, size, overlap)
	}
	return nil
}

// windowSpans returns windows over n characters. Starts advance by
// size-overlap and the loop stops once a window reaches the end of the text,
// giving ceil((n-overlap)/(size-overlap)) windows (at least one) for n > 0.
func windowSpans(n, size, overlap int) []span {
	if n == 0 {
		return nil
	}

	step := size - overlap
	spans := make([]span, 0, n/step+1)
	for start := 0; ; start += step {
		end := start + size
		if end > n {
			end = n
		}
		spans = append(spans, span{start: start, end: end})
		if end == n {
			break
		}
	}
	return spans
}

func buildChunks(docID string, runes []rune, spans []span, tokenizer *analyzer.Tokenizer) []domain.Chunk {
	if len(spans) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, 0, len(spans))
	for i, sp := range spans {
		text := string(runes[sp.start:sp.end])
		chunk := domain.Chunk{
			ID:    generateChunkID(docID, sp.start, sp.end),
			DocID: docID,
			Index: i,
			Start: sp.start,
			End:   sp.end,
			Text:  text,
		}
		if tokenizer != nil {
			chunk.Tokens = tokenizer.Unique(text)
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

func generateChunkID(docID string, start, end int) string {
	data := fmt.Sprintf("%s:%d-%d", docID, start, end)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
