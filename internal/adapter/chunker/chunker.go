package chunker

import (
	"fmt"

	"roteiro/internal/adapter/analyzer"
	"roteiro/internal/domain"
	"roteiro/internal/port"
)

// Chunking strategies accepted by New.
const (
	StrategyWindow    = "window"
	StrategyParagraph = "paragraph"
)

// New returns the chunker for the named strategy. An empty strategy selects
// fixed windows.
func New(strategy string, size, overlap, minLength int, tokenizer *analyzer.Tokenizer) (port.Chunker, error) {
	switch strategy {
	case "", StrategyWindow:
		return NewWindowChunker(size, overlap, tokenizer)
	case StrategyParagraph:
		return NewParagraphChunker(size, overlap, minLength, tokenizer)
	default:
		return nil, fmt.Errorf("%w: unknown chunking strategy %q", domain.ErrInvalidConfiguration, strategy)
	}
}
