package chunker

import (
	"fmt"
	"strings"

	"roteiro/internal/adapter/analyzer"
	"roteiro/internal/domain"
)

// ParagraphChunker packs whole paragraphs (separated by blank lines) into
// chunks of at most size characters. A paragraph longer than size is cut
// into overlapping windows. Chunks shorter than minLength carry little
// signal and are dropped; minLength 0 keeps everything.
type ParagraphChunker struct {
	size      int
	overlap   int
	minLength int
	tokenizer *analyzer.Tokenizer
}

func NewParagraphChunker(size, overlap, minLength int, tokenizer *analyzer.Tokenizer) (*ParagraphChunker, error) {
	if err := validateWindow(size, overlap); err != nil {
		return nil, err
	}
	if minLength < 0 {
		return nil, fmt.Errorf("%w: minimum chunk length must not be negative, got %d", domain.ErrInvalidConfiguration, minLength)
	}
	return &ParagraphChunker{
		size:      size,
		overlap:   overlap,
		minLength: minLength,
		tokenizer: tokenizer,
	}, nil
}

func (c *ParagraphChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	runes := []rune(doc.Text)

	var spans []span
	current := span{start: -1}
	flush := func() {
		if current.start >= 0 {
			spans = append(spans, current)
			current = span{start: -1}
		}
	}

	for _, p := range paragraphSpans(runes) {
		if p.len() > c.size {
			flush()
			for _, w := range windowSpans(p.len(), c.size, c.overlap) {
				spans = append(spans, span{start: p.start + w.start, end: p.start + w.end})
			}
			continue
		}

		switch {
		case current.start < 0:
			current = p
		case p.end-current.start <= c.size:
			current.end = p.end
		default:
			flush()
			current = p
		}
	}
	flush()

	kept := spans[:0]
	for _, sp := range spans {
		if sp.len() < c.minLength {
			continue
		}
		kept = append(kept, sp)
	}

	return buildChunks(doc.ID, runes, kept, c.tokenizer), nil
}

// paragraphSpans returns the non-blank runs of text between paragraph
// breaks (two or more consecutive newlines).
func paragraphSpans(runes []rune) []span {
	var spans []span
	add := func(start, end int) {
		if end > start && strings.TrimSpace(string(runes[start:end])) != "" {
			spans = append(spans, span{start: start, end: end})
		}
	}

	start := 0
	i := 0
	for i < len(runes) {
		if runes[i] != '\n' {
			i++
			continue
		}
		j := i
		for j < len(runes) && runes[j] == '\n' {
			j++
		}
		if j-i >= 2 {
			add(start, i)
			start = j
		}
		i = j
	}
	add(start, len(runes))

	return spans
}
