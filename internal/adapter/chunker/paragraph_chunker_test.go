package chunker

import (
	"errors"
	"strings"
	"testing"

	"roteiro/internal/domain"
)

func TestParagraphChunkerGroupsParagraphs(t *testing.T) {
	chunker, err := NewParagraphChunker(100, 20, 10, nil)
	if err != nil {
		t.Fatal(err)
	}

	text := strings.Repeat("a", 40) + "\n\n" + strings.Repeat("b", 40) + "\n\n" + strings.Repeat("c", 300)
	chunks, err := chunker.Chunk(domain.Document{ID: "d", Text: text})
	if err != nil {
		t.Fatal(err)
	}

	if len(chunks) != 5 {
		t.Fatalf("expected 5 chunks, got %d", len(chunks))
	}
	if chunks[0].Start != 0 || chunks[0].End != 82 {
		t.Errorf("expected first chunk [0,82), got [%d,%d)", chunks[0].Start, chunks[0].End)
	}
	if chunks[1].Start != 84 || chunks[1].End != 184 {
		t.Errorf("expected second chunk [84,184), got [%d,%d)", chunks[1].Start, chunks[1].End)
	}
	if last := chunks[4]; last.End != len(text) {
		t.Errorf("expected last chunk to end at %d, got %d", len(text), last.End)
	}

	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d has index %d", i, chunk.Index)
		}
		if text[chunk.Start:chunk.End] != chunk.Text {
			t.Errorf("chunk %d text is not the document slice", i)
		}
		if chunk.Len() > 100 {
			t.Errorf("chunk %d exceeds size: %d", i, chunk.Len())
		}
	}
}

func TestParagraphChunkerDropsShortChunks(t *testing.T) {
	chunker, err := NewParagraphChunker(30, 5, 10, nil)
	if err != nil {
		t.Fatal(err)
	}

	text := "Título\n\n" + strings.Repeat("x", 25) + "\n\n\n\nfim"
	chunks, err := chunker.Chunk(domain.Document{ID: "d", Text: text})
	if err != nil {
		t.Fatal(err)
	}

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].Text != strings.Repeat("x", 25) {
		t.Errorf("unexpected chunk text %q", chunks[0].Text)
	}
	if chunks[0].Index != 0 {
		t.Errorf("expected index 0 after filtering, got %d", chunks[0].Index)
	}
}

func TestParagraphChunkerZeroMinLengthKeepsAll(t *testing.T) {
	chunker, err := NewParagraphChunker(5, 0, 0, nil)
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := chunker.Chunk(domain.Document{ID: "d", Text: "um\n\ndois\n\n  \n\ntrês"})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"um", "dois", "três"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i := range want {
		if chunks[i].Text != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], chunks[i].Text)
		}
	}
}

func TestParagraphChunkerInvalidConfiguration(t *testing.T) {
	if _, err := NewParagraphChunker(100, 100, 0, nil); !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for overlap == size, got %v", err)
	}
	if _, err := NewParagraphChunker(100, 10, -1, nil); !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for negative min length, got %v", err)
	}
}

func TestNewSelectsStrategy(t *testing.T) {
	c, err := New("", 100, 10, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*WindowChunker); !ok {
		t.Errorf("expected WindowChunker for empty strategy, got %T", c)
	}

	c, err = New(StrategyParagraph, 100, 10, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*ParagraphChunker); !ok {
		t.Errorf("expected ParagraphChunker, got %T", c)
	}

	if _, err := New("sentences", 100, 10, 0, nil); !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for unknown strategy, got %v", err)
	}
}
