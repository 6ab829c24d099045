package usecase

import (
	"strings"
	"unicode/utf8"

	"roteiro/internal/domain"
)

// ContextSeparator joins chunk texts in the assembled context.
const ContextSeparator = "\n\n"

// AssembleContext concatenates chunk texts in rank order, separated by
// ContextSeparator, keeping the result within maxLen characters.
//
// Chunks are only ever added whole: one that would overflow the budget is
// skipped and later, shorter chunks are still tried. If not even the first
// chunk fits, its text is cut at maxLen so the caller still gets context.
func AssembleContext(chunks []domain.ScoredChunk, maxLen int) string {
	if len(chunks) == 0 || maxLen <= 0 {
		return ""
	}

	var b strings.Builder
	used := 0
	for _, sc := range chunks {
		n := utf8.RuneCountInString(sc.Chunk.Text)
		cost := n
		if used > 0 {
			cost += len(ContextSeparator)
		}
		if used+cost > maxLen {
			continue
		}
		if used > 0 {
			b.WriteString(ContextSeparator)
		}
		b.WriteString(sc.Chunk.Text)
		used += cost
	}

	if used == 0 {
		return truncateRunes(chunks[0].Chunk.Text, maxLen)
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
