package analyzer

import (
	"strings"
	"unicode"

	"roteiro/internal/port"
)

var _ port.Tokenizer = (*Tokenizer)(nil)

// Tokenizer splits text into lowercase word tokens with optional stopword removal.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer creates a new Tokenizer. Stopwords are matched case-insensitively;
// an empty list keeps every word.
func NewTokenizer(stopwords []string) *Tokenizer {
	m := make(map[string]struct{}, len(stopwords))
	for _, s := range stopwords {
		m[Fold(s)] = struct{}{}
	}
	return &Tokenizer{stopwords: m}
}

// Tokenize splits text into tokens, in order of appearance, duplicates kept.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(Fold(text))
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		if _, isStop := t.stopwords[word]; isStop {
			continue
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// TokenSet returns the distinct tokens of text.
func (t *Tokenizer) TokenSet(text string) map[string]struct{} {
	tokens := t.Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

// Unique returns the distinct tokens of text in order of first appearance.
func (t *Tokenizer) Unique(text string) []string {
	tokens := t.Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// splitWords splits text into words using unicode word boundaries.
// A word is a maximal run of letters, digits and underscores, matching \w+.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || r == '_' {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

// PortugueseStopwords is a small list of very frequent Portuguese function
// words, suitable for the lexical.stopwords setting.
var PortugueseStopwords = []string{
	"a", "o", "as", "os", "um", "uma", "de", "da", "do", "das", "dos",
	"e", "é", "em", "na", "no", "nas", "nos", "que", "para", "por",
	"com", "se", "ao", "aos", "à", "às", "ou", "como", "qual", "quais",
}
