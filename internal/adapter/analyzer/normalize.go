package analyzer

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	blankLinesRe = regexp.MustCompile(`\n[ \t\r]*\n(?:[ \t\r]*\n)*`)
	spacesRe     = regexp.MustCompile(` {2,}`)
)

// NormalizeText composes accents (NFC), collapses runs of blank lines into a
// single paragraph break and runs of spaces into one space, then trims.
func NormalizeText(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	text = spacesRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Fold returns the comparison form of s: NFC composed and lowercased, so
// "HANSENÍASE" and "hanseníase" compare equal.
func Fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
