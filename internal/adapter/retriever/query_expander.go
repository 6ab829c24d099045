package retriever

import (
	"sort"
	"strings"

	"roteiro/internal/adapter/analyzer"
)

// QueryExpander rewrites a query with a synonym dictionary, so that a
// question saying "lepra" also matches passages saying "hanseníase".
type QueryExpander struct {
	entries []synonymEntry
}

type synonymEntry struct {
	term     string
	synonyms []string
}

// NewQueryExpander builds an expander from term -> synonyms. Terms and
// synonyms are matched case-insensitively; blank ones are ignored.
func NewQueryExpander(synonyms map[string][]string) *QueryExpander {
	entries := make([]synonymEntry, 0, len(synonyms))
	for term, syns := range synonyms {
		term = analyzer.Fold(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		entry := synonymEntry{term: term}
		for _, syn := range syns {
			if syn = analyzer.Fold(strings.TrimSpace(syn)); syn != "" && syn != term {
				entry.synonyms = append(entry.synonyms, syn)
			}
		}
		if len(entry.synonyms) > 0 {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].term < entries[j].term
	})
	return &QueryExpander{entries: entries}
}

// Expand returns the query followed by one variant per synonym of every
// dictionary term found in it, with that term replaced by the synonym.
// Variants are folded and deduplicated; the query itself comes back as is.
func (e *QueryExpander) Expand(query string) []string {
	queries := []string{query}
	if e == nil || len(e.entries) == 0 {
		return queries
	}

	lower := analyzer.Fold(query)
	seen := map[string]bool{lower: true}
	for _, entry := range e.entries {
		if !strings.Contains(lower, entry.term) {
			continue
		}
		for _, syn := range entry.synonyms {
			variant := strings.ReplaceAll(lower, entry.term, syn)
			if !seen[variant] {
				seen[variant] = true
				queries = append(queries, variant)
			}
		}
	}
	return queries
}
