package domain

import "time"

// Document is a raw knowledge-base text identified by its source label.
type Document struct {
	ID      string
	Source  string
	Text    string
	ModTime time.Time
}

// Chunk is a contiguous window of a Document. Start and End are character
// (rune) offsets into the document text, End exclusive.
type Chunk struct {
	ID     string
	DocID  string
	Index  int
	Start  int
	End    int
	Text   string
	Tokens []string

	// Position is the chunk's place in its corpus, documents in corpus
	// order and chunks by Index within each. NewCorpus assigns it.
	Position int
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return c.End - c.Start
}

type Query struct {
	Text    string
	Persona string
}

// ScoredChunk carries the final hybrid score together with the signals it
// was built from. Semantic is zero when semantic scoring was unavailable.
type ScoredChunk struct {
	Chunk    Chunk
	Score    float64
	Lexical  float64
	Semantic float64
	Relevant bool
}

// Retrieval modes reported on a RetrievalResult.
const (
	ModeHybrid  = "hybrid"
	ModeLexical = "lexical"
)

// RetrievalResult is the per-query output handed to answer generation.
// Degraded is set when the corpus has embeddings but the query could not be
// embedded, so ranking fell back to lexical scores.
type RetrievalResult struct {
	Query         string
	Persona       string
	Chunks        []ScoredChunk
	FoundRelevant bool
	Context       string
	Mode          string
	Degraded      bool
	CorpusVersion string
}

type Stats struct {
	TotalDocs   int
	TotalChunks int
	AvgChunkLen float64
	Dimension   int
	Model       string
}
