package domain

import (
	"fmt"
	"math"
)

// Matrix is a dense row-major matrix of L2-normalized embeddings, one row
// per chunk. It is shared with the Corpus that owns it and must not be
// modified.
type Matrix struct {
	Rows int
	Dim  int
	Data []float32
}

// Row returns the i-th row.
func (m Matrix) Row(i int) []float32 {
	return m.Data[i*m.Dim : (i+1)*m.Dim]
}

// Corpus is an immutable set of chunks with optional precomputed embeddings.
// It is built once per knowledge-base load and replaced wholesale, never
// mutated in place, so concurrent readers need no locking.
type Corpus struct {
	version string
	model   string
	docs    []Document
	chunks  []Chunk
	vectors Matrix
}

// NewCorpus builds a corpus. embeddings may be nil for a lexical-only corpus;
// otherwise it must hold exactly one vector per chunk, all of the same
// positive dimension. Vectors are copied and L2-normalized.
func NewCorpus(version string, docs []Document, chunks []Chunk, embeddings [][]float32, model string) (*Corpus, error) {
	c := &Corpus{
		version: version,
		model:   model,
		docs:    append([]Document(nil), docs...),
		chunks:  append([]Chunk(nil), chunks...),
	}
	for i := range c.chunks {
		c.chunks[i].Position = i
	}

	if len(embeddings) == 0 {
		c.model = ""
		return c, nil
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("%w: %d embeddings for %d chunks", ErrDimensionMismatch, len(embeddings), len(chunks))
	}

	dim := len(embeddings[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-length embedding", ErrDimensionMismatch)
	}

	data := make([]float32, 0, dim*len(embeddings))
	for i, vec := range embeddings {
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: chunk %d has dimension %d, expected %d", ErrDimensionMismatch, i, len(vec), dim)
		}
		data = append(data, vec...)
		NormalizeL2(data[i*dim : (i+1)*dim])
	}

	c.vectors = Matrix{Rows: len(embeddings), Dim: dim, Data: data}
	if c.model == "" {
		c.model = "unknown"
	}
	return c, nil
}

// Version identifies the knowledge-base load this corpus came from.
func (c *Corpus) Version() string {
	return c.version
}

// Model returns the name of the embedding model, or "" for a lexical-only corpus.
func (c *Corpus) Model() string {
	return c.model
}

// Len returns the number of chunks.
func (c *Corpus) Len() int {
	return len(c.chunks)
}

// Chunk returns the i-th chunk.
func (c *Corpus) Chunk(i int) Chunk {
	return c.chunks[i]
}

// Chunks returns a copy of the chunks in corpus order.
func (c *Corpus) Chunks() []Chunk {
	return append([]Chunk(nil), c.chunks...)
}

// Documents returns a copy of the documents the chunks were cut from.
func (c *Corpus) Documents() []Document {
	return append([]Document(nil), c.docs...)
}

// HasEmbeddings reports whether semantic scoring is possible on this corpus.
func (c *Corpus) HasEmbeddings() bool {
	return c.vectors.Rows > 0
}

// Dimension returns the embedding dimension, 0 if there are none.
func (c *Corpus) Dimension() int {
	return c.vectors.Dim
}

// Embeddings returns the normalized embedding matrix.
func (c *Corpus) Embeddings() Matrix {
	return c.vectors
}

// Stats summarizes the corpus.
func (c *Corpus) Stats() Stats {
	total := 0
	for _, ch := range c.chunks {
		total += ch.Len()
	}
	avg := 0.0
	if len(c.chunks) > 0 {
		avg = float64(total) / float64(len(c.chunks))
	}
	return Stats{
		TotalDocs:   len(c.docs),
		TotalChunks: len(c.chunks),
		AvgChunkLen: avg,
		Dimension:   c.vectors.Dim,
		Model:       c.model,
	}
}

// NormalizeL2 scales v in place to unit length. Zero vectors are left as is.
func NormalizeL2(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
