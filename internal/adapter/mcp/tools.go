package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"roteiro/internal/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query   string `json:"query" jsonschema:"the question about the dispensation thesis"`
	Persona string `json:"persona,omitempty" jsonschema:"answer persona, e.g. professor or amigavel"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Context       string        `json:"context"`
	FoundRelevant bool          `json:"found_relevant"`
	Mode          string        `json:"mode"`
	Degraded      bool          `json:"degraded,omitempty"`
	CorpusVersion string        `json:"corpus_version"`
	Chunks        []ChunkOutput `json:"chunks"`
}

// ChunkOutput is one ranked chunk.
type ChunkOutput struct {
	ID       string  `json:"id"`
	DocID    string  `json:"doc_id"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Score    float64 `json:"score"`
	Lexical  float64 `json:"lexical"`
	Semantic float64 `json:"semantic"`
	Relevant bool    `json:"relevant"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "retrieve",
		Description: "Retrieve passages of the pharmaceutical dispensation thesis relevant to a question. " +
			"When found_relevant is false the context is only a best guess and the answer should say so.",
	}, s.handleRetrieve)
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	query := domain.Query{
		Text:    strings.TrimSpace(input.Query),
		Persona: input.Persona,
	}

	result, err := s.ports.Retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	return nil, toOutput(result), nil
}

func toOutput(result domain.RetrievalResult) RetrieveOutput {
	out := RetrieveOutput{
		Context:       result.Context,
		FoundRelevant: result.FoundRelevant,
		Mode:          result.Mode,
		Degraded:      result.Degraded,
		CorpusVersion: result.CorpusVersion,
		Chunks:        make([]ChunkOutput, len(result.Chunks)),
	}
	for i, sc := range result.Chunks {
		out.Chunks[i] = ChunkOutput{
			ID:       sc.Chunk.ID,
			DocID:    sc.Chunk.DocID,
			Start:    sc.Chunk.Start,
			End:      sc.Chunk.End,
			Score:    sc.Score,
			Lexical:  sc.Lexical,
			Semantic: sc.Semantic,
			Relevant: sc.Relevant,
		}
	}
	return out
}
