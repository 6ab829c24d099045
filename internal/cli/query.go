package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"roteiro/internal/domain"
	"roteiro/internal/usecase"
)

var (
	queryText      string
	queryPersona   string
	queryJSON      bool
	queryEphemeral bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Rank corpus chunks for a question",
	Long: `Rank the corpus against a question with hybrid lexical and semantic
scoring, and show the selected chunks with their scores.

When no chunk clears the relevance threshold the best chunk is still shown,
marked as a fallback.

Examples:
  roteiro query -q "O que é a poliquimioterapia única (PQT-U)?"
  roteiro query -q "dose de rifampicina" --top-k 5 --json
  roteiro query -q "dapsona" --ephemeral   # index in memory, no database`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question (required)")
	queryCmd.Flags().StringVarP(&queryPersona, "persona", "p", "", "answer persona, part of the cache key")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().BoolVar(&queryEphemeral, "ephemeral", false, "build the corpus in memory instead of reading .roteiro/corpus.db")
	bindRetrieveFlags(queryCmd.Flags())
	queryCmd.MarkFlagRequired("query")
}

// ScoredChunkResult is a simplified result for CLI output.
type ScoredChunkResult struct {
	Source   string  `json:"source"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Score    float64 `json:"score"`
	Lexical  float64 `json:"lexical"`
	Semantic float64 `json:"semantic"`
	Relevant bool    `json:"relevant"`
	Text     string  `json:"text"`
}

// QueryOutput is the JSON shape of a query result.
type QueryOutput struct {
	Query         string              `json:"query"`
	FoundRelevant bool                `json:"found_relevant"`
	Mode          string              `json:"mode"`
	Degraded      bool                `json:"degraded,omitempty"`
	CorpusVersion string              `json:"corpus_version"`
	Results       []ScoredChunkResult `json:"results"`
	Context       string              `json:"context"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	result, sources, err := retrieveOnce(cmd, queryText, queryPersona, queryEphemeral)
	if err != nil {
		return err
	}

	out := QueryOutput{
		Query:         result.Query,
		FoundRelevant: result.FoundRelevant,
		Mode:          result.Mode,
		Degraded:      result.Degraded,
		CorpusVersion: result.CorpusVersion,
		Context:       result.Context,
		Results:       make([]ScoredChunkResult, 0, len(result.Chunks)),
	}
	for _, sc := range result.Chunks {
		out.Results = append(out.Results, ScoredChunkResult{
			Source:   sources[sc.Chunk.DocID],
			Start:    sc.Chunk.Start,
			End:      sc.Chunk.End,
			Score:    sc.Score,
			Lexical:  sc.Lexical,
			Semantic: sc.Semantic,
			Relevant: sc.Relevant,
			Text:     sc.Chunk.Text,
		})
	}

	if queryJSON {
		output, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(out.Results) == 0 {
		fmt.Println("The corpus is empty.")
		return nil
	}

	mode := out.Mode
	if out.Degraded {
		mode += ", embeddings unavailable"
	}
	if out.FoundRelevant {
		fmt.Printf("Found %d relevant chunks for: %s (%s)\n\n", len(out.Results), out.Query, mode)
	} else {
		fmt.Printf("No relevant chunk for: %s (%s). Best guess:\n\n", out.Query, mode)
	}
	for i, r := range out.Results {
		fmt.Printf("--- [%d] %s:%d-%d (score: %.3f, lexical: %.3f, semantic: %.3f) ---\n",
			i+1, r.Source, r.Start, r.End, r.Score, r.Lexical, r.Semantic)
		text := r.Text
		if runes := []rune(text); len(runes) > 500 {
			text = string(runes[:500]) + "..."
		}
		fmt.Println(strings.TrimSpace(text))
		fmt.Println()
	}

	return nil
}

// retrieveOnce loads the corpus, runs one retrieval and returns the result
// with a document ID to source map for display.
func retrieveOnce(cmd *cobra.Command, text, persona string, ephemeral bool) (domain.RetrievalResult, map[string]string, error) {
	cfg := GetConfig()
	if err := applyRetrieveFlags(cmd.Flags(), cfg); err != nil {
		return domain.RetrievalResult{}, nil, err
	}

	ctx := cmd.Context()
	tokenizer := newTokenizer(cfg)
	embedder, err := newEmbedder(ctx, cfg, tokenizer)
	if err != nil {
		return domain.RetrievalResult{}, nil, err
	}

	corpus, st, err := loadCorpus(ctx, cfg, GetRootDir(), tokenizer, embedder, ephemeral)
	if err != nil {
		return domain.RetrievalResult{}, nil, err
	}
	defer st.Close()

	holder := usecase.NewCorpusHolder(corpus)
	retriever, _, err := newRetriever(cfg, holder, tokenizer, embedder)
	if err != nil {
		return domain.RetrievalResult{}, nil, err
	}

	result, err := retriever.Retrieve(ctx, domain.Query{Text: text, Persona: persona})
	if err != nil {
		return domain.RetrievalResult{}, nil, fmt.Errorf("retrieval failed: %w", err)
	}

	sources := make(map[string]string)
	for _, doc := range corpus.Documents() {
		sources[doc.ID] = doc.Source
	}
	return result, sources, nil
}
