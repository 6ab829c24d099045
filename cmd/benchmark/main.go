package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"roteiro/config"
	"roteiro/internal/adapter/analyzer"
	"roteiro/internal/adapter/embedding"
	"roteiro/internal/adapter/retriever"
	"roteiro/internal/adapter/store"
	"roteiro/internal/domain"
	"roteiro/internal/port"
	"roteiro/internal/usecase"
)

// benchCase is one labelled question: retrieval passes when Expect occurs
// in the assembled context.
type benchCase struct {
	Query  string `yaml:"query"`
	Expect string `yaml:"expect"`
}

func main() {
	indexPath := flag.String("index", ".", "Path to indexed directory")
	query := flag.String("q", "", "Single query to test")
	expect := flag.String("expect", "", "Text the context must contain for -q")
	casesPath := flag.String("cases", "", "YAML file with a list of {query, expect} cases")
	flag.Parse()

	cases, err := loadCases(*casesPath, *query, *expect)
	if err != nil || len(cases) == 0 {
		fmt.Println("Usage: go run ./cmd/benchmark -index ./tese -q \"query\" -expect \"PQT-U\"")
		fmt.Println("       go run ./cmd/benchmark -index ./tese -cases casos.yaml")
		fmt.Println("\nCompares hybrid ranking with lexical-only ranking on labelled questions.")
		if err != nil {
			fmt.Fprintf(os.Stderr, "\n%v\n", err)
		}
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	st, err := store.NewBoltStore(config.CorpusDBPath(*indexPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening corpus: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	corpus, err := st.LoadCorpus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading corpus: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	tokenizer := analyzer.NewTokenizer(cfg.Lexical.Stopwords)
	holder := usecase.NewCorpusHolder(corpus)

	lexicalOnly, err := newRetrieval(cfg, holder, tokenizer, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var hybrid *usecase.RetrieveUseCase
	if corpus.HasEmbeddings() && cfg.Embedding.Enabled {
		embedder, err := embedding.New(ctx, embedding.Options{
			Provider:  cfg.Embedding.Provider,
			Model:     cfg.Embedding.Model,
			BaseURL:   cfg.Embedding.BaseURL,
			APIKey:    cfg.APIKey(),
			Dimension: cfg.Embedding.Dimension,
			Tokenizer: tokenizer,
		})
		switch {
		case errors.Is(err, domain.ErrEmbeddingUnavailable):
			fmt.Fprintf(os.Stderr, "Semantic ranking not available: %v\n", err)
		case err != nil:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		default:
			if hybrid, err = newRetrieval(cfg, holder, tokenizer, embedder); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Corpus: %s (%d chunks, model %q)\n", corpus.Version(), corpus.Len(), corpus.Model())
	fmt.Printf("Cases:  %d\n\n", len(cases))

	var lexHits, hybHits, hybRuns int
	var lexRR, hybRR float64
	for i, c := range cases {
		fmt.Printf("%d. %s\n", i+1, c.Query)

		res, err := lexicalOnly.Retrieve(ctx, domain.Query{Text: c.Query})
		if err != nil {
			fmt.Fprintf(os.Stderr, "   lexical error: %v\n", err)
			continue
		}
		ok := hit(res, c.Expect)
		if ok {
			lexHits++
		}
		rr := retriever.ReciprocalRank(res.Chunks, matcher(c.Expect))
		lexRR += rr
		report("lexical", res, ok, rr)

		if hybrid == nil {
			continue
		}
		res, err = hybrid.Retrieve(ctx, domain.Query{Text: c.Query})
		if err != nil {
			fmt.Fprintf(os.Stderr, "   hybrid error: %v\n", err)
			continue
		}
		hybRuns++
		ok = hit(res, c.Expect)
		if ok {
			hybHits++
		}
		rr = retriever.ReciprocalRank(res.Chunks, matcher(c.Expect))
		hybRR += rr
		report("hybrid", res, ok, rr)
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Lexical hit rate: %.2f (%d/%d)  MRR: %.3f\n", rate(lexHits, len(cases)), lexHits, len(cases), lexRR/float64(len(cases)))
	if hybRuns > 0 {
		fmt.Printf("  Hybrid hit rate:  %.2f (%d/%d)  MRR: %.3f\n", rate(hybHits, hybRuns), hybHits, hybRuns, hybRR/float64(hybRuns))
	} else {
		fmt.Println("  Hybrid hit rate:  n/a (no embeddings)")
	}
}

func loadCases(path, query, expect string) ([]benchCase, error) {
	if path == "" {
		if query == "" {
			return nil, nil
		}
		return []benchCase{{Query: query, Expect: expect}}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cases []benchCase
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cases, nil
}

func newRetrieval(cfg *config.Config, holder *usecase.CorpusHolder, tokenizer *analyzer.Tokenizer, embedder port.Embedder) (*usecase.RetrieveUseCase, error) {
	lexical, err := retriever.NewLexicalScorer(tokenizer, cfg.DomainTerms,
		retriever.WithSynonyms(retriever.NewQueryExpander(cfg.Synonyms)))
	if err != nil {
		return nil, err
	}
	ranker, err := retriever.NewRanker(retriever.Weights{
		Semantic: cfg.Retrieve.SemanticWeight,
		Lexical:  cfg.Retrieve.LexicalWeight,
	})
	if err != nil {
		return nil, err
	}
	return usecase.NewRetrieveUseCase(holder, lexical, ranker, embedder, usecase.RetrieveOptions{
		TopK:               cfg.Retrieve.TopK,
		RelevanceThreshold: cfg.Retrieve.RelevanceThreshold,
		MaxContextLength:   cfg.Retrieve.MaxContextLength,
		EmbedTimeout:       cfg.Retrieve.EmbedTimeout,
	}, zerolog.Nop())
}

func hit(res domain.RetrievalResult, expect string) bool {
	if expect == "" {
		return res.FoundRelevant
	}
	return strings.Contains(analyzer.Fold(res.Context), analyzer.Fold(expect))
}

// matcher accepts chunks containing expect, or relevant chunks when no
// expectation is given.
func matcher(expect string) retriever.ChunkMatcher {
	if expect == "" {
		return func(domain.Chunk) bool { return true }
	}
	want := analyzer.Fold(expect)
	return func(c domain.Chunk) bool {
		return strings.Contains(analyzer.Fold(c.Text), want)
	}
}

func report(label string, res domain.RetrievalResult, ok bool, rr float64) {
	status := "MISS"
	if ok {
		status = "HIT"
	}
	top := 0.0
	if len(res.Chunks) > 0 {
		top = res.Chunks[0].Score
	}
	fmt.Printf("   %-8s %-4s top=%.3f rr=%.3f relevant=%v chunks=%d\n", label, status, top, rr, res.FoundRelevant, len(res.Chunks))
}

func rate(hits, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
