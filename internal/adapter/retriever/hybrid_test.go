package retriever

import (
	"errors"
	"fmt"
	"testing"

	"roteiro/internal/adapter/analyzer"
	"roteiro/internal/domain"
)

func makeChunks(texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{ID: fmt.Sprintf("c%d", i), Index: i, Text: text}
	}
	return chunks
}

func TestRankDomainTermsWin(t *testing.T) {
	tokenizer := analyzer.NewTokenizer(analyzer.PortugueseStopwords)
	scorer, err := NewLexicalScorer(tokenizer, map[string]float64{
		"pqt-u":             10,
		"poliquimioterapia": 5,
		"hanseníase":        1,
	})
	if err != nil {
		t.Fatal(err)
	}
	ranker, err := NewRanker(DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}

	texts := []string{
		"Armazenar medicamentos em local seco e arejado.",
		"Conferir validade antes da entrega.",
		"Registrar cada retirada no sistema.",
		"Manter temperatura ambiente controlada.",
		"A poliquimioterapia única (PQT-U) reúne três fármacos em cartelas mensais.",
		"Higienizar bancadas diariamente.",
		"Organizar estoque por lote.",
		"Descartar embalagens vencidas corretamente.",
		"Treinar equipe periodicamente.",
		"Atualizar cadastro dos usuários.",
	}
	chunks := makeChunks(texts...)
	query := "O que é a poliquimioterapia única (PQT-U) para hanseníase?"

	results, found, err := ranker.Rank(chunks, scorer.ScoreChunks(query, chunks), nil, 3, 0.1)
	if err != nil {
		t.Fatal(err)
	}

	if !found {
		t.Fatal("expected found_relevant=true")
	}
	if results[0].Chunk.ID != "c4" {
		t.Errorf("expected c4 on top, got %s", results[0].Chunk.ID)
	}
	for _, r := range results {
		if !r.Relevant {
			t.Errorf("chunk %s returned as relevant result but not flagged", r.Chunk.ID)
		}
	}
}

func TestRankNoMatchFallsBackToFirstChunk(t *testing.T) {
	scorer, err := NewLexicalScorer(nil, map[string]float64{"hanseníase": 1})
	if err != nil {
		t.Fatal(err)
	}
	ranker, err := NewRanker(DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}

	chunks := makeChunks("primeiro trecho", "segundo trecho", "terceiro trecho")
	lexical := scorer.ScoreChunks("hanseniase", chunks)
	for i, s := range lexical {
		if s != 0 {
			t.Fatalf("chunk %d: expected lexical score 0, got %f", i, s)
		}
	}

	results, found, err := ranker.Rank(chunks, lexical, nil, 3, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("expected found_relevant=false")
	}
	if len(results) != 1 {
		t.Fatalf("expected single fallback chunk, got %d", len(results))
	}
	if results[0].Chunk.Index != 0 || results[0].Score != 0 {
		t.Errorf("expected chunk 0 with score 0, got chunk %d with %f", results[0].Chunk.Index, results[0].Score)
	}
	if results[0].Relevant {
		t.Error("fallback chunk must not be flagged relevant")
	}
}

func TestRankTiesKeepCorpusOrder(t *testing.T) {
	ranker, err := NewRanker(DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}

	chunks := makeChunks("A", "B")
	results, found, err := ranker.Rank(chunks, []float64{0.4, 0.4}, nil, 3, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	if !found || len(results) != 2 {
		t.Fatalf("expected two relevant chunks, got %d (found=%v)", len(results), found)
	}
	if results[0].Chunk.Text != "A" || results[1].Chunk.Text != "B" {
		t.Errorf("expected A before B, got %s, %s", results[0].Chunk.Text, results[1].Chunk.Text)
	}
}

func TestRankPermutationStability(t *testing.T) {
	ranker, err := NewRanker(DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}

	chunks := makeChunks("a", "b", "c")
	a, b, c := chunks[0], chunks[1], chunks[2]

	first, _, err := ranker.Rank([]domain.Chunk{a, b, c}, []float64{0.5, 0.9, 0.5}, nil, 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := ranker.Rank([]domain.Chunk{c, b, a}, []float64{0.5, 0.9, 0.5}, nil, 3, 0)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Fatalf("result sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Score != second[i].Score {
			t.Errorf("position %d: scores differ %f vs %f", i, first[i].Score, second[i].Score)
		}
	}

	for name, results := range map[string][]domain.ScoredChunk{"corpus order": first, "permuted": second} {
		got := results[0].Chunk.ID + results[1].Chunk.ID + results[2].Chunk.ID
		if got != "c1c0c2" {
			t.Errorf("%s: expected order c1c0c2, got %s", name, got)
		}
	}
}

func TestRankTiesFollowOriginalIndexNotInput(t *testing.T) {
	ranker, err := NewRanker(DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}

	chunks := makeChunks("A", "B")
	results, found, err := ranker.Rank([]domain.Chunk{chunks[1], chunks[0]}, []float64{0.4, 0.4}, nil, 3, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	if !found || len(results) != 2 {
		t.Fatalf("expected two relevant chunks, got %d (found=%v)", len(results), found)
	}
	if results[0].Chunk.Text != "A" || results[1].Chunk.Text != "B" {
		t.Errorf("expected A before B, got %s, %s", results[0].Chunk.Text, results[1].Chunk.Text)
	}
}

func TestRankTiesAcrossDocumentsFollowCorpusPosition(t *testing.T) {
	ranker, err := NewRanker(DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}

	// The second document's first chunk has the lower Index but comes later
	// in the corpus.
	corpus, err := domain.NewCorpus("v1", nil, []domain.Chunk{
		{ID: "guia-0", DocID: "guia", Index: 0, Text: "x"},
		{ID: "guia-1", DocID: "guia", Index: 1, Text: "x"},
		{ID: "tese-0", DocID: "tese", Index: 0, Text: "x"},
	}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	all := corpus.Chunks()
	input := []domain.Chunk{all[2], all[1]}

	results, _, err := ranker.Rank(input, []float64{0.4, 0.4}, nil, 2, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Chunk.ID != "guia-1" || results[1].Chunk.ID != "tese-0" {
		t.Errorf("expected guia-1 before tese-0, got %s, %s", results[0].Chunk.ID, results[1].Chunk.ID)
	}
}

func TestRankWithoutSemanticEqualsLexical(t *testing.T) {
	ranker, err := NewRanker(Weights{Semantic: 0.6, Lexical: 0.4})
	if err != nil {
		t.Fatal(err)
	}

	lexical := []float64{0.25, 11.5, 0, 0.75, 5.125}
	chunks := makeChunks("a", "b", "c", "d", "e")

	results, _, err := ranker.Rank(chunks, lexical, nil, len(chunks), -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(chunks) {
		t.Fatalf("expected %d results, got %d", len(chunks), len(results))
	}
	for _, r := range results {
		if r.Score != lexical[r.Chunk.Index] {
			t.Errorf("chunk %d: final score %v, lexical %v", r.Chunk.Index, r.Score, lexical[r.Chunk.Index])
		}
		if r.Semantic != 0 {
			t.Errorf("chunk %d: expected no semantic signal, got %v", r.Chunk.Index, r.Semantic)
		}
	}
}

func TestRankHybridBlend(t *testing.T) {
	ranker, err := NewRanker(DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}

	chunks := makeChunks("lexical", "semantic")
	results, found, err := ranker.Rank(chunks, []float64{1, 0}, []float64{0, 1}, 2, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if !found || len(results) != 2 {
		t.Fatalf("expected two relevant chunks, got %d (found=%v)", len(results), found)
	}
	if results[0].Chunk.Text != "semantic" {
		t.Errorf("expected semantic chunk first, got %s", results[0].Chunk.Text)
	}
	if !floatEquals(results[0].Score, 0.6, 1e-9) || !floatEquals(results[1].Score, 0.4, 1e-9) {
		t.Errorf("unexpected blended scores %f, %f", results[0].Score, results[1].Score)
	}
	if results[0].Semantic != 1 || results[0].Lexical != 0 {
		t.Errorf("component scores not carried through: %+v", results[0])
	}
}

func TestRankReturnsOnlyRelevantWithinTopK(t *testing.T) {
	ranker, err := NewRanker(DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}

	chunks := makeChunks("a", "b", "c", "d")
	results, found, err := ranker.Rank(chunks, []float64{0.9, 0.05, 0.5, 0.8}, nil, 2, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected found_relevant=true")
	}
	if len(results) != 2 || results[0].Chunk.Text != "a" || results[1].Chunk.Text != "d" {
		t.Errorf("expected [a d], got %+v", results)
	}

	results, _, err = ranker.Rank(chunks, []float64{0.9, 0.05, 0.5, 0.8}, nil, 4, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Errorf("expected the 3 chunks above threshold, got %d", len(results))
	}
}

func TestRankNeverEmpty(t *testing.T) {
	ranker, err := NewRanker(DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}

	chunks := makeChunks("a", "b", "c")
	for _, threshold := range []float64{-10, 0, 0.5, 100} {
		results, _, err := ranker.Rank(chunks, []float64{0.1, 0.7, 0.3}, []float64{0.2, -0.5, 0.9}, 1, threshold)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) == 0 {
			t.Errorf("threshold %v: empty result for non-empty corpus", threshold)
		}
	}
}

func TestRankEmptyCorpus(t *testing.T) {
	ranker, err := NewRanker(DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}

	results, found, err := ranker.Rank(nil, nil, nil, 3, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if results != nil || found {
		t.Errorf("expected empty, non-relevant result, got %v (found=%v)", results, found)
	}
}

func TestRankErrors(t *testing.T) {
	ranker, err := NewRanker(DefaultWeights)
	if err != nil {
		t.Fatal(err)
	}
	chunks := makeChunks("a", "b")

	if _, _, err := ranker.Rank(chunks, []float64{1}, nil, 1, 0); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for short lexical scores, got %v", err)
	}
	if _, _, err := ranker.Rank(chunks, []float64{1, 1}, []float64{1}, 1, 0); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for short semantic scores, got %v", err)
	}
	if _, _, err := ranker.Rank(chunks, []float64{1, 1}, nil, 0, 0); !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for top_k=0, got %v", err)
	}
}

func TestNewRankerValidatesWeights(t *testing.T) {
	for _, w := range []Weights{{Semantic: -0.1, Lexical: 1}, {Semantic: 1, Lexical: -1}, {}} {
		if _, err := NewRanker(w); !errors.Is(err, domain.ErrInvalidConfiguration) {
			t.Errorf("weights %+v: expected ErrInvalidConfiguration, got %v", w, err)
		}
	}
	if _, err := NewRanker(Weights{Semantic: 0, Lexical: 1}); err != nil {
		t.Errorf("lexical-only weights should be valid: %v", err)
	}
}

func TestRankWithMMRSkipsDuplicates(t *testing.T) {
	ranker, err := NewRanker(DefaultWeights, WithMMR(0.5, 0.5))
	if err != nil {
		t.Fatal(err)
	}

	chunks := []domain.Chunk{
		{ID: "c1", Tokens: []string{"dose", "mensal", "rifampicina"}},
		{ID: "c2", Tokens: []string{"dose", "mensal", "rifampicina"}},
		{ID: "c3", Tokens: []string{"armazenamento", "seco"}},
	}

	results, found, err := ranker.Rank(chunks, []float64{1, 0.9, 0.1}, nil, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !found || len(results) != 2 {
		t.Fatalf("expected 2 results, got %d (found=%v)", len(results), found)
	}
	if results[0].Chunk.ID != "c1" || results[1].Chunk.ID != "c3" {
		t.Errorf("expected [c1 c3], got [%s %s]", results[0].Chunk.ID, results[1].Chunk.ID)
	}
}
