package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"roteiro/internal/adapter/analyzer"
	"roteiro/internal/domain"
	"roteiro/internal/port"
)

const (
	defaultEmbedBatchSize = 64
	defaultReadWorkers    = 8
	defaultEmbedRetries   = 3
)

// Index stages reported to a ProgressFunc.
const (
	StageRead  = "read"
	StageChunk = "chunk"
	StageEmbed = "embed"
)

// ProgressFunc is called as each stage advances. It may be nil.
type ProgressFunc func(stage string, done, total int)

// IndexOptions tunes corpus building.
type IndexOptions struct {
	EmbedBatchSize int
	ReadWorkers    int
	EmbedRetries   uint64
}

// IndexUseCase builds a corpus from a knowledge-base directory and persists
// it as a single replacement.
type IndexUseCase struct {
	store    port.CorpusStore
	walker   port.FileWalker
	reader   port.FileReader
	chunker  port.Chunker
	embedder port.Embedder
	opts     IndexOptions
	logger   zerolog.Logger

	newBackOff func() backoff.BackOff
}

// NewIndexUseCase wires corpus building. embedder may be nil for a
// lexical-only corpus.
func NewIndexUseCase(
	store port.CorpusStore,
	walker port.FileWalker,
	reader port.FileReader,
	chunker port.Chunker,
	embedder port.Embedder,
	opts IndexOptions,
	logger zerolog.Logger,
) *IndexUseCase {
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = defaultEmbedBatchSize
	}
	if opts.ReadWorkers <= 0 {
		opts.ReadWorkers = defaultReadWorkers
	}
	if opts.EmbedRetries == 0 {
		opts.EmbedRetries = defaultEmbedRetries
	}
	return &IndexUseCase{
		store:    store,
		walker:   walker,
		reader:   reader,
		chunker:  chunker,
		embedder: embedder,
		opts:     opts,
		logger:   logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = time.Minute
			return b
		},
	}
}

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	FilesIndexed  int
	ChunksCreated int
	Embedded      int
	Version       string
	Model         string
	Errors        []string
	Corpus        *domain.Corpus
}

// Index reads every knowledge-base file under root, chunks and optionally
// embeds the text, and replaces the stored corpus. Unreadable files are
// skipped and reported in Errors. An embedding failure leaves the corpus
// lexical-only rather than failing the build.
func (u *IndexUseCase) Index(ctx context.Context, root string, progress ProgressFunc) (*IndexResult, error) {
	if progress == nil {
		progress = func(string, int, int) {}
	}
	result := &IndexResult{}

	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	docs, readErrs, err := u.readDocuments(ctx, root, files, progress)
	if err != nil {
		return nil, err
	}
	result.Errors = append(result.Errors, readErrs...)
	result.FilesIndexed = len(docs)

	var chunks []domain.Chunk
	for i, doc := range docs {
		docChunks, err := u.chunker.Chunk(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to chunk %s: %w", doc.Source, err)
		}
		chunks = append(chunks, docChunks...)
		progress(StageChunk, i+1, len(docs))
	}
	result.ChunksCreated = len(chunks)

	var (
		embeddings [][]float32
		model      string
	)
	if u.embedder != nil && len(chunks) > 0 {
		embeddings, err = u.embedChunks(ctx, chunks, progress)
		switch {
		case err == nil:
			model = u.embedder.ModelName()
			result.Embedded = len(embeddings)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			u.logger.Warn().Err(err).Msg("embedding failed, corpus will be lexical-only")
			result.Errors = append(result.Errors, fmt.Sprintf("embedding skipped: %v", err))
			embeddings = nil
		}
	}

	version := corpusVersion(docs, chunks, model)
	corpus, err := domain.NewCorpus(version, docs, chunks, embeddings, model)
	if err != nil {
		return nil, fmt.Errorf("failed to build corpus: %w", err)
	}

	snapshot := port.CorpusSnapshot{
		Version:    version,
		Model:      corpus.Model(),
		Docs:       docs,
		Chunks:     chunks,
		Embeddings: embeddings,
	}
	if err := u.store.ReplaceCorpus(snapshot); err != nil {
		return nil, fmt.Errorf("failed to store corpus: %w", err)
	}

	result.Version = version
	result.Model = corpus.Model()
	result.Corpus = corpus

	u.logger.Info().
		Int("files", result.FilesIndexed).
		Int("chunks", result.ChunksCreated).
		Int("embedded", result.Embedded).
		Str("version", version).
		Msg("corpus indexed")
	return result, nil
}

// readDocuments reads files concurrently. The returned documents are in
// source order regardless of completion order.
func (u *IndexUseCase) readDocuments(ctx context.Context, root string, files []port.FileInfo, progress ProgressFunc) ([]domain.Document, []string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, err
	}

	docs := make([]*domain.Document, len(files))
	errs := make([]error, len(files))

	var (
		mu   sync.Mutex
		read int
	)
	advance := func() {
		mu.Lock()
		defer mu.Unlock()
		read++
		progress(StageRead, read, len(files))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.opts.ReadWorkers)

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer advance()

			text, err := u.reader.ReadFile(file.Path)
			if err != nil {
				errs[i] = err
				return nil
			}

			source, err := filepath.Rel(absRoot, file.Path)
			if err != nil {
				source = file.Path
			}
			source = filepath.ToSlash(source)

			docs[i] = &domain.Document{
				ID:      generateDocID(source),
				Source:  source,
				Text:    analyzer.NormalizeText(text),
				ModTime: time.Unix(file.ModTime, 0).UTC(),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		out      []domain.Document
		messages []string
	)
	for i, doc := range docs {
		if errs[i] != nil {
			u.logger.Warn().Err(errs[i]).Str("path", files[i].Path).Msg("skipping unreadable file")
			messages = append(messages, fmt.Sprintf("failed to read %s: %v", files[i].Path, errs[i]))
			continue
		}
		if doc.Text == "" {
			continue
		}
		out = append(out, *doc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Source < out[j].Source
	})
	return out, messages, nil
}

// embedChunks embeds chunk texts in batches, retrying each batch with
// exponential backoff.
func (u *IndexUseCase) embedChunks(ctx context.Context, chunks []domain.Chunk, progress ProgressFunc) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(chunks))
	batchSize := u.opts.EmbedBatchSize
	dim := 0

	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		policy := backoff.WithContext(backoff.WithMaxRetries(u.newBackOff(), u.opts.EmbedRetries), ctx)
		vectors, err := backoff.RetryWithData(func() ([][]float32, error) {
			vectors, err := u.embedder.Embed(ctx, texts)
			if err != nil {
				if errors.Is(err, domain.ErrInvalidConfiguration) {
					return nil, backoff.Permanent(err)
				}
				u.logger.Debug().Err(err).Int("batch_start", start).Msg("embedding batch failed, retrying")
				return nil, err
			}
			if len(vectors) != len(texts) {
				return nil, backoff.Permanent(fmt.Errorf("%w: %d vectors for %d texts", domain.ErrDimensionMismatch, len(vectors), len(texts)))
			}
			return vectors, nil
		}, policy)
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}

		// Every vector must share the first one's dimension, across batches.
		for i, vec := range vectors {
			if dim == 0 {
				dim = len(vec)
			}
			if len(vec) == 0 || len(vec) != dim {
				return nil, fmt.Errorf("%w: chunk %d has dimension %d, expected %d", domain.ErrDimensionMismatch, start+i, len(vec), dim)
			}
		}

		embeddings = append(embeddings, vectors...)
		progress(StageEmbed, end, len(chunks))
	}

	return embeddings, nil
}

// corpusVersion hashes everything that determines retrieval output: the
// normalized texts, the chunk spans and the embedding model.
func corpusVersion(docs []domain.Document, chunks []domain.Chunk, model string) string {
	h := sha256.New()
	var buf [8]byte
	for _, doc := range docs {
		h.Write([]byte(doc.Source))
		h.Write([]byte{0})
		h.Write([]byte(doc.Text))
		h.Write([]byte{0})
	}
	for _, c := range chunks {
		h.Write([]byte(c.DocID))
		binary.BigEndian.PutUint64(buf[:], uint64(c.Start))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(c.End))
		h.Write(buf[:])
	}
	h.Write([]byte(model))
	return hex.EncodeToString(h.Sum(nil)[:8])
}

// generateDocID creates a stable ID for a document from its source label.
func generateDocID(source string) string {
	hash := sha256.Sum256([]byte(source))
	return hex.EncodeToString(hash[:8])
}
