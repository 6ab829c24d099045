package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"roteiro/internal/domain"
	"roteiro/internal/port"
)

var (
	bucketDocs      = []byte("docs")
	bucketChunks    = []byte("chunks")
	bucketVectors   = []byte("vectors")
	bucketDocChunks = []byte("doc_chunks")
	bucketMeta      = []byte("meta")
	keyStats        = []byte("corpus_stats")
	keyVersion      = []byte("corpus_version")
	keyModel        = []byte("corpus_model")

	// corpusBuckets are dropped and recreated by ReplaceCorpus.
	corpusBuckets = [][]byte{bucketDocs, bucketChunks, bucketVectors, bucketDocChunks}
)

// BoltStore persists one corpus in a bbolt file. Chunks are keyed by their
// position so that a load returns them in corpus order.
type BoltStore struct {
	db *bbolt.DB
}

var _ port.CorpusStore = (*BoltStore)(nil)

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range append(corpusBuckets, bucketMeta) {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

type docRecord struct {
	Source  string `json:"source"`
	ModTime int64  `json:"mod_time"`
	Text    string `json:"text"`
}

type chunkRecord struct {
	ID     string   `json:"id"`
	DocID  string   `json:"doc_id"`
	Index  int      `json:"index"`
	Start  int      `json:"start"`
	End    int      `json:"end"`
	Text   string   `json:"text"`
	Tokens []string `json:"tokens"`
}

func positionKey(i int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(i))
	return key
}

// ReplaceCorpus validates the snapshot and writes it in a single
// transaction, discarding the previous corpus.
func (s *BoltStore) ReplaceCorpus(snapshot port.CorpusSnapshot) error {
	corpus, err := domain.NewCorpus(snapshot.Version, snapshot.Docs, snapshot.Chunks, snapshot.Embeddings, snapshot.Model)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range corpusBuckets {
			if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}

		docsBucket := tx.Bucket(bucketDocs)
		for _, doc := range snapshot.Docs {
			data, err := json.Marshal(docRecord{
				Source:  doc.Source,
				ModTime: doc.ModTime.Unix(),
				Text:    doc.Text,
			})
			if err != nil {
				return err
			}
			if err := docsBucket.Put([]byte(doc.ID), data); err != nil {
				return err
			}
		}

		chunksBucket := tx.Bucket(bucketChunks)
		vectorsBucket := tx.Bucket(bucketVectors)
		docChunks := make(map[string][]int)
		for i, chunk := range snapshot.Chunks {
			data, err := json.Marshal(chunkRecord{
				ID:     chunk.ID,
				DocID:  chunk.DocID,
				Index:  chunk.Index,
				Start:  chunk.Start,
				End:    chunk.End,
				Text:   chunk.Text,
				Tokens: chunk.Tokens,
			})
			if err != nil {
				return err
			}
			if err := chunksBucket.Put(positionKey(i), data); err != nil {
				return err
			}
			if len(snapshot.Embeddings) > 0 {
				if err := vectorsBucket.Put(positionKey(i), encodeVector(snapshot.Embeddings[i])); err != nil {
					return err
				}
			}
			docChunks[chunk.DocID] = append(docChunks[chunk.DocID], i)
		}

		docChunksBucket := tx.Bucket(bucketDocChunks)
		for docID, positions := range docChunks {
			data, err := json.Marshal(positions)
			if err != nil {
				return err
			}
			if err := docChunksBucket.Put([]byte(docID), data); err != nil {
				return err
			}
		}

		meta := tx.Bucket(bucketMeta)
		stats, err := json.Marshal(corpus.Stats())
		if err != nil {
			return err
		}
		if err := meta.Put(keyStats, stats); err != nil {
			return err
		}
		if err := meta.Put(keyModel, []byte(corpus.Model())); err != nil {
			return err
		}
		return meta.Put(keyVersion, []byte(snapshot.Version))
	})
}

// LoadCorpus reads the stored corpus. It returns domain.ErrNotFound when
// nothing has been stored yet.
func (s *BoltStore) LoadCorpus() (*domain.Corpus, error) {
	var (
		version, model string
		docs           []domain.Document
		chunks         []domain.Chunk
		embeddings     [][]float32
	)

	err := s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		v := meta.Get(keyVersion)
		if v == nil {
			return fmt.Errorf("%w: no corpus has been indexed", domain.ErrNotFound)
		}
		version = string(v)
		model = string(meta.Get(keyModel))

		err := tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			doc, err := decodeDoc(k, v)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
		if err != nil {
			return err
		}

		err = tx.Bucket(bucketChunks).ForEach(func(k, v []byte) error {
			chunk, err := decodeChunk(v)
			if err != nil {
				return err
			}
			chunks = append(chunks, chunk)
			return nil
		})
		if err != nil {
			return err
		}

		return tx.Bucket(bucketVectors).ForEach(func(k, v []byte) error {
			vec, err := decodeVector(v)
			if err != nil {
				return fmt.Errorf("vector %d: %w", binary.BigEndian.Uint64(k), err)
			}
			embeddings = append(embeddings, vec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return domain.NewCorpus(version, docs, chunks, embeddings, model)
}

func decodeDoc(id, data []byte) (domain.Document, error) {
	var rec docRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Document{}, fmt.Errorf("document %s: %w", id, err)
	}
	return domain.Document{
		ID:      string(id),
		Source:  rec.Source,
		ModTime: time.Unix(rec.ModTime, 0),
		Text:    rec.Text,
	}, nil
}

func decodeChunk(data []byte) (domain.Chunk, error) {
	var rec chunkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Chunk{}, err
	}
	return domain.Chunk{
		ID:     rec.ID,
		DocID:  rec.DocID,
		Index:  rec.Index,
		Start:  rec.Start,
		End:    rec.End,
		Text:   rec.Text,
		Tokens: rec.Tokens,
	}, nil
}

func (s *BoltStore) GetDoc(id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
		}
		var err error
		doc, err = decodeDoc([]byte(id), data)
		return err
	})
	return doc, err
}

func (s *BoltStore) ListDocs() ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			doc, err := decodeDoc(k, v)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
	})
	return docs, err
}

func (s *BoltStore) GetChunksByDoc(docID string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocChunks).Get([]byte(docID))
		if data == nil {
			return nil
		}
		var positions []int
		if err := json.Unmarshal(data, &positions); err != nil {
			return err
		}
		chunkBucket := tx.Bucket(bucketChunks)
		for _, pos := range positions {
			data := chunkBucket.Get(positionKey(pos))
			if data == nil {
				continue
			}
			chunk, err := decodeChunk(data)
			if err != nil {
				return err
			}
			chunks = append(chunks, chunk)
		}
		return nil
	})
	return chunks, err
}

func (s *BoltStore) GetStats() (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyStats)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &stats)
	})
	return stats, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
