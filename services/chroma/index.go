// Package chroma implements the vector index on an in-process chromem-go collection.
package chroma

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/sirupsen/logrus"

	"graph-rag/internal/domain"
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "research_papers"

// Index stores chunk embeddings in a chromem-go collection.
//
// chromem normalises every stored vector, which turns all-zero vectors into
// NaNs. Chunks made only of out-of-vocabulary terms are therefore kept aside
// in zeroChunks: they count towards the index size and are returned with
// similarity 0 when a query has room left after the real matches.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection

	mu         sync.RWMutex
	zeroChunks []domain.Chunk
}

var _ domain.VectorIndex = (*Index)(nil)

// errNoEmbeddingFunc guards against chromem embedding content on its own.
var errNoEmbeddingFunc = errors.New("chroma: embeddings must be precomputed")

func precomputedOnly(_ context.Context, _ string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// NewIndex creates an in-memory index with the given collection name.
func NewIndex(name string) (*Index, error) {
	if name == "" {
		name = DefaultCollection
	}
	db := chromem.NewDB()
	coll, err := db.GetOrCreateCollection(name, map[string]string{"hnsw:space": "cosine"}, precomputedOnly)
	if err != nil {
		return nil, fmt.Errorf("could not create collection: %w", err)
	}
	logrus.WithField("collection_name", name).Info("chroma: collection ready")
	return &Index{db: db, collection: coll}, nil
}

// Upsert adds chunks to the collection. Chunk ids are never reused, so this only adds.
func (i *Index) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	docs := make([]chromem.Document, 0, len(chunks))
	var zero []domain.Chunk
	for _, c := range chunks {
		if isZero(c.Embedding) {
			zero = append(zero, c)
			continue
		}
		docs = append(docs, chromem.Document{
			ID:        c.ID,
			Content:   c.Text,
			Embedding: c.Embedding,
			Metadata: map[string]string{
				"paper_id":    c.DocumentID,
				"chunk_index": strconv.Itoa(c.Index),
			},
		})
	}

	if len(docs) > 0 {
		if err := i.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("could not add documents: %w", err)
		}
	}
	if len(zero) > 0 {
		i.mu.Lock()
		i.zeroChunks = append(i.zeroChunks, zero...)
		i.mu.Unlock()
	}

	logrus.WithFields(logrus.Fields{
		"stored":      len(docs),
		"zero_vector": len(zero),
	}).Debug("chroma: chunks upserted")
	return nil
}

// Query returns up to k nearest chunks, nearest first. A zero query vector has
// no direction and matches nothing.
func (i *Index) Query(ctx context.Context, vector []float32, k int) ([]domain.VectorHit, error) {
	if k <= 0 || isZero(vector) {
		return nil, nil
	}

	n := k
	if count := i.collection.Count(); count < n {
		n = count
	}

	var hits []domain.VectorHit
	if n > 0 {
		results, err := i.collection.QueryEmbedding(ctx, vector, n, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("query failed: %w", err)
		}
		hits = make([]domain.VectorHit, 0, len(results))
		for _, r := range results {
			if math.IsNaN(float64(r.Similarity)) {
				continue
			}
			hits = append(hits, domain.VectorHit{
				ChunkID:    r.ID,
				DocumentID: r.Metadata["paper_id"],
				Text:       r.Content,
				Distance:   1 - r.Similarity,
			})
		}
	}

	if len(hits) < k {
		i.mu.RLock()
		for _, c := range i.zeroChunks {
			if len(hits) == k {
				break
			}
			hits = append(hits, domain.VectorHit{ChunkID: c.ID, DocumentID: c.DocumentID, Text: c.Text, Distance: 1})
		}
		i.mu.RUnlock()
	}
	return hits, nil
}

// Count returns the number of chunks held, including zero-vector chunks.
func (i *Index) Count(_ context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.collection.Count() + len(i.zeroChunks), nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
