// Package domain holds the types and ports shared by ingestion and querying.
package domain

import (
	"context"
	"fmt"
)

// Context entry types produced by the hybrid merge.
const (
	EntryPaper        = "paper"
	EntryRelationship = "relationship"
)

// Chunk is one embedded window of a paper's extracted text.
type Chunk struct {
	ID         string
	DocumentID string
	Index      int
	Text       string
	Embedding  []float32
}

// ChunkID derives the chunk identifier from its paper and position.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_%d", documentID, index)
}

// Paper is a document node in the graph store.
type Paper struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	SourceFile string   `json:"source_file"`
	Authors    []string `json:"authors"`
}

// VectorHit is one nearest-neighbor result. Distance is cosine distance.
type VectorHit struct {
	ChunkID    string
	DocumentID string
	Text       string
	Distance   float32
}

// Similarity converts the cosine distance back to a similarity score.
func (h VectorHit) Similarity() float32 {
	return 1 - h.Distance
}

// Relation is an outgoing typed edge from a paper.
type Relation struct {
	Type     string
	TargetID string
}

// GraphRecord is one paper matched by the graph lookup, with its authors and
// outgoing relationships.
type GraphRecord struct {
	Paper     Paper
	Relations []Relation
}

// Passage is a vector hit as exposed to callers.
type Passage struct {
	ChunkID    string  `json:"chunk_id"`
	PaperID    string  `json:"paper_id"`
	Text       string  `json:"text"`
	Similarity float32 `json:"similarity"`
}

// ContextEntry is a paper summary or a relationship edge found by the graph lookup.
type ContextEntry struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// RetrievalContext is the merged result of one question. It is never persisted.
type RetrievalContext struct {
	Question string
	Passages []Passage
	Graph    []ContextEntry
}

// PaperIDs returns the distinct paper ids referenced by the passages, in first-seen order.
func (rc *RetrievalContext) PaperIDs() []string {
	seen := make(map[string]struct{}, len(rc.Passages))
	ids := make([]string, 0, len(rc.Passages))
	for _, p := range rc.Passages {
		if _, ok := seen[p.PaperID]; ok {
			continue
		}
		seen[p.PaperID] = struct{}{}
		ids = append(ids, p.PaperID)
	}
	return ids
}

// Embedder projects text into the shared embedding space.
type Embedder interface {
	// FitOrTransform fits the space on first use and transforms afterwards.
	FitOrTransform(ctx context.Context, texts []string) ([][]float32, error)

	// Transform projects a single text. It fails with ErrNotReady before the first fit.
	Transform(ctx context.Context, text string) ([]float32, error)

	// Fitted reports whether the space has been fitted.
	Fitted() bool
}

// VectorIndex stores chunk embeddings and answers nearest-neighbor queries.
type VectorIndex interface {
	Upsert(ctx context.Context, chunks []Chunk) error
	Query(ctx context.Context, vector []float32, k int) ([]VectorHit, error)
	Count(ctx context.Context) (int, error)
}

// GraphStore holds Paper and Author nodes and their relationships.
type GraphStore interface {
	// UpsertPaper merges the paper keyed on (id, title, source file), merges its
	// authors by exact name and links them with WROTE edges.
	UpsertPaper(ctx context.Context, paper Paper) error

	// FindByTitleOrIDs returns papers whose title contains query or whose id is in
	// ids, bounded by limit.
	FindByTitleOrIDs(ctx context.Context, query string, ids []string, limit int) ([]GraphRecord, error)

	// Relate creates a typed edge between two existing papers.
	Relate(ctx context.Context, fromID, relType, toID string) error

	CountPapers(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}
