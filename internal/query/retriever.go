// Package query answers questions from the vector index and the graph store.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"graph-rag/internal/domain"
)

// Defaults of the hybrid retrieval.
const (
	DefaultTopK       = 5
	DefaultGraphLimit = 10
	maxQuestionLength = 4096
	// The graph lookup always receives at least one candidate id.
	noCandidates = ""
)

// Retriever combines nearest-neighbor passages with the graph neighbourhood of
// the papers they came from. It performs no writes.
type Retriever struct {
	Embedder   domain.Embedder
	Index      domain.VectorIndex
	Graph      domain.GraphStore
	TopK       int
	GraphLimit int
}

// Retrieve runs the query flow for one question. Any store failure ends it.
func (r *Retriever) Retrieve(ctx context.Context, question string) (*domain.RetrievalContext, error) {
	const op = "query.retrieve"
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(op, domain.ErrInvalidInput, errors.New("question is required"))
	}
	if len(question) > maxQuestionLength {
		return nil, domain.WrapError(op, domain.ErrInvalidInput, fmt.Errorf("question longer than %d bytes", maxQuestionLength))
	}
	log := logrus.WithField("question", question)
	log.Info("service: processing question")

	vec, err := r.Embedder.Transform(ctx, question)
	if err != nil {
		if domain.KindOf(err) == domain.ErrNotReady {
			log.Warn("service: question before any upload")
			return nil, err
		}
		return nil, domain.WrapError(op, domain.ErrInternal, err)
	}

	hits, err := r.Index.Query(ctx, vec, r.topK())
	if err != nil {
		log.WithError(err).Error("service: vector search failed")
		return nil, domain.WrapError(op, domain.ErrStoreFailure, err)
	}

	rc := &domain.RetrievalContext{Question: question, Passages: make([]domain.Passage, 0, len(hits))}
	for _, h := range hits {
		rc.Passages = append(rc.Passages, domain.Passage{
			ChunkID:    h.ChunkID,
			PaperID:    h.DocumentID,
			Text:       h.Text,
			Similarity: h.Similarity(),
		})
	}

	candidates := rc.PaperIDs()
	if len(candidates) == 0 {
		candidates = []string{noCandidates}
	}

	records, err := r.Graph.FindByTitleOrIDs(ctx, strings.ToLower(question), candidates, r.graphLimit())
	if err != nil {
		log.WithError(err).Error("service: graph lookup failed")
		return nil, domain.WrapError(op, domain.ErrStoreFailure, err)
	}
	rc.Graph = Merge(records)

	log.WithFields(logrus.Fields{
		"passages":      len(rc.Passages),
		"graph_entries": len(rc.Graph),
	}).Info("service: question answered")
	return rc, nil
}

// Merge flattens graph records into one paper entry per record followed by one
// relationship entry per outgoing edge, keeping store order.
func Merge(records []domain.GraphRecord) []domain.ContextEntry {
	entries := make([]domain.ContextEntry, 0, len(records))
	for _, rec := range records {
		authors := rec.Paper.Authors
		if authors == nil {
			authors = []string{}
		}
		entries = append(entries, domain.ContextEntry{
			Type: domain.EntryPaper,
			Data: map[string]any{
				"id":          rec.Paper.ID,
				"title":       rec.Paper.Title,
				"authors":     authors,
				"source_file": rec.Paper.SourceFile,
			},
		})
		for _, rel := range rec.Relations {
			if rel.TargetID == "" {
				continue
			}
			entries = append(entries, domain.ContextEntry{
				Type: domain.EntryRelationship,
				Data: map[string]any{
					"from": rec.Paper.ID,
					"type": rel.Type,
					"to":   rel.TargetID,
				},
			})
		}
	}
	return entries
}

func (r *Retriever) topK() int {
	if r.TopK > 0 {
		return r.TopK
	}
	return DefaultTopK
}

func (r *Retriever) graphLimit() int {
	if r.GraphLimit > 0 {
		return r.GraphLimit
	}
	return DefaultGraphLimit
}
