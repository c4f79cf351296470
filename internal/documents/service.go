// Package documents ingests papers into the vector index and the graph store.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"graph-rag/internal/domain"
	"graph-rag/internal/sysmem"
	"graph-rag/services/embed"
	"graph-rag/services/metadata"
	"graph-rag/services/pdf"
)

// DefaultMaxChunks caps how many chunks of one paper are embedded.
const DefaultMaxChunks = 200

// TextExtractor turns an uploaded file into text.
type TextExtractor interface {
	Extract(data []byte) (pdf.Result, error)
}

// Service handles the business logic for papers.
type Service struct {
	Embedder  domain.Embedder
	Index     domain.VectorIndex
	Graph     domain.GraphStore
	Extractor TextExtractor
	Metadata  metadata.Extractor
	Chunker   *embed.Chunker
	Memory    *sysmem.Guard
	MaxChunks int
	// MaxBytes bounds the upload size; zero means unbounded.
	MaxBytes int64
	// NewID generates paper ids.
	NewID func() string
}

// IngestResult describes one processed paper.
type IngestResult struct {
	PaperID         string   `json:"paper_id"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	ChunksProcessed int      `json:"chunks_processed"`
	PagesExtracted  int      `json:"pages_extracted"`
	PagesTotal      int      `json:"pages_total"`
	GraphLinked     bool     `json:"graph_linked"`
}

// Stats are the counters exposed by the stats endpoint.
type Stats struct {
	PapersProcessed  int  `json:"papers_processed"`
	ChunksProcessed  int  `json:"chunks_processed"`
	VectorizerFitted bool `json:"vectorizer_fitted"`
}

// Ingest runs one paper through extraction, chunking, embedding and storage.
// The vector index is written first and its failure aborts the ingestion; the
// graph write comes last and its failure is only reported in GraphLinked.
func (s *Service) Ingest(ctx context.Context, filename string, body io.Reader) (*IngestResult, error) {
	const op = "documents.ingest"
	log := logrus.WithField("filename", filename)
	log.Info("service: starting upload processing")

	if !s.Memory.Available(ctx) {
		return nil, domain.WrapError(op, domain.ErrResourceExhausted, fmt.Errorf("insufficient memory available for processing"))
	}
	if !strings.HasSuffix(filename, ".pdf") {
		log.Warn("service: rejected non-pdf upload")
		return nil, domain.WrapError(op, domain.ErrInvalidInput, fmt.Errorf("only PDF files are supported"))
	}

	data, err := s.read(body)
	if err != nil {
		return nil, domain.WrapError(op, domain.ErrInvalidInput, err)
	}
	log.WithField("bytes", len(data)).Info("service: file read")

	extracted, err := s.Extractor.Extract(data)
	if err != nil {
		return nil, err
	}

	md := s.Metadata.Extract(extracted.Text, filename)
	paper := domain.Paper{ID: s.newID(), Title: md.Title, SourceFile: filename, Authors: md.Authors}
	log = log.WithField("paper_id", paper.ID)
	log.WithFields(logrus.Fields{"title": paper.Title, "authors": paper.Authors}).Info("service: metadata extracted")

	texts := s.Chunker.Split(extracted.Text)
	maxChunks := s.MaxChunks
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}
	if len(texts) > maxChunks {
		log.WithFields(logrus.Fields{"chunks": len(texts), "limit": maxChunks}).Warn("service: too many chunks, truncating")
		texts = texts[:maxChunks]
	}

	vectors, err := s.Embedder.FitOrTransform(ctx, texts)
	if err != nil {
		log.WithError(err).Error("service: embedding creation failed")
		return nil, domain.WrapError(op, domain.ErrInternal, err)
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ID:         domain.ChunkID(paper.ID, i),
			DocumentID: paper.ID,
			Index:      i,
			Text:       text,
			Embedding:  vectors[i],
		}
	}
	if err := s.Index.Upsert(ctx, chunks); err != nil {
		log.WithError(err).Error("service: vector index storage failed")
		return nil, domain.WrapError(op, domain.ErrStoreFailure, err)
	}

	linked := true
	if err := s.Graph.UpsertPaper(ctx, paper); err != nil {
		log.WithError(err).Error("service: graph storage failed, continuing without graph link")
		linked = false
	}

	res := &IngestResult{
		PaperID:         paper.ID,
		Title:           paper.Title,
		Authors:         paper.Authors,
		ChunksProcessed: len(chunks),
		PagesExtracted:  extracted.PagesOK,
		PagesTotal:      extracted.PagesTotal,
		GraphLinked:     linked,
	}
	log.WithFields(logrus.Fields{
		"chunks_processed": res.ChunksProcessed,
		"graph_linked":     res.GraphLinked,
	}).Info("service: upload completed successfully")
	return res, nil
}

func (s *Service) read(body io.Reader) ([]byte, error) {
	if s.MaxBytes <= 0 {
		return io.ReadAll(body)
	}
	data, err := io.ReadAll(io.LimitReader(body, s.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.MaxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", s.MaxBytes)
	}
	return data, nil
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// Relate links two papers with a typed relationship.
func (s *Service) Relate(ctx context.Context, fromID, relType, toID string) error {
	const op = "documents.relate"
	log := logrus.WithFields(logrus.Fields{"from": fromID, "type": relType, "to": toID})

	if !domain.ValidRelationType(relType) {
		return domain.WrapError(op, domain.ErrInvalidInput, fmt.Errorf("relationship type %q is not allowed", relType))
	}
	if fromID == "" || toID == "" {
		return domain.WrapError(op, domain.ErrInvalidInput, fmt.Errorf("both paper ids are required"))
	}

	if err := s.Graph.Relate(ctx, fromID, relType, toID); err != nil {
		if kind := domain.KindOf(err); kind != domain.ErrInternal {
			return err
		}
		log.WithError(err).Error("service: failed to create relationship")
		return domain.WrapError(op, domain.ErrStoreFailure, err)
	}
	log.Info("service: relationship created")
	return nil
}

// Stats reports paper and chunk counts. A store that cannot count reports zero.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{VectorizerFitted: s.Embedder.Fitted()}

	var errs []error
	papers, err := s.Graph.CountPapers(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	chunks, err := s.Index.Count(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	stats.PapersProcessed = papers
	stats.ChunksProcessed = chunks

	if err := errors.Join(errs...); err != nil {
		logrus.WithError(err).Error("service: failed to collect stats")
		return stats, domain.WrapError("documents.stats", domain.ErrStoreFailure, err)
	}
	return stats, nil
}
