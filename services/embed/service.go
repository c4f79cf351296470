package embed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"graph-rag/internal/domain"
)

// Service owns the process-wide embedding space. The vocabulary is fitted
// exactly once, from the first batch it sees, and every later call only
// transforms under it.
type Service struct {
	MaxFeatures int
	Workers     int

	fitMu sync.Mutex
	vocab atomic.Pointer[Vocabulary]
}

var _ domain.Embedder = (*Service)(nil)

// NewService creates an unfitted embedding space.
func NewService(maxFeatures, workers int) *Service {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	if workers <= 0 {
		workers = 10
	}
	return &Service{MaxFeatures: maxFeatures, Workers: workers}
}

type embeddingJob struct {
	Index int
	Text  string
}

type embeddingResult struct {
	Index  int
	Vector []float32
}

// Fitted reports whether the vocabulary has been fitted.
func (s *Service) Fitted() bool {
	return s.vocab.Load() != nil
}

// Dimensions returns the embedding width, or 0 before the first fit.
func (s *Service) Dimensions() int {
	if v := s.vocab.Load(); v != nil {
		return v.Dimensions()
	}
	return 0
}

// FitOrTransform embeds texts. The first successful call fits the vocabulary
// on texts; concurrent first callers serialise on fitMu and the losers
// transform under the winner's vocabulary.
func (s *Service) FitOrTransform(ctx context.Context, texts []string) ([][]float32, error) {
	if v := s.vocab.Load(); v != nil {
		return s.embedTexts(ctx, v, texts)
	}

	s.fitMu.Lock()
	if v := s.vocab.Load(); v != nil {
		s.fitMu.Unlock()
		return s.embedTexts(ctx, v, texts)
	}

	log := logrus.WithField("chunks", len(texts))
	log.Info("service: fitting vectorizer for the first time")
	v, err := Fit(texts, s.MaxFeatures)
	if err != nil {
		s.fitMu.Unlock()
		log.WithError(err).Error("service: vectorizer fit failed")
		return nil, fmt.Errorf("fit vocabulary: %w", err)
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = v.Transform(t)
	}
	s.vocab.Store(v)
	s.fitMu.Unlock()

	log.WithField("dimensions", v.Dimensions()).Info("service: vectorizer fitted")
	return vectors, nil
}

// Transform projects a single text into the fitted space.
func (s *Service) Transform(ctx context.Context, text string) ([]float32, error) {
	v := s.vocab.Load()
	if v == nil {
		return nil, domain.WrapError("embed.transform", domain.ErrNotReady, nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v.Transform(text), nil
}

// embedTexts transforms texts on a pool of goroutines, keeping input order.
func (s *Service) embedTexts(ctx context.Context, v *Vocabulary, texts []string) ([][]float32, error) {
	numJobs := len(texts)
	jobs := make(chan embeddingJob, numJobs)
	results := make(chan embeddingResult, numJobs)
	numWorkers := s.Workers
	if numWorkers > numJobs {
		numWorkers = numJobs
	}
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go embeddingWorker(ctx, v, &wg, jobs, results)
	}

	for i, t := range texts {
		jobs <- embeddingJob{Index: i, Text: t}
	}
	close(jobs)

	wg.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	finalVectors := make([][]float32, numJobs)
	for res := range results {
		finalVectors[res.Index] = res.Vector
	}
	logrus.WithField("chunks", numJobs).Debug("service: transformed with existing vectorizer")
	return finalVectors, nil
}

func embeddingWorker(ctx context.Context, v *Vocabulary, wg *sync.WaitGroup, jobs <-chan embeddingJob, results chan<- embeddingResult) {
	defer wg.Done()
	for job := range jobs {
		if ctx.Err() != nil {
			continue
		}
		results <- embeddingResult{Index: job.Index, Vector: v.Transform(job.Text)}
	}
}
