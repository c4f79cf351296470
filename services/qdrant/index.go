package qdrant

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/sirupsen/logrus"

	"graph-rag/internal/domain"
)

// pointNamespace derives stable point ids from chunk ids.
var pointNamespace = uuid.MustParse("6f1c8e0a-52b4-4a55-9f0e-8a3c2d7b9e41")

// Index is a VectorIndex backed by a Qdrant collection. The collection is
// created on the first upsert, once the embedding width is known.
type Index struct {
	Points      qdrant.PointsClient
	Collections qdrant.CollectionsClient
	Collection  string
	// Recreate drops a collection left over from a previous process.
	Recreate bool

	mu    sync.Mutex
	ready bool
}

var _ domain.VectorIndex = (*Index)(nil)

// PointID maps a chunk id onto the UUID Qdrant requires.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

func (i *Index) ensure(ctx context.Context, size int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.ready {
		return nil
	}
	if err := EnsureCollectionExists(ctx, i.Collections, i.Points, i.Collection, uint64(size), i.Recreate); err != nil {
		return err
	}
	i.ready = true
	return nil
}

func (i *Index) isReady() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ready
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func integerValue(n int) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(n)}}
}

// Upsert writes chunks as points and waits for the write to be applied.
func (i *Index) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := i.ensure(ctx, len(chunks[0].Embedding)); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id: &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: PointID(c.ID)}},
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{
				Vector: &qdrant.Vector{Data: c.Embedding},
			}},
			Payload: map[string]*qdrant.Value{
				"chunk_id":    stringValue(c.ID),
				"paper_id":    stringValue(c.DocumentID),
				"chunk_index": integerValue(c.Index),
				"text":        stringValue(c.Text),
			},
		})
	}

	wait := true
	_, err := i.Points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.Collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("could not upsert points: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"collection_name": i.Collection,
		"points":          len(points),
	}).Debug("qdrant: points upserted")
	return nil
}

// Query returns up to k nearest chunks, highest score first.
func (i *Index) Query(ctx context.Context, vector []float32, k int) ([]domain.VectorHit, error) {
	if k <= 0 || !i.isReady() || isZero(vector) {
		return nil, nil
	}

	resp, err := i.Points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: i.Collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]domain.VectorHit, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		payload := p.GetPayload()
		hits = append(hits, domain.VectorHit{
			ChunkID:    payload["chunk_id"].GetStringValue(),
			DocumentID: payload["paper_id"].GetStringValue(),
			Text:       payload["text"].GetStringValue(),
			Distance:   1 - p.GetScore(),
		})
	}
	return hits, nil
}

// Count returns the exact number of points in the collection.
func (i *Index) Count(ctx context.Context) (int, error) {
	if !i.isReady() {
		return 0, nil
	}
	exact := true
	resp, err := i.Points.Count(ctx, &qdrant.CountPoints{CollectionName: i.Collection, Exact: &exact})
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
