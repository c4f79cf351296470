package chroma

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graph-rag/internal/domain"
)

func chunk(doc string, i int, vec ...float32) domain.Chunk {
	return domain.Chunk{
		ID:         domain.ChunkID(doc, i),
		DocumentID: doc,
		Index:      i,
		Text:       "text of " + domain.ChunkID(doc, i),
		Embedding:  vec,
	}
}

func TestIndex_QueryReturnsNearestFirst(t *testing.T) {
	ctx := context.Background()
	idx, err := NewIndex("")
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunk("p1", 0, 1, 0, 0),
		chunk("p1", 1, 0, 1, 0),
		chunk("p2", 0, 0.8, 0.6, 0),
	}))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	hits, err := idx.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "p1_0", hits[0].ChunkID)
	assert.Equal(t, "p1", hits[0].DocumentID)
	assert.InDelta(t, 1.0, hits[0].Similarity(), 1e-5)
	assert.Equal(t, "p2_0", hits[1].ChunkID)
	assert.InDelta(t, 0.8, hits[1].Similarity(), 1e-5)
}

func TestIndex_KLargerThanCollection(t *testing.T) {
	ctx := context.Background()
	idx, err := NewIndex("small")
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunk("p1", 0, 1, 0),
		chunk("p1", 1, 0, 1),
		chunk("p1", 2, 0.6, 0.8),
	}))

	hits, err := idx.Query(ctx, []float32{0, 1}, 5)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestIndex_EmptyCollection(t *testing.T) {
	idx, err := NewIndex("empty")
	require.NoError(t, err)

	hits, err := idx.Query(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_ZeroVectors(t *testing.T) {
	ctx := context.Background()
	idx, err := NewIndex("zeros")
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		chunk("p1", 0, 1, 0),
		chunk("p1", 1, 0, 0),
	}))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	hits, err := idx.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "p1_0", hits[0].ChunkID)
	assert.Equal(t, "p1_1", hits[1].ChunkID)
	assert.InDelta(t, 0.0, hits[1].Similarity(), 1e-6)

	hits, err = idx.Query(ctx, []float32{0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits, "a zero question vector matches nothing")
}
