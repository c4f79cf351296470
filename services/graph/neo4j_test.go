package graph

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcneo4j "github.com/testcontainers/testcontainers-go/modules/neo4j"

	"graph-rag/internal/domain"
)

func TestDecodeRecord(t *testing.T) {
	rec := &neo4j.Record{
		Keys: []string{"p", "authors", "relationships"},
		Values: []any{
			neo4j.Node{
				ElementId: "4:abc:1",
				Labels:    []string{"Paper"},
				Props:     map[string]any{"id": "p1", "title": "graph rag", "source_file": "graph_rag.pdf"},
			},
			[]any{"Ada Lovelace", "Alan Turing"},
			[]any{
				map[string]any{"type": "CITES", "target": "p2"},
				map[string]any{"type": nil, "target": nil},
			},
		},
	}

	gr, err := decodeRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, domain.Paper{ID: "p1", Title: "graph rag", SourceFile: "graph_rag.pdf", Authors: []string{"Ada Lovelace", "Alan Turing"}}, gr.Paper)
	assert.Equal(t, []domain.Relation{{Type: "CITES", TargetID: "p2"}}, gr.Relations)
}

func TestDecodeRecord_NoRelationships(t *testing.T) {
	rec := &neo4j.Record{
		Keys: []string{"p", "authors", "relationships"},
		Values: []any{
			neo4j.Node{Props: map[string]any{"id": "p1", "title": "t", "source_file": "t.pdf"}},
			[]any{},
			[]any{map[string]any{"type": nil, "target": nil}},
		},
	}

	gr, err := decodeRecord(rec)
	require.NoError(t, err)
	assert.Empty(t, gr.Paper.Authors)
	assert.Empty(t, gr.Relations)
}

func TestDecodeRecord_NotANode(t *testing.T) {
	_, err := decodeRecord(&neo4j.Record{Keys: []string{"p"}, Values: []any{"oops"}})
	assert.Error(t, err)

	_, err = decodeRecord(&neo4j.Record{})
	assert.Error(t, err)
}

func TestNeo4jStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping neo4j container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	ctr, err := tcneo4j.Run(ctx, "neo4j:5", tcneo4j.WithAdminPassword("password"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.BoltUrl(ctx)
	require.NoError(t, err)
	store, err := NewNeo4jStore(ctx, uri, "neo4j", "password", "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	runStoreSuite(t, func(t *testing.T) domain.GraphStore {
		t.Helper()
		_, err := neo4j.ExecuteQuery(ctx, store.Driver, `MATCH (n) DETACH DELETE n`, nil, neo4j.EagerResultTransformer)
		require.NoError(t, err)
		return store
	})
}
