package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, VectorChromem, cfg.VectorBackend)
	assert.Equal(t, GraphNeo4j, cfg.GraphBackend)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4jURI)
	assert.Equal(t, 1000, cfg.MaxFeatures)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 10, cfg.GraphResultLimit)
	assert.Equal(t, 200, cfg.IngestMaxChunks)
	assert.Equal(t, 200, cfg.MinFreeMemoryMB)
	assert.True(t, cfg.QdrantRecreate)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("GRAPH_BACKEND", "sqlite")
	t.Setenv("DB_URL", "file:graph.db")
	t.Setenv("RETRIEVAL_TOP_K", "3")
	t.Setenv("CORS_ORIGINS", "http://a,http://b")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, GraphSQLite, cfg.GraphBackend)
	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.CORSOrigins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown vector backend", map[string]string{"VECTOR_BACKEND": "faiss"}},
		{"qdrant without host", map[string]string{"VECTOR_BACKEND": "qdrant"}},
		{"unknown graph backend", map[string]string{"GRAPH_BACKEND": "arango"}},
		{"postgres without url", map[string]string{"GRAPH_BACKEND": "postgres"}},
		{"zero top k", map[string]string{"RETRIEVAL_TOP_K": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}
