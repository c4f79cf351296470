package main

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graph-rag/internal/config"
	"graph-rag/internal/router"
	"graph-rag/services/graph"
)

func TestNewApp_InProcessBackends(t *testing.T) {
	t.Setenv("GRAPH_BACKEND", config.GraphMemory)
	cfg, err := config.Parse()
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.close()

	assert.IsType(t, &graph.MemoryStore{}, a.graph)
	assert.Equal(t, int64(cfg.MaxUploadMB)<<20, a.documents.MaxBytes)
	assert.Equal(t, cfg.TopK, a.retriever.TopK)

	rec := httptest.NewRecorder()
	router.New(a.routes(), cfg.CORSOrigins).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewApp_SQLiteGraph(t *testing.T) {
	t.Setenv("GRAPH_BACKEND", config.GraphSQLite)
	t.Setenv("DB_URL", filepath.Join(t.TempDir(), "graph.db"))
	cfg, err := config.Parse()
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.close()

	assert.IsType(t, &graph.SQLStore{}, a.graph)
	assert.NoError(t, a.graph.Ping(context.Background()))
}

func TestUploadLimit(t *testing.T) {
	assert.Equal(t, int64(0), uploadLimit(0))
	assert.Equal(t, int64(0), uploadLimit(-1))
	assert.Equal(t, int64(2<<20), uploadLimit(1<<20))
}

func TestNewApp_UnboundedUpload(t *testing.T) {
	t.Setenv("GRAPH_BACKEND", config.GraphMemory)
	t.Setenv("MAX_UPLOAD_MB", "0")
	cfg, err := config.Parse()
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.close()

	h := a.routes()
	assert.Equal(t, int64(0), h.Documents.MaxUploadBytes)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "big.pdf")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), 2<<20))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.New(h, cfg.CORSOrigins).ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusRequestEntityTooLarge, rec.Code)
}
