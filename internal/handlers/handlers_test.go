package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graph-rag/internal/documents"
	"graph-rag/internal/domain"
	"graph-rag/internal/query"
	"graph-rag/services/chroma"
	"graph-rag/services/embed"
	"graph-rag/services/graph"
	"graph-rag/services/metadata"
	"graph-rag/services/pdf"
)

type stubExtractor struct{}

func (stubExtractor) Extract([]byte) (pdf.Result, error) {
	return pdf.Result{
		Text:       "Authors: John Smith\n\nAbstract\nKnowledge graphs support retrieval of research passages.",
		PagesOK:    1,
		PagesTotal: 1,
	}, nil
}

type downGraph struct {
	*graph.MemoryStore
}

func (downGraph) Ping(context.Context) error { return errors.New("connection refused") }

type fixture struct {
	docs   *DocumentHandler
	ask    *AskHandler
	health *HealthHandler
	graph  domain.GraphStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	emb := embed.NewService(1000, 2)
	idx, err := chroma.NewIndex("")
	require.NoError(t, err)
	g := graph.NewMemoryStore()

	svc := &documents.Service{
		Embedder:  emb,
		Index:     idx,
		Graph:     g,
		Extractor: stubExtractor{},
		Metadata:  metadata.NewHeuristic(),
		Chunker:   embed.NewChunker(),
	}
	return &fixture{
		docs:   &DocumentHandler{DocumentService: svc, MaxUploadBytes: 1 << 20},
		ask:    &AskHandler{Retriever: &query.Retriever{Embedder: emb, Index: idx, Graph: g}},
		health: &HealthHandler{Graph: g, Embedder: emb},
		graph:  g,
	}
}

func uploadRequest(t *testing.T, filename string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestUpload(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.docs.Upload(rec, uploadRequest(t, "knowledge_graphs.pdf"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "PDF processed successfully", body["message"])
	assert.Equal(t, "Knowledge Graphs", body["title"])
	assert.Equal(t, []any{"John Smith"}, body["authors"])
	assert.EqualValues(t, 1, body["chunks_processed"])
	assert.EqualValues(t, 1, body["pages_total"])
	assert.Equal(t, true, body["graph_linked"])
	assert.NotEmpty(t, body["paper_id"])
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.docs.Upload(rec, uploadRequest(t, "notes.docx"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decode(t, rec)["kind"])
}

func TestUpload_MissingFile(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.docs.Upload(rec, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsk_BeforeUploadIsConflict(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.ask.Ask(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"what is a graph?"}`)))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not_ready", decode(t, rec)["kind"])
}

func TestAsk_AfterUpload(t *testing.T) {
	f := newFixture(t)
	f.docs.Upload(httptest.NewRecorder(), uploadRequest(t, "knowledge_graphs.pdf"))

	rec := httptest.NewRecorder()
	f.ask.Ask(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"Knowledge graphs"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body["answer"], "Based on analysis of 1 relevant passages from 1 research papers")
	assert.Contains(t, body["answer_html"], "<h2>")
	require.Len(t, body["vector_context"], 1)
	graphCtx := body["graph_context"].([]any)
	require.Len(t, graphCtx, 1)
	assert.Equal(t, "paper", graphCtx[0].(map[string]any)["type"])
}

func TestAsk_BadPayload(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.ask.Ask(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	f.ask.Ask(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRelation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.graph.UpsertPaper(ctx, domain.Paper{ID: "a", Title: "A", SourceFile: "a.pdf"}))
	require.NoError(t, f.graph.UpsertPaper(ctx, domain.Paper{ID: "b", Title: "B", SourceFile: "b.pdf"}))

	r := chi.NewRouter()
	r.Post("/papers/{paperID}/relations", f.docs.CreateRelation)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"created", "/papers/a/relations", `{"type":"CITES","target_id":"b"}`, http.StatusCreated},
		{"bad type", "/papers/a/relations", `{"type":"cites me","target_id":"b"}`, http.StatusBadRequest},
		{"unknown target", "/papers/a/relations", `{"type":"CITES","target_id":"zzz"}`, http.StatusNotFound},
		{"bad json", "/papers/a/relations", `nope`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHealthAndStats(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.health.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, ServiceName, body["service"])
	assert.Equal(t, "connected", body["graph"])
	assert.Equal(t, false, body["vectorizer_fitted"])

	f.health.Graph = downGraph{graph.NewMemoryStore()}
	rec = httptest.NewRecorder()
	f.health.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "disconnected", decode(t, rec)["graph"])

	f.docs.Upload(httptest.NewRecorder(), uploadRequest(t, "one.pdf"))
	rec = httptest.NewRecorder()
	f.docs.Stats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.EqualValues(t, 1, body["papers_processed"])
	assert.EqualValues(t, 1, body["chunks_processed"])
	assert.Equal(t, true, body["vectorizer_fitted"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.ErrInvalidInput))
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrNotReady))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(domain.ErrResourceExhausted))
	assert.Equal(t, http.StatusBadGateway, statusFor(domain.ErrStoreFailure))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.ErrInternal))
}
