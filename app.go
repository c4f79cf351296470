package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"graph-rag/internal/config"
	"graph-rag/internal/db"
	"graph-rag/internal/documents"
	"graph-rag/internal/domain"
	"graph-rag/internal/handlers"
	"graph-rag/internal/query"
	"graph-rag/internal/router"
	"graph-rag/internal/sysmem"
	"graph-rag/services/chroma"
	"graph-rag/services/embed"
	"graph-rag/services/graph"
	"graph-rag/services/metadata"
	"graph-rag/services/pdf"
	"graph-rag/services/qdrant"
)

// app holds the process-wide services. The embedding space lives here and is
// shared by ingestion and querying.
type app struct {
	cfg       *config.Config
	embedder  *embed.Service
	index     domain.VectorIndex
	graph     domain.GraphStore
	documents *documents.Service
	retriever *query.Retriever

	qdrantConn *grpc.ClientConn
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, embedder: embed.NewService(cfg.MaxFeatures, cfg.EmbedWorkers)}

	logrus.WithField("backend", cfg.VectorBackend).Debug("initializing vector index")
	if err := a.openIndex(ctx); err != nil {
		return nil, err
	}

	logrus.WithField("backend", cfg.GraphBackend).Debug("initializing graph store")
	if err := a.openGraph(ctx); err != nil {
		a.close()
		return nil, err
	}

	a.documents = &documents.Service{
		Embedder:  a.embedder,
		Index:     a.index,
		Graph:     a.graph,
		Extractor: pdf.Extractor{},
		Metadata:  metadata.NewHeuristic(),
		Chunker:   embed.NewChunker(),
		Memory:    sysmem.NewGuard(cfg.MinFreeMemoryMB),
		MaxChunks: cfg.IngestMaxChunks,
		MaxBytes:  int64(cfg.MaxUploadMB) << 20,
	}
	a.retriever = &query.Retriever{
		Embedder:   a.embedder,
		Index:      a.index,
		Graph:      a.graph,
		TopK:       cfg.TopK,
		GraphLimit: cfg.GraphResultLimit,
	}
	logrus.Info("services initialized successfully")
	return a, nil
}

func (a *app) openIndex(ctx context.Context) error {
	switch a.cfg.VectorBackend {
	case config.VectorQdrant:
		points, collections, conn, err := qdrant.NewClient(ctx, a.cfg.QdrantHost, a.cfg.QdrantPort)
		if err != nil {
			return err
		}
		a.qdrantConn = conn
		a.index = &qdrant.Index{
			Points:      points,
			Collections: collections,
			Collection:  a.cfg.Collection,
			Recreate:    a.cfg.QdrantRecreate,
		}
	default:
		idx, err := chroma.NewIndex(a.cfg.Collection)
		if err != nil {
			return err
		}
		a.index = idx
	}
	return nil
}

func (a *app) openGraph(ctx context.Context) error {
	switch a.cfg.GraphBackend {
	case config.GraphNeo4j:
		store, err := graph.NewNeo4jStore(ctx, a.cfg.Neo4jURI, a.cfg.Neo4jUsername, a.cfg.Neo4jPassword, a.cfg.Neo4jDatabase)
		if err != nil {
			return err
		}
		a.graph = store
	case config.GraphSQLite, config.GraphPostgres:
		driver := db.SQLite
		if a.cfg.GraphBackend == config.GraphPostgres {
			driver = db.Postgres
		}
		conn, err := db.Open(ctx, driver, a.cfg.DBURL)
		if err != nil {
			return err
		}
		store, err := graph.NewSQLStore(ctx, conn, driver)
		if err != nil {
			conn.Close()
			return err
		}
		a.graph = store
	case config.GraphMemory:
		a.graph = graph.NewMemoryStore()
	default:
		return fmt.Errorf("unknown graph backend %q", a.cfg.GraphBackend)
	}
	return nil
}

func (a *app) routes() router.Handlers {
	return router.Handlers{
		Documents: &handlers.DocumentHandler{DocumentService: a.documents, MaxUploadBytes: uploadLimit(a.documents.MaxBytes)},
		Ask:       &handlers.AskHandler{Retriever: a.retriever},
		Health:    &handlers.HealthHandler{Graph: a.graph, Embedder: a.embedder},
	}
}

// uploadLimit leaves room for the multipart envelope around a file of maxBytes.
// An unbounded file means an unbounded body.
func uploadLimit(maxBytes int64) int64 {
	if maxBytes <= 0 {
		return 0
	}
	return maxBytes + 1<<20
}

func (a *app) close() {
	if a.graph != nil {
		logrus.Debug("closing graph store")
		if err := a.graph.Close(); err != nil {
			logrus.WithError(err).Error("error closing graph store")
		}
	}
	if a.qdrantConn != nil {
		if err := a.qdrantConn.Close(); err != nil {
			logrus.WithError(err).Error("error closing qdrant connection")
		}
	}
}
