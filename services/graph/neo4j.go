package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"graph-rag/internal/domain"
)

const (
	mergePaperCypher = `
MERGE (p:Paper {id: $paper_id, title: $title, source_file: $filename})
ON CREATE SET p.ingested_at = timestamp()
WITH p
UNWIND range(0, size($authors) - 1) AS i
MERGE (a:Author {name: $authors[i]})
MERGE (a)-[w:WROTE]->(p)
ON CREATE SET w.ord = i`

	// Papers ingested in the same millisecond fall back to id order.
	findPapersCypher = `
MATCH (p:Paper)
WHERE p.title CONTAINS $query OR p.id IN $paper_ids
OPTIONAL MATCH (a:Author)-[w:WROTE]->(p)
WITH p, a, w ORDER BY w.ord
WITH p, collect(DISTINCT a.name) AS authors
OPTIONAL MATCH (p)-[r]->(related:Paper)
WITH p, authors, r, related ORDER BY r.created_at, type(r)
RETURN p, authors, collect(DISTINCT {type: type(r), target: related.id}) AS relationships
ORDER BY p.ingested_at, p.id
LIMIT $limit`

	countPapersCypher = `MATCH (p:Paper) RETURN count(p) AS count`
)

var neo4jIndexes = []string{
	`CREATE INDEX paper_id IF NOT EXISTS FOR (p:Paper) ON (p.id)`,
	`CREATE INDEX author_name IF NOT EXISTS FOR (a:Author) ON (a.name)`,
}

// Neo4jStore is the graph store on a Neo4j server.
type Neo4jStore struct {
	Driver   neo4j.DriverWithContext
	Database string
}

var _ domain.GraphStore = (*Neo4jStore)(nil)

// NewNeo4jStore connects to uri, verifies connectivity and creates lookup indexes.
func NewNeo4jStore(ctx context.Context, uri, username, password, database string) (*Neo4jStore, error) {
	log := logrus.WithFields(logrus.Fields{"uri": uri, "database": database})
	log.Info("graph: connecting to neo4j")

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		log.WithError(err).Error("graph: neo4j connectivity check failed")
		return nil, fmt.Errorf("neo4j connectivity check failed: %w", err)
	}

	s := &Neo4jStore{Driver: driver, Database: database}
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	for _, stmt := range neo4jIndexes {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, stmt, nil)
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		})
		if err != nil {
			driver.Close(ctx)
			return nil, fmt.Errorf("could not create neo4j index: %w", err)
		}
	}

	log.Info("graph: connected to neo4j")
	return s, nil
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.Database, AccessMode: mode})
}

// UpsertPaper merges the paper node, its authors and the WROTE edges.
func (s *Neo4jStore) UpsertPaper(ctx context.Context, paper domain.Paper) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	authors := make([]any, len(paper.Authors))
	for i, a := range paper.Authors {
		authors[i] = a
	}
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, mergePaperCypher, map[string]any{
			"paper_id": paper.ID,
			"title":    paper.Title,
			"filename": paper.SourceFile,
			"authors":  authors,
		})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("could not merge paper: %w", err)
	}
	return nil
}

// FindByTitleOrIDs runs the title/id lookup with authors and outgoing relationships.
func (s *Neo4jStore) FindByTitleOrIDs(ctx context.Context, query string, ids []string, limit int) ([]domain.GraphRecord, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	paperIDs := make([]any, len(ids))
	for i, id := range ids {
		paperIDs[i] = id
	}
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, findPapersCypher, map[string]any{
			"query":     query,
			"paper_ids": paperIDs,
			"limit":     int64(limit),
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("could not query papers: %w", err)
	}

	records := result.([]*neo4j.Record)
	out := make([]domain.GraphRecord, 0, len(records))
	for _, rec := range records {
		gr, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, gr)
	}
	return out, nil
}

// decodeRecord turns one row of findPapersCypher into a GraphRecord. Rows for
// papers without relationships carry a single {type: null, target: null} map.
func decodeRecord(rec *neo4j.Record) (domain.GraphRecord, error) {
	var gr domain.GraphRecord

	raw, ok := rec.Get("p")
	if !ok {
		return gr, fmt.Errorf("record has no paper column")
	}
	node, ok := raw.(neo4j.Node)
	if !ok {
		return gr, fmt.Errorf("paper column is %T, not a node", raw)
	}
	gr.Paper.ID, _ = node.Props["id"].(string)
	gr.Paper.Title, _ = node.Props["title"].(string)
	gr.Paper.SourceFile, _ = node.Props["source_file"].(string)

	if raw, ok := rec.Get("authors"); ok {
		list, _ := raw.([]any)
		for _, a := range list {
			if name, ok := a.(string); ok {
				gr.Paper.Authors = append(gr.Paper.Authors, name)
			}
		}
	}

	if raw, ok := rec.Get("relationships"); ok {
		list, _ := raw.([]any)
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			relType, _ := m["type"].(string)
			target, _ := m["target"].(string)
			if relType == "" || target == "" {
				continue
			}
			gr.Relations = append(gr.Relations, domain.Relation{Type: relType, TargetID: target})
		}
	}
	return gr, nil
}

// Relate merges a typed edge between papers. The type is validated before it
// is interpolated, since Cypher cannot parameterise relationship types.
func (s *Neo4jStore) Relate(ctx context.Context, fromID, relType, toID string) error {
	if !domain.ValidRelationType(relType) {
		return domain.WrapError("graph.relate", domain.ErrInvalidInput, nil)
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
MATCH (f:Paper {id: $from}), (t:Paper {id: $to})
MERGE (f)-[r:%s]->(t)
ON CREATE SET r.created_at = timestamp()
RETURN count(r) AS linked`, relType)

	linked, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"from": fromID, "to": toID})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := rec.Get("linked")
		return n, nil
	})
	if err != nil {
		return fmt.Errorf("could not create relation: %w", err)
	}
	if n, _ := linked.(int64); n == 0 {
		return domain.WrapError("graph.relate", domain.ErrNotFound, nil)
	}
	return nil
}

// CountPapers returns the number of Paper nodes.
func (s *Neo4jStore) CountPapers(ctx context.Context) (int, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	count, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, countPapersCypher, nil)
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := rec.Get("count")
		return n, nil
	})
	if err != nil {
		return 0, fmt.Errorf("could not count papers: %w", err)
	}
	n, _ := count.(int64)
	return int(n), nil
}

// Ping verifies the driver can reach the server.
func (s *Neo4jStore) Ping(ctx context.Context) error {
	return s.Driver.VerifyConnectivity(ctx)
}

// Close closes the driver.
func (s *Neo4jStore) Close() error {
	return s.Driver.Close(context.Background())
}
