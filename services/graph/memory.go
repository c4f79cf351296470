// Package graph implements the document/relationship store on Neo4j, on a SQL
// database, and in memory.
package graph

import (
	"context"
	"slices"
	"strings"
	"sync"

	"graph-rag/internal/domain"
)

type paperKey struct {
	id, title, sourceFile string
}

type paperNode struct {
	paper     domain.Paper
	relations []domain.Relation
}

// MemoryStore keeps the graph in process memory. Papers are returned in the
// order they were first merged.
type MemoryStore struct {
	mu     sync.RWMutex
	papers []*paperNode
	byKey  map[paperKey]*paperNode
}

var _ domain.GraphStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory graph.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byKey: make(map[paperKey]*paperNode)}
}

// UpsertPaper merges the paper node and its authors.
func (m *MemoryStore) UpsertPaper(_ context.Context, paper domain.Paper) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := paperKey{paper.ID, paper.Title, paper.SourceFile}
	node, ok := m.byKey[key]
	if !ok {
		node = &paperNode{paper: domain.Paper{ID: paper.ID, Title: paper.Title, SourceFile: paper.SourceFile}}
		m.byKey[key] = node
		m.papers = append(m.papers, node)
	}
	for _, name := range paper.Authors {
		if !slices.Contains(node.paper.Authors, name) {
			node.paper.Authors = append(node.paper.Authors, name)
		}
	}
	return nil
}

// FindByTitleOrIDs matches on a case-sensitive title substring or on id membership.
func (m *MemoryStore) FindByTitleOrIDs(_ context.Context, query string, ids []string, limit int) ([]domain.GraphRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []domain.GraphRecord
	for _, node := range m.papers {
		if limit > 0 && len(records) == limit {
			break
		}
		if !strings.Contains(node.paper.Title, query) && !slices.Contains(ids, node.paper.ID) {
			continue
		}
		p := node.paper
		p.Authors = append([]string(nil), node.paper.Authors...)
		records = append(records, domain.GraphRecord{
			Paper:     p,
			Relations: append([]domain.Relation(nil), node.relations...),
		})
	}
	return records, nil
}

// Relate links every paper node with fromID to every paper node with toID.
func (m *MemoryStore) Relate(_ context.Context, fromID, relType, toID string) error {
	if !domain.ValidRelationType(relType) {
		return domain.WrapError("graph.relate", domain.ErrInvalidInput, nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.nodesByID(fromID)
	if len(from) == 0 || len(m.nodesByID(toID)) == 0 {
		return domain.WrapError("graph.relate", domain.ErrNotFound, nil)
	}
	rel := domain.Relation{Type: relType, TargetID: toID}
	for _, node := range from {
		if !slices.Contains(node.relations, rel) {
			node.relations = append(node.relations, rel)
		}
	}
	return nil
}

// CountPapers returns the number of paper nodes.
func (m *MemoryStore) CountPapers(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.papers), nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) nodesByID(id string) []*paperNode {
	var nodes []*paperNode
	for _, node := range m.papers {
		if node.paper.ID == id {
			nodes = append(nodes, node)
		}
	}
	return nodes
}
