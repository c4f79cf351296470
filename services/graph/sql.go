package graph

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"graph-rag/internal/db"
	"graph-rag/internal/domain"
)

// SQLStore models the graph as tables on sqlite or postgres.
type SQLStore struct {
	DB      *sqlx.DB
	Dialect string
}

var _ domain.GraphStore = (*SQLStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS papers (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	title TEXT NOT NULL,
	source_file TEXT NOT NULL,
	UNIQUE (id, title, source_file)
);
CREATE INDEX IF NOT EXISTS idx_papers_id ON papers(id);
CREATE TABLE IF NOT EXISTS authors (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS wrote (
	author TEXT NOT NULL REFERENCES authors(name),
	paper_seq INTEGER NOT NULL REFERENCES papers(seq),
	ord INTEGER NOT NULL,
	PRIMARY KEY (author, paper_seq)
);
CREATE TABLE IF NOT EXISTS relations (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	from_seq INTEGER NOT NULL REFERENCES papers(seq),
	type TEXT NOT NULL,
	to_seq INTEGER NOT NULL REFERENCES papers(seq),
	UNIQUE (from_seq, type, to_seq)
);`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS papers (
	seq BIGSERIAL PRIMARY KEY,
	id TEXT NOT NULL,
	title TEXT NOT NULL,
	source_file TEXT NOT NULL,
	UNIQUE (id, title, source_file)
);
CREATE INDEX IF NOT EXISTS idx_papers_id ON papers(id);
CREATE TABLE IF NOT EXISTS authors (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS wrote (
	author TEXT NOT NULL REFERENCES authors(name),
	paper_seq BIGINT NOT NULL REFERENCES papers(seq),
	ord INTEGER NOT NULL,
	PRIMARY KEY (author, paper_seq)
);
CREATE TABLE IF NOT EXISTS relations (
	seq BIGSERIAL PRIMARY KEY,
	from_seq BIGINT NOT NULL REFERENCES papers(seq),
	type TEXT NOT NULL,
	to_seq BIGINT NOT NULL REFERENCES papers(seq),
	UNIQUE (from_seq, type, to_seq)
);`

// NewSQLStore creates the schema if needed. dialect is db.SQLite or db.Postgres.
func NewSQLStore(ctx context.Context, conn *sql.DB, dialect string) (*SQLStore, error) {
	schema := sqliteSchema
	if dialect == db.Postgres {
		schema = postgresSchema
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("could not create graph schema: %w", err)
		}
	}
	logrus.WithField("dialect", dialect).Info("graph: sql schema ready")
	return &SQLStore{DB: sqlx.NewDb(conn, dialect), Dialect: dialect}, nil
}

func (s *SQLStore) titleContains() string {
	if s.Dialect == db.Postgres {
		return "strpos(title, ?) > 0"
	}
	return "instr(title, ?) > 0"
}

// UpsertPaper merges the paper row, its authors and the WROTE links in one transaction.
func (s *SQLStore) UpsertPaper(ctx context.Context, paper domain.Paper) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO papers (id, title, source_file) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`),
		paper.ID, paper.Title, paper.SourceFile)
	if err != nil {
		return fmt.Errorf("could not merge paper: %w", err)
	}

	var seq int64
	err = tx.GetContext(ctx, &seq, tx.Rebind(
		`SELECT seq FROM papers WHERE id = ? AND title = ? AND source_file = ?`),
		paper.ID, paper.Title, paper.SourceFile)
	if err != nil {
		return fmt.Errorf("could not read paper: %w", err)
	}

	for i, name := range paper.Authors {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO authors (name) VALUES (?) ON CONFLICT DO NOTHING`), name); err != nil {
			return fmt.Errorf("could not merge author: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO wrote (author, paper_seq, ord) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`), name, seq, i); err != nil {
			return fmt.Errorf("could not link author: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit paper: %w", err)
	}
	return nil
}

type paperRow struct {
	Seq        int64  `db:"seq"`
	ID         string `db:"id"`
	Title      string `db:"title"`
	SourceFile string `db:"source_file"`
}

type relationRow struct {
	Type     string `db:"type"`
	TargetID string `db:"id"`
}

// FindByTitleOrIDs returns papers in insertion order with their authors and relations.
func (s *SQLStore) FindByTitleOrIDs(ctx context.Context, query string, ids []string, limit int) ([]domain.GraphRecord, error) {
	q := `SELECT seq, id, title, source_file FROM papers WHERE ` + s.titleContains()
	args := []any{query}
	if len(ids) > 0 {
		q += ` OR id IN (?)`
		args = append(args, ids)
	}
	q += ` ORDER BY seq`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, fmt.Errorf("could not build paper query: %w", err)
	}

	// Read every row before the follow-up queries; sqlite runs on one connection.
	var rows []paperRow
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("could not query papers: %w", err)
	}

	records := make([]domain.GraphRecord, 0, len(rows))
	for _, row := range rows {
		authors, err := s.authorsOf(ctx, row.Seq)
		if err != nil {
			return nil, err
		}
		relations, err := s.relationsOf(ctx, row.Seq)
		if err != nil {
			return nil, err
		}
		records = append(records, domain.GraphRecord{
			Paper: domain.Paper{
				ID:         row.ID,
				Title:      row.Title,
				SourceFile: row.SourceFile,
				Authors:    authors,
			},
			Relations: relations,
		})
	}
	return records, nil
}

func (s *SQLStore) authorsOf(ctx context.Context, seq int64) ([]string, error) {
	var authors []string
	err := s.DB.SelectContext(ctx, &authors, s.DB.Rebind(
		`SELECT author FROM wrote WHERE paper_seq = ? ORDER BY ord`), seq)
	if err != nil {
		return nil, fmt.Errorf("could not query authors: %w", err)
	}
	return authors, nil
}

func (s *SQLStore) relationsOf(ctx context.Context, seq int64) ([]domain.Relation, error) {
	var rows []relationRow
	err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(
		`SELECT r.type, p.id FROM relations r JOIN papers p ON p.seq = r.to_seq WHERE r.from_seq = ? ORDER BY r.seq`), seq)
	if err != nil {
		return nil, fmt.Errorf("could not query relations: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	relations := make([]domain.Relation, len(rows))
	for i, r := range rows {
		relations[i] = domain.Relation{Type: r.Type, TargetID: r.TargetID}
	}
	return relations, nil
}

// Relate links every paper row with fromID to every paper row with toID.
func (s *SQLStore) Relate(ctx context.Context, fromID, relType, toID string) error {
	if !domain.ValidRelationType(relType) {
		return domain.WrapError("graph.relate", domain.ErrInvalidInput, nil)
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO relations (from_seq, type, to_seq)
		SELECT f.seq, ?, t.seq FROM papers f, papers t WHERE f.id = ? AND t.id = ?
		ON CONFLICT DO NOTHING`), relType, fromID, toID)
	if err != nil {
		return fmt.Errorf("could not create relation: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var found int
		err := tx.GetContext(ctx, &found, tx.Rebind(
			`SELECT (SELECT COUNT(*) FROM papers WHERE id = ?) * (SELECT COUNT(*) FROM papers WHERE id = ?)`),
			fromID, toID)
		if err != nil {
			return fmt.Errorf("could not check papers: %w", err)
		}
		if found == 0 {
			return domain.WrapError("graph.relate", domain.ErrNotFound, nil)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit relation: %w", err)
	}
	return nil
}

// CountPapers returns the number of paper rows.
func (s *SQLStore) CountPapers(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM papers`); err != nil {
		return 0, fmt.Errorf("could not count papers: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.DB.Close()
}
