// Package store is the optional SQLite archive of generation runs:
// processed documents, their canonical entities and validated triples, the
// generated questions, and an audit log.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Document is a row in the documents table.
type Document struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	Format      string `json:"format"`
	ContentHash string `json:"content_hash"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Entity is a row in the entities table. EntityID is the canonical
// (deterministic) identifier; Surfaces is stored as a JSON array.
type Entity struct {
	ID         int64    `json:"id"`
	DocumentID int64    `json:"document_id"`
	EntityID   string   `json:"entity_id"`
	Label      string   `json:"label"`
	Class      string   `json:"class"`
	Surfaces   []string `json:"surfaces,omitempty"`
	Mentions   int      `json:"mentions"`
}

// Triple is a row in the triples table.
type Triple struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"document_id"`
	SubjectID  string `json:"subject_id"`
	Predicate  string `json:"predicate"`
	ObjectID   string `json:"object_id"`
	Pattern    string `json:"pattern,omitempty"`
}

// Question is a row in the questions table.
type Question struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"document_id"`
	Position   int    `json:"position"`
	Text       string `json:"text"`
	Relation   string `json:"relation"`
	EntityID   string `json:"entity_id"`
}

// GenerationRecord is a row in the generation_log table.
type GenerationRecord struct {
	ID            int64  `json:"id"`
	DocumentID    int64  `json:"document_id"`
	Format        string `json:"format"`
	EntityCount   int    `json:"entity_count"`
	TripleCount   int    `json:"triple_count"`
	QuestionCount int    `json:"question_count"`
	RejectedCount int    `json:"rejected_count"`
	DurationMS    int64  `json:"duration_ms"`
	CreatedAt     string `json:"created_at"`
}

// Stats summarizes the archive contents.
type Stats struct {
	Documents int `json:"documents"`
	Entities  int `json:"entities"`
	Triples   int `json:"triples"`
	Questions int `json:"questions"`
}

// Store wraps the SQLite database for all archive persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including the FTS5 virtual table.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Document operations ---

// UpsertDocument inserts or updates a document record keyed by path.
// Returns the document ID.
func (s *Store) UpsertDocument(ctx context.Context, doc Document) (int64, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (path, filename, format, content_hash, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename = excluded.filename,
			format = excluded.format,
			content_hash = excluded.content_hash,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP`,
		doc.Path, doc.Filename, doc.Format, doc.ContentHash, doc.Status)
	if err != nil {
		return 0, fmt.Errorf("upserting document: %w", err)
	}

	// LastInsertId is unreliable on conflict; resolve by path.
	var id int64
	row := s.db.QueryRowContext(ctx, "SELECT id FROM documents WHERE path = ?", doc.Path)
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("resolving document id: %w", err)
	}
	return id, nil
}

// GetDocumentByPath fetches one document record.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, filename, format, content_hash, status, created_at, updated_at
		FROM documents WHERE path = ?`, path)
	var d Document
	if err := row.Scan(&d.ID, &d.Path, &d.Filename, &d.Format, &d.ContentHash, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns all documents, most recently updated first.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, filename, format, content_hash, status, created_at, updated_at
		FROM documents ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Path, &d.Filename, &d.Format, &d.ContentHash, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// --- Generation persistence ---

// ReplaceGeneration atomically replaces a document's archived entities,
// triples, and questions with the given run's output and appends an audit
// record. Re-running a document therefore never duplicates rows.
func (s *Store) ReplaceGeneration(ctx context.Context, docID int64, entities []Entity, triples []Triple, questions []Question, rec GenerationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin generation tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"entities", "triples", "questions"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE document_id = ?", docID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, e := range entities {
		surfaces, err := json.Marshal(e.Surfaces)
		if err != nil {
			return fmt.Errorf("encoding surfaces for %q: %w", e.Label, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entities (document_id, entity_id, label, class, surfaces, mentions)
			VALUES (?, ?, ?, ?, ?, ?)`,
			docID, e.EntityID, e.Label, e.Class, string(surfaces), e.Mentions); err != nil {
			return fmt.Errorf("inserting entity %q: %w", e.Label, err)
		}
	}

	for _, t := range triples {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO triples (document_id, subject_id, predicate, object_id, pattern)
			VALUES (?, ?, ?, ?, ?)`,
			docID, t.SubjectID, t.Predicate, t.ObjectID, t.Pattern); err != nil {
			return fmt.Errorf("inserting triple %s: %w", t.Predicate, err)
		}
	}

	for i, q := range questions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO questions (document_id, position, text, relation, entity_id)
			VALUES (?, ?, ?, ?, ?)`,
			docID, i, q.Text, q.Relation, q.EntityID); err != nil {
			return fmt.Errorf("inserting question %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO generation_log (document_id, format, entity_count, triple_count, question_count, rejected_count, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		docID, rec.Format, rec.EntityCount, rec.TripleCount, rec.QuestionCount, rec.RejectedCount, rec.DurationMS); err != nil {
		return fmt.Errorf("logging generation: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET status = 'ready', updated_at = CURRENT_TIMESTAMP WHERE id = ?", docID); err != nil {
		return fmt.Errorf("marking document ready: %w", err)
	}

	return tx.Commit()
}

// EntitiesForDocument returns a document's archived entities in insert order.
func (s *Store) EntitiesForDocument(ctx context.Context, docID int64) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, entity_id, label, class, surfaces, mentions
		FROM entities WHERE document_id = ? ORDER BY id`, docID)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

// TriplesForDocument returns a document's archived triples in insert order.
func (s *Store) TriplesForDocument(ctx context.Context, docID int64) ([]Triple, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, subject_id, predicate, object_id, COALESCE(pattern, '')
		FROM triples WHERE document_id = ? ORDER BY id`, docID)
	if err != nil {
		return nil, fmt.Errorf("querying triples: %w", err)
	}
	defer rows.Close()

	var out []Triple
	for rows.Next() {
		var t Triple
		if err := rows.Scan(&t.ID, &t.DocumentID, &t.SubjectID, &t.Predicate, &t.ObjectID, &t.Pattern); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// QuestionsForDocument returns a document's questions in generation order.
func (s *Store) QuestionsForDocument(ctx context.Context, docID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, position, text, relation, entity_id
		FROM questions WHERE document_id = ? ORDER BY position`, docID)
	if err != nil {
		return nil, fmt.Errorf("querying questions: %w", err)
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.DocumentID, &q.Position, &q.Text, &q.Relation, &q.EntityID); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// SearchEntities runs a full-text search over entity labels, best match
// first.
func (s *Store) SearchEntities(ctx context.Context, query string, limit int) ([]Entity, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.document_id, e.entity_id, e.label, e.class, e.surfaces, e.mentions
		FROM entities_fts f
		JOIN entities e ON e.id = f.rowid
		WHERE entities_fts MATCH ?
		ORDER BY bm25(entities_fts), e.id
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching entities: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

func scanEntities(rows *sql.Rows) ([]Entity, error) {
	var out []Entity
	for rows.Next() {
		var e Entity
		var surfaces sql.NullString
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.EntityID, &e.Label, &e.Class, &surfaces, &e.Mentions); err != nil {
			return nil, err
		}
		if surfaces.Valid && surfaces.String != "" {
			if err := json.Unmarshal([]byte(surfaces.String), &e.Surfaces); err != nil {
				return nil, fmt.Errorf("decoding surfaces for %q: %w", e.Label, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecentGenerations returns the newest audit records, most recent first.
func (s *Store) RecentGenerations(ctx context.Context, limit int) ([]GenerationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(document_id, 0), COALESCE(format, ''), entity_count, triple_count, question_count, rejected_count, duration_ms, created_at
		FROM generation_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying generation log: %w", err)
	}
	defer rows.Close()

	var out []GenerationRecord
	for rows.Next() {
		var r GenerationRecord
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Format, &r.EntityCount, &r.TripleCount, &r.QuestionCount, &r.RejectedCount, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetStats returns archive-wide row counts.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats
	for _, q := range []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM documents", &st.Documents},
		{"SELECT COUNT(*) FROM entities", &st.Entities},
		{"SELECT COUNT(*) FROM triples", &st.Triples},
		{"SELECT COUNT(*) FROM questions", &st.Questions},
	} {
		if err := s.db.QueryRowContext(ctx, q.sql).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting rows: %w", err)
		}
	}
	return &st, nil
}
