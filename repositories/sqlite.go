package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"folio-chat/domain"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT    NOT NULL,
	id         TEXT    NOT NULL UNIQUE,
	written_at INTEGER NOT NULL,
	fields     TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_collection_seq ON documents (collection, seq);
`

// SQLiteBackend stores one row per document, fields as JSON.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// One writer at a time, sqlite would answer SQLITE_BUSY otherwise.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (s *SQLiteBackend) Put(ctx context.Context, collection string, doc domain.Document, at time.Time) error {
	fields, err := MarshalFieldsJSON(doc.Fields)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, written_at, fields) VALUES (?, ?, ?, ?)`,
		collection, doc.ID, at.UnixNano(), string(fields))
	return err
}

func (s *SQLiteBackend) Scan(ctx context.Context, collection string) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fields FROM documents WHERE collection = ? ORDER BY seq`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		fields, err := UnmarshalFieldsJSON([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
		docs = append(docs, domain.Document{ID: id, Fields: fields})
	}
	return docs, rows.Err()
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
