package repositories

import (
	"context"
	"fmt"
	"time"

	"folio-chat/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        BIGSERIAL   PRIMARY KEY,
	collection TEXT        NOT NULL,
	id         TEXT        NOT NULL UNIQUE,
	written_at TIMESTAMPTZ NOT NULL,
	fields     JSONB       NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_collection_seq ON documents (collection, seq);
`

// PostgresBackend shares documents between several store nodes.
// Pair it with a ChangeNotifier so nodes learn about each other's writes.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string, maxConns int32) (*PostgresBackend, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating postgres schema: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

func (p *PostgresBackend) Put(ctx context.Context, collection string, doc domain.Document, at time.Time) error {
	fields, err := MarshalFieldsJSON(doc.Fields)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, written_at, fields) VALUES ($1, $2, $3, $4::jsonb)`,
		collection, doc.ID, at, string(fields))
	return err
}

func (p *PostgresBackend) Scan(ctx context.Context, collection string) ([]domain.Document, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, fields::text FROM documents WHERE collection = $1 ORDER BY seq`, collection)
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

func (p *PostgresBackend) Close() error {
	p.pool.Close()
	return nil
}
