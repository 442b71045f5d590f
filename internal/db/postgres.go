package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

type Postgres struct {
	conn
	dsn string
}

func NewPostgres(dsn string) *Postgres {
	return &Postgres{
		conn: conn{dialect: DialectPostgres},
		dsn:  dsn,
	}
}

func (p *Postgres) InitDB(ctx context.Context) error {
	var err error
	p.db, err = sql.Open(DialectPostgres, p.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS documents (
    id VARCHAR(36) PRIMARY KEY,
    name TEXT NOT NULL,
    format VARCHAR(16) NOT NULL DEFAULT 'text',
    content BYTEA,
    content_hash VARCHAR(64),
    user_id TEXT,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    modified_at TIMESTAMP WITH TIME ZONE
);

CREATE INDEX IF NOT EXISTS idx_documents_modified_at ON documents(modified_at);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	dbLogger.Info().Msg("Postgres database initialized")
	return nil
}
