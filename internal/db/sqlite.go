package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	conn
	path string
}

// NewSQLite opens the database at path on InitDB. ":memory:" works for tests.
func NewSQLite(path string) *SQLite {
	return &SQLite{
		conn: conn{dialect: DialectSQLite},
		path: path,
	}
}

func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) InitDB(ctx context.Context) error {
	var err error
	s.db, err = sql.Open(DialectSQLite, s.path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Each :memory: connection is its own database.
	if s.path == ":memory:" {
		s.db.SetMaxOpenConns(1)
	}

	// Owners are not enforced with a foreign key. The users table is only
	// filled by the Clerk webhook.
	res, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    format TEXT NOT NULL DEFAULT 'text',
    content BLOB,
    content_hash TEXT,
    user_id TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    modified_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_documents_modified_at ON documents(modified_at);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	dbLogger.Info().Any("db_result", res).Str("path", s.path).Msg("Database initialized")
	return nil
}
