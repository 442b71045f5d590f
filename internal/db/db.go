// Package db wraps the SQL connections used by the document repository.
package db

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// DB is a connection plus the dialect details the repository needs. Queries
// are written with ? placeholders and rebound per dialect.
type DB interface {
	InitDB(ctx context.Context) error

	Get() *sql.DB
	Close() error
	Dialect() string

	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

var dbLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	dbLogger = l
}

// Rebind rewrites ? placeholders as $1, $2, ... for Postgres. Question marks
// inside single-quoted literals are left alone.
func Rebind(dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// conn holds what SQLite and Postgres share.
type conn struct {
	db      *sql.DB
	dialect string
}

func (c *conn) Get() *sql.DB {
	return c.db
}

func (c *conn) Dialect() string {
	return c.dialect
}

func (c *conn) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	dbLogger.Debug().Str("query", query).Msg("Query")
	return c.db.QueryContext(ctx, Rebind(c.dialect, query), args...)
}

func (c *conn) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	dbLogger.Debug().Str("query", query).Msg("QueryRow")
	return c.db.QueryRowContext(ctx, Rebind(c.dialect, query), args...)
}

func (c *conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	dbLogger.Debug().Str("query", query).Msg("Exec")
	return c.db.ExecContext(ctx, Rebind(c.dialect, query), args...)
}
