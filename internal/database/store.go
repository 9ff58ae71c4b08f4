package database

import (
	"context"

	"github.com/cdtdelta/dbhelper/internal/model"
)

// Store is the database collaborator used by the statement builder.
// It satisfies query.Executor, so a Store can be handed straight to
// query.New.
type Store interface {
	// Escape neutralizes string literal metacharacters for this backend.
	Escape(s string) string

	// Query runs a complete SELECT and returns its rows.
	Query(ctx context.Context, sql string, args ...any) ([]model.Row, error)

	// Exec runs a complete INSERT, UPDATE or DDL statement.
	Exec(ctx context.Context, sql string, args ...any) (*model.Result, error)

	// Dialect returns the SQL dialect of the backend.
	Dialect() Dialect

	// Lifecycle
	Close() error
	Path() string
}
