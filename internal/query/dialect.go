package query

import (
	"context"
	"strings"

	"github.com/cdtdelta/dbhelper/internal/model"
)

// Executor is the database capability set the builder depends on.
// Every store in the database package implements it.
type Executor interface {
	// Escape neutralizes SQL metacharacters in s. It does not add quotes.
	Escape(s string) string

	// Query runs a complete SELECT and returns its rows.
	Query(ctx context.Context, sql string, args ...any) ([]model.Row, error)

	// Exec runs a complete INSERT or UPDATE.
	Exec(ctx context.Context, sql string, args ...any) (*model.Result, error)
}

// Dialect supplies the parameter placeholder syntax used in bind mode.
// The database package dialects satisfy it through structural typing.
type Dialect interface {
	// Placeholder returns the parameter placeholder for the given 1-based index.
	// SQLite and MySQL return "?" (ignoring the index), PostgreSQL returns "$1", "$2", etc.
	Placeholder(index int) string
}

// questionDialect produces "?" placeholders.
type questionDialect struct{}

func (questionDialect) Placeholder(int) string { return "?" }

// DefaultDialect is the bind dialect used when WithBindVars is given nil.
var DefaultDialect Dialect = questionDialect{}

// escapeQuotes doubles single quotes, the standard SQL string escape. It is
// used when the builder has no executor to escape with.
func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
