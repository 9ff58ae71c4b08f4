package database

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// pgSanitizeString strips null bytes (0x00) from a string. SQLite stores these
// fine but PostgreSQL rejects them with "invalid byte sequence for encoding UTF8".
func pgSanitizeString(s string) string {
	if strings.ContainsRune(s, '\x00') {
		return strings.ReplaceAll(s, "\x00", "")
	}
	return s
}

// pgSanitizeArgs applies pgSanitizeString to every string argument.
func pgSanitizeArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if s, ok := a.(string); ok {
			a = pgSanitizeString(s)
		}
		out[i] = a
	}
	return out
}

// PostgresDialect implements the Dialect interface for PostgreSQL databases.
// It also satisfies query.Dialect through structural typing.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string                 { return "postgres" }
func (d *PostgresDialect) DriverName() string           { return "pgx" }
func (d *PostgresDialect) Placeholder(index int) string { return fmt.Sprintf("$%d", index) }

// DSN validates connStr with pgx's own parser, accepting both URL and
// keyword/value forms.
func (d *PostgresDialect) DSN(connStr string) (string, error) {
	if connStr == "" {
		return "", errEmptyDSN
	}
	if _, err := pgx.ParseConfig(connStr); err != nil {
		return "", fmt.Errorf("parsing postgres connection string: %w", err)
	}
	return connStr, nil
}

// Escape doubles single quotes. With standard_conforming_strings on (the
// default since 9.1) backslashes are literal and need no escaping.
func (d *PostgresDialect) Escape(s string) string {
	return strings.ReplaceAll(pgSanitizeString(s), "'", "''")
}

func (d *PostgresDialect) QuoteIdent(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}
