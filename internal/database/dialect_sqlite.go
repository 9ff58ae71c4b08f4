package database

import "strings"

// SQLiteDialect implements the Dialect interface for SQLite databases.
// It also satisfies query.Dialect through structural typing.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string                 { return "sqlite" }
func (d *SQLiteDialect) DriverName() string           { return "sqlite" }
func (d *SQLiteDialect) Placeholder(index int) string { return "?" }

func (d *SQLiteDialect) DSN(path string) (string, error) {
	if path == "" {
		return "", errEmptyDSN
	}
	return path, nil
}

func (d *SQLiteDialect) Escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func (d *SQLiteDialect) QuoteIdent(name string) string {
	return quoteParts(name, `"`)
}

// quoteParts wraps each dot separated part of name in q, doubling any q
// inside a part.
func quoteParts(name, q string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, ".")
}
