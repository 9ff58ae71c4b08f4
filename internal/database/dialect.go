package database

// Dialect abstracts the database-specific pieces of talking SQL.
// Each backend (SQLite, PostgreSQL, MySQL) implements this interface.
// Placeholder matches query.Dialect through Go structural typing, so a
// Dialect can also drive the builder's bind mode.
type Dialect interface {
	// Name returns the driver name used in configuration ("sqlite", "postgres", "mysql").
	Name() string

	// DriverName returns the database/sql driver name (e.g. "sqlite", "pgx").
	DriverName() string

	// DSN returns the data source name for opening a connection.
	// For SQLite this is the file path; for PostgreSQL and MySQL it is a
	// connection string, validated and normalized by the driver's own parser.
	DSN(pathOrConnStr string) (string, error)

	// Placeholder returns the parameter placeholder for the given 1-based index.
	// SQLite: "?" (ignoring index), PostgreSQL: "$1", "$2", etc.
	Placeholder(index int) string

	// Escape neutralizes string literal metacharacters. No quotes are added.
	Escape(s string) string

	// QuoteIdent quotes a table or column name. Dotted names are quoted
	// part by part.
	QuoteIdent(name string) string
}
