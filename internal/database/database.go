package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cdtdelta/dbhelper/internal/model"

	_ "modernc.org/sqlite"
)

// Option configures a store.
type Option func(*conn)

// WithLogger sets the logger used for connection lifecycle and statements.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *conn) {
		c.logger = logger.With().Str("component", "database").Logger()
	}
}

// conn holds the state shared by every store: the pool, its dialect and a
// logger. Stores embed it and override what their backend needs.
type conn struct {
	path    string
	db      *sql.DB
	dialect Dialect
	logger  zerolog.Logger
}

// open connects with dialect d and verifies the connection works.
func open(d Dialect, pathOrConnStr string, opts []Option) (*conn, error) {
	c := &conn{path: pathOrConnStr, dialect: d, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}

	dsn, err := d.DSN(pathOrConnStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify the connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	c.db = db
	c.logger.Info().Str("driver", d.Name()).Msg("database opened")
	return c, nil
}

// Escape neutralizes string literal metacharacters for the backend.
func (c *conn) Escape(s string) string {
	return c.dialect.Escape(s)
}

// Dialect returns the backend's SQL dialect.
func (c *conn) Dialect() Dialect {
	return c.dialect
}

// Query runs a SELECT and returns every row keyed by column name.
func (c *conn) Query(ctx context.Context, sqlStr string, args ...any) ([]model.Row, error) {
	c.logger.Debug().Str("sql", sqlStr).Msg("query")
	rows, err := c.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// Exec runs a write statement and reports the affected rows. LastInsertID
// is left zero where the driver does not support it.
func (c *conn) Exec(ctx context.Context, sqlStr string, args ...any) (*model.Result, error) {
	c.logger.Debug().Str("sql", sqlStr).Msg("exec")
	res, err := c.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}

	out := &model.Result{}
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out, nil
}

// Close closes the database connection.
func (c *conn) Close() error {
	if c.db == nil {
		return nil
	}
	c.logger.Info().Str("driver", c.dialect.Name()).Msg("database closed")
	return c.db.Close()
}

// Path returns the file path or connection string the store was opened with.
func (c *conn) Path() string {
	return c.path
}

// scanRows converts sql.Rows into column → value maps. Text returned as
// []byte is converted to string.
func scanRows(rows *sql.Rows) ([]model.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var out []model.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(model.Row, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SQLiteStore manages SQLite databases through modernc.org/sqlite.
// It implements the Store interface.
type SQLiteStore struct {
	*conn
}

// OpenSQLite opens (creating if needed) a SQLite database file.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	c, err := open(&SQLiteDialect{}, path, opts)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{conn: c}, nil
}
