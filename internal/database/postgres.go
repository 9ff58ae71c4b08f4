package database

import (
	"context"

	"github.com/cdtdelta/dbhelper/internal/model"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore manages PostgreSQL databases through pgx's database/sql driver.
// It implements the Store interface.
type PostgresStore struct {
	*conn
}

// OpenPostgres connects to an existing PostgreSQL database.
func OpenPostgres(connStr string, opts ...Option) (*PostgresStore, error) {
	c, err := open(&PostgresDialect{}, connStr, opts)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{conn: c}, nil
}

// Query strips null bytes from string arguments before running the SELECT.
func (db *PostgresStore) Query(ctx context.Context, sqlStr string, args ...any) ([]model.Row, error) {
	return db.conn.Query(ctx, sqlStr, pgSanitizeArgs(args)...)
}

// Exec strips null bytes from string arguments before running the statement.
func (db *PostgresStore) Exec(ctx context.Context, sqlStr string, args ...any) (*model.Result, error) {
	return db.conn.Exec(ctx, sqlStr, pgSanitizeArgs(args)...)
}
