package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/cdtdelta/dbhelper/internal/model"
)

// BuildQuery renders a full SELECT from every accumulator:
// select, join, where, order by, offset and limit, separated by single
// spaces. Empty clauses leave their separators in place.
//
// In bind mode the arguments for the statement are available from Args.
func (b *Builder) BuildQuery(connective ...string) (string, error) {
	b.args = nil

	selectStmt, err := b.BuildSelectStatement()
	if err != nil {
		return "", err
	}
	parts := []string{
		selectStmt,
		b.BuildJoinStatement(),
		b.BuildWhereClause(connective...),
		b.GetOrderBy(),
		b.GetOffset(),
		b.GetLimit(),
	}
	return strings.Join(parts, " "), nil
}

// QuickSelect builds the SELECT described by the accumulators, runs it and
// returns its rows.
func (b *Builder) QuickSelect(ctx context.Context, connective ...string) ([]model.Row, error) {
	if b.exec == nil {
		return nil, fmt.Errorf("%w: no executor configured", ErrPrecondition)
	}
	sql, err := b.BuildQuery(connective...)
	if err != nil {
		return nil, err
	}
	args := b.Args()

	b.logger.Debug().Str("sql", sql).Int("args", len(args)).Msg("select")
	rows, err := b.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("executing select: %w", err)
	}
	return rows, nil
}

// QuickUpdate builds "UPDATE ... SET ... WHERE ..." from the accumulators and
// runs it.
func (b *Builder) QuickUpdate(ctx context.Context, connective ...string) (*model.Result, error) {
	if b.exec == nil {
		return nil, fmt.Errorf("%w: no executor configured", ErrPrecondition)
	}
	b.args = nil

	update, err := b.BuildUpdateStatement()
	if err != nil {
		return nil, err
	}
	sql := update + " " + b.BuildWhereClause(connective...)
	args := b.Args()

	b.logger.Debug().Str("sql", sql).Int("args", len(args)).Msg("update")
	res, err := b.exec.Exec(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("executing update: %w", err)
	}
	return res, nil
}

// QuickInsert builds the INSERT described by the accumulators and runs it.
func (b *Builder) QuickInsert(ctx context.Context) (*model.Result, error) {
	if b.exec == nil {
		return nil, fmt.Errorf("%w: no executor configured", ErrPrecondition)
	}
	b.args = nil

	sql, err := b.BuildInsertStatement()
	if err != nil {
		return nil, err
	}
	args := b.Args()

	b.logger.Debug().Str("sql", sql).Int("args", len(args)).Msg("insert")
	res, err := b.exec.Exec(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("executing insert: %w", err)
	}
	return res, nil
}
