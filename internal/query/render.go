package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// BuildSelectStatement renders "SELECT <fields> FROM <tables>" and clears
// fields and tables. With no fields it selects *.
func (b *Builder) BuildSelectStatement() (string, error) {
	if len(b.tables) == 0 {
		return "", fmt.Errorf("%w: no table selected for SELECT", ErrPrecondition)
	}
	fields := b.fields
	if len(fields) == 0 {
		fields = []string{"*"}
	}

	out := "SELECT " + strings.Join(fields, ", ") + " FROM " + strings.Join(b.tables, ", ")
	b.ResetFields()
	b.ResetTables()
	return out, nil
}

// BuildInsertStatement renders "INSERT INTO <table> (<cols>) VALUES (<vals>)"
// and clears values and tables. It needs exactly one table and at least one
// value.
func (b *Builder) BuildInsertStatement() (string, error) {
	if len(b.tables) != 1 || len(b.values) == 0 {
		return "", fmt.Errorf("%w: INSERT needs exactly one table and at least one value, got %d table(s) and %d value(s)",
			ErrPrecondition, len(b.tables), len(b.values))
	}

	names := lo.Map(b.values, func(c column, _ int) string { return c.name })
	vals := lo.Map(b.values, func(c column, _ int) string { return b.expand(c.fragment) })

	out := "INSERT INTO " + b.tables[0] + " (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(vals, ", ") + ")"
	b.ResetValues()
	b.ResetTables()
	return out, nil
}

// BuildUpdateStatement renders "UPDATE <table> SET <col = val, ...>" and
// clears values and tables.
//
// The guard only requires a table or some values. A table with no values
// renders the incomplete "UPDATE <table> SET " and is left for the database
// to reject; values with no table fail.
func (b *Builder) BuildUpdateStatement() (string, error) {
	if len(b.tables) == 0 {
		return "", fmt.Errorf("%w: no table selected for UPDATE", ErrPrecondition)
	}
	if len(b.values) == 0 {
		b.logger.Warn().Str("table", b.tables[0]).Msg("building UPDATE without values")
	}

	pairs := lo.Map(b.values, func(c column, _ int) string {
		return c.name + " = " + b.expand(c.fragment)
	})

	out := "UPDATE " + b.tables[0] + " SET " + strings.Join(pairs, ", ")
	b.ResetValues()
	b.ResetTables()
	return out, nil
}

// BuildJoinStatement renders the join clauses space separated and clears
// them. No joins renders "".
func (b *Builder) BuildJoinStatement() string {
	if len(b.joins) == 0 {
		return ""
	}
	out := strings.Join(b.joins, " ")
	b.ResetJoins()
	return out
}

// BuildWhereClause renders "WHERE <pred> <connective> <pred> ..." and clears
// the filters. The connective is "or" (any case) for OR and AND otherwise.
// No filters renders "".
func (b *Builder) BuildWhereClause(connective ...string) string {
	if len(b.filters) == 0 {
		return ""
	}
	logic := normalizeConnective(connective)

	preds := lo.Map(b.filters, func(f fragment, _ int) string { return b.expand(f) })
	out := "WHERE " + strings.Join(preds, " "+logic+" ")
	b.ResetFilters()
	return out
}

func normalizeConnective(connective []string) string {
	if len(connective) > 0 && strings.ToLower(connective[0]) == "or" {
		return "OR"
	}
	return "AND"
}

// GetOrderBy renders "ORDER BY <terms>" and clears the terms. No terms
// renders "".
func (b *Builder) GetOrderBy() string {
	if len(b.orderBy) == 0 {
		return ""
	}
	out := "ORDER BY " + strings.Join(b.orderBy, ", ")
	b.ResetOrderBy()
	return out
}

// GetOffset renders "OFFSET <n>" once per SetOffset. A zero offset renders "".
func (b *Builder) GetOffset() string {
	if b.offset == 0 {
		return ""
	}
	out := "OFFSET " + strconv.Itoa(b.offset)
	b.ResetOffset()
	return out
}

// GetLimit renders "LIMIT <n>" once per SetLimit. A zero limit renders "".
func (b *Builder) GetLimit() string {
	if b.limit == 0 {
		return ""
	}
	out := "LIMIT " + strconv.Itoa(b.limit)
	b.ResetLimit()
	return out
}
