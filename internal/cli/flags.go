package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cdtdelta/dbhelper/internal/database"
	"github.com/cdtdelta/dbhelper/internal/model"
	"github.com/cdtdelta/dbhelper/internal/query"
)

// whereOperators are the comparison operators accepted by --where, longest
// first so "!=" wins over "=".
var whereOperators = []string{"!=", "<>", ">=", "<=", "=", ">", "<"}

// filterFlags collects the WHERE clause flags shared by select and update.
type filterFlags struct {
	where      []string
	filter     []string
	timeFilter []string
	custom     []string
	or         bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.where, "where", "w", nil, `Comparison filter, e.g. "age>30" or "name=bob" (repeatable)`)
	cmd.Flags().StringArrayVar(&f.filter, "filter", nil, `Condition filter "field:condition[:v1,v2]", e.g. "name:begins with:bo" (repeatable)`)
	cmd.Flags().StringArrayVar(&f.timeFilter, "time-filter", nil, `Timestamp filter "field:condition[:t1,t2]", e.g. "created:is greater than:yesterday" (repeatable)`)
	cmd.Flags().StringArrayVar(&f.custom, "custom", nil, "Raw SQL predicate added as-is (repeatable)")
	cmd.Flags().BoolVar(&f.or, "or", false, "Join filters with OR instead of AND")
}

func (f *filterFlags) connective() string {
	if f.or {
		return "OR"
	}
	return "AND"
}

// apply adds every filter flag to b.
func (f *filterFlags) apply(b *query.Builder) error {
	for _, w := range f.where {
		field, op, value, err := splitComparison(w)
		if err != nil {
			return err
		}
		if err := b.AddFilter(field, value, op); err != nil {
			return fmt.Errorf("--where %q: %w", w, err)
		}
	}

	for _, spec := range f.filter {
		field, cond, values, err := splitCondition(spec)
		if err != nil {
			return err
		}
		if err := b.AddTableDataFilter(field, cond, values...); err != nil {
			return fmt.Errorf("--filter %q: %w", spec, err)
		}
	}

	for _, spec := range f.timeFilter {
		field, cond, values, err := splitCondition(spec)
		if err != nil {
			return err
		}
		c, err := query.ValidateTimestampOperand(cond)
		if err != nil {
			return fmt.Errorf("--time-filter %q: %w", spec, err)
		}
		if c != query.IsNull && c != query.IsNotNull {
			for i, v := range values {
				if values[i], err = b.ValidateTimestamp(v); err != nil {
					return fmt.Errorf("--time-filter %q: %w", spec, err)
				}
			}
		}
		if err := b.AddTableDataFilter(field, cond, values...); err != nil {
			return fmt.Errorf("--time-filter %q: %w", spec, err)
		}
	}

	for _, c := range f.custom {
		if err := b.AddCustomFilter(c); err != nil {
			return fmt.Errorf("--custom: %w", err)
		}
	}
	return nil
}

// splitComparison splits "field<op>value" on the first comparison operator.
func splitComparison(s string) (field, op, value string, err error) {
	for i := 0; i < len(s); i++ {
		for _, candidate := range whereOperators {
			if strings.HasPrefix(s[i:], candidate) {
				field = strings.TrimSpace(s[:i])
				value = strings.TrimSpace(s[i+len(candidate):])
				if field == "" {
					return "", "", "", fmt.Errorf("--where %q: missing field", s)
				}
				return field, candidate, value, nil
			}
		}
	}
	return "", "", "", fmt.Errorf("--where %q: no comparison operator", s)
}

// splitCondition splits "field:condition[:v1,v2,...]".
func splitCondition(s string) (field, cond string, values []string, err error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return "", "", nil, fmt.Errorf("filter %q: expected field:condition[:values]", s)
	}
	field = strings.TrimSpace(parts[0])
	cond = strings.TrimSpace(parts[1])
	if len(parts) == 3 {
		values = strings.Split(parts[2], ",")
	}
	return field, cond, values, nil
}

// valueFlags collects column values for insert and update.
type valueFlags struct {
	set     []string
	setNull []string
}

func (v *valueFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&v.set, "set", "s", nil, `Column value "column=value" (repeatable)`)
	cmd.Flags().StringArrayVar(&v.setNull, "set-null", nil, "Column set to NULL (repeatable)")
}

func (v *valueFlags) pairs() (map[string]any, error) {
	pairs := make(map[string]any, len(v.set)+len(v.setNull))
	for _, s := range v.set {
		col, val, ok := strings.Cut(s, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, fmt.Errorf("--set %q: expected column=value", s)
		}
		pairs[col] = val
	}
	for _, col := range v.setNull {
		pairs[col] = nil
	}
	return pairs, nil
}

var errDryRun = errors.New("dry run: statements are not executed")

// renderOnly escapes with a dialect but never touches a database. It backs
// --dry-run so statements can be printed without a connection.
type renderOnly struct {
	dialect database.Dialect
}

func (r renderOnly) Escape(s string) string {
	return r.dialect.Escape(s)
}

func (renderOnly) Query(context.Context, string, ...any) ([]model.Row, error) {
	return nil, errDryRun
}

func (renderOnly) Exec(context.Context, string, ...any) (*model.Result, error) {
	return nil, errDryRun
}

// printStatement writes sql and, in bind mode, its arguments numbered in
// placeholder order.
func printStatement(cmd *cobra.Command, sql string, args []any) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, sql)
	for i, a := range args {
		_, _ = fmt.Fprintf(out, "  [%d] = %v\n", i+1, a)
	}
}
