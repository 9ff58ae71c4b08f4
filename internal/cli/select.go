package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/cdtdelta/dbhelper/internal/csvio"
	"github.com/cdtdelta/dbhelper/internal/database"
	"github.com/cdtdelta/dbhelper/internal/model"
	"github.com/cdtdelta/dbhelper/internal/query"
)

type selectOptions struct {
	fields   []string
	tables   []string
	joins    []string
	joinKind string
	order    []string
	offset   int
	limit    int
	filters  filterFlags
	dryRun   bool
	csv      bool
}

func newSelectCmd(g *globalFlags) *cobra.Command {
	opts := &selectOptions{}

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Build and run a SELECT statement",
		Long: `Build a SELECT from flags and print the resulting rows.

Examples:
  dbhelper select -t users -f name -f age -w "age>30"
  dbhelper select -t users --filter "name:is in:bob,alice" --order name:desc --limit 10
  dbhelper select -t users --join "orders ON orders.user_id = users.id" --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(cmd, g, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.fields, "field", "f", nil, "Column expression to select (default *)")
	cmd.Flags().StringArrayVarP(&opts.tables, "table", "t", nil, "Table to select from")
	cmd.Flags().StringArrayVarP(&opts.joins, "join", "j", nil, `Join "table ON condition" (repeatable)`)
	cmd.Flags().StringVar(&opts.joinKind, "join-kind", query.DefaultJoin, "Join kind used for every --join")
	cmd.Flags().StringArrayVarP(&opts.order, "order", "o", nil, `Ordering "field[:asc|desc]" (repeatable)`)
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Rows to skip")
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 0, "Maximum rows to return")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the statement instead of running it")
	cmd.Flags().BoolVar(&opts.csv, "csv", false, "Write rows as CSV")
	opts.filters.register(cmd)

	_ = cmd.MarkFlagRequired("table")

	return cmd
}

func runSelect(cmd *cobra.Command, g *globalFlags, opts *selectOptions) error {
	s, err := g.load(cmd)
	if err != nil {
		return err
	}

	if opts.dryRun {
		d, err := database.DialectFor(s.cfg.Database.Driver)
		if err != nil {
			return err
		}
		b, err := s.builder(renderOnly{dialect: d}, d)
		if err != nil {
			return err
		}
		if err := opts.populate(b); err != nil {
			return err
		}
		sql, err := b.BuildQuery(opts.filters.connective())
		if err != nil {
			return err
		}
		printStatement(cmd, sql, b.Args())
		return nil
	}

	store, err := s.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	b, err := s.builder(store, store.Dialect())
	if err != nil {
		return err
	}
	if err := opts.populate(b); err != nil {
		return err
	}

	rows, err := b.QuickSelect(cmd.Context(), opts.filters.connective())
	if err != nil {
		return err
	}
	s.logger.Debug().Int("rows", len(rows)).Msg("select complete")

	if opts.csv {
		return csvio.WriteRows(cmd.OutOrStdout(), nil, rows)
	}
	return writeTable(cmd.OutOrStdout(), rows)
}

func (o *selectOptions) populate(b *query.Builder) error {
	b.AddField(o.fields...)
	b.AddTable(o.tables...)

	for _, j := range o.joins {
		table, cond, ok := strings.Cut(j, " ON ")
		if !ok {
			return fmt.Errorf("--join %q: expected \"table ON condition\"", j)
		}
		if err := b.AddJoin(strings.TrimSpace(table), strings.TrimSpace(cond), o.joinKind); err != nil {
			return fmt.Errorf("--join %q: %w", j, err)
		}
	}

	if err := o.filters.apply(b); err != nil {
		return err
	}

	for _, term := range o.order {
		field, dir, _ := strings.Cut(term, ":")
		b.AddOrderBy(field, dir)
	}
	b.SetOffset(o.offset)
	b.SetLimit(o.limit)
	return nil
}

// writeTable prints rows as aligned columns with a header line.
func writeTable(w io.Writer, rows []model.Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(no rows)")
		return err
	}
	cols := model.Columns(rows)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(lo.Map(cols, func(c string, _ int) string {
		return strings.ToUpper(c)
	}), "\t"))
	for _, r := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(lo.Map(cols, func(c string, _ int) string {
			return r.String(c)
		}), "\t"))
	}
	return tw.Flush()
}
