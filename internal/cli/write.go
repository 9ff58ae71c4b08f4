package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cdtdelta/dbhelper/internal/database"
	"github.com/cdtdelta/dbhelper/internal/model"
	"github.com/cdtdelta/dbhelper/internal/query"
)

type writeOptions struct {
	table   string
	values  valueFlags
	filters filterFlags
	dryRun  bool
}

func newInsertCmd(g *globalFlags) *cobra.Command {
	opts := &writeOptions{}

	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Insert one row",
		Long: `Insert one row built from --set and --set-null values.

Example:
  dbhelper insert -t users -s name=bob -s age=30 --set-null created`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(cmd, g, opts, insertStatement, func(b *query.Builder, cmd *cobra.Command) (*model.Result, error) {
				return b.QuickInsert(cmd.Context())
			})
		},
	}

	cmd.Flags().StringVarP(&opts.table, "table", "t", "", "Target table")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the statement instead of running it")
	opts.values.register(cmd)
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

func newUpdateCmd(g *globalFlags) *cobra.Command {
	opts := &writeOptions{}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update rows matching the filters",
		Long: `Update the rows matching the filter flags with --set and --set-null values.
Without filters every row of the table is updated.

Example:
  dbhelper update -t users -s age=31 -w "name=bob"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(cmd, g, opts, updateStatement, func(b *query.Builder, cmd *cobra.Command) (*model.Result, error) {
				return b.QuickUpdate(cmd.Context(), opts.filters.connective())
			})
		},
	}

	cmd.Flags().StringVarP(&opts.table, "table", "t", "", "Target table")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the statement instead of running it")
	opts.values.register(cmd)
	opts.filters.register(cmd)
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

// insertStatement and updateStatement render without executing, for --dry-run.
func insertStatement(b *query.Builder, _ *writeOptions) (string, error) {
	return b.BuildInsertStatement()
}

func updateStatement(b *query.Builder, opts *writeOptions) (string, error) {
	update, err := b.BuildUpdateStatement()
	if err != nil {
		return "", err
	}
	return update + " " + b.BuildWhereClause(opts.filters.connective()), nil
}

func runWrite(
	cmd *cobra.Command,
	g *globalFlags,
	opts *writeOptions,
	render func(*query.Builder, *writeOptions) (string, error),
	run func(*query.Builder, *cobra.Command) (*model.Result, error),
) error {
	s, err := g.load(cmd)
	if err != nil {
		return err
	}

	var (
		exec    query.Executor
		dialect database.Dialect
	)
	if opts.dryRun {
		if dialect, err = database.DialectFor(s.cfg.Database.Driver); err != nil {
			return err
		}
		exec = renderOnly{dialect: dialect}
	} else {
		store, err := s.openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		exec, dialect = store, store.Dialect()
	}

	b, err := s.builder(exec, dialect)
	if err != nil {
		return err
	}
	if err := opts.populate(b); err != nil {
		return err
	}

	if opts.dryRun {
		sql, err := render(b, opts)
		if err != nil {
			return err
		}
		printStatement(cmd, sql, b.Args())
		return nil
	}

	res, err := run(b, cmd)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d row(s) affected, last insert id %d\n", res.RowsAffected, res.LastInsertID)
	return nil
}

func (o *writeOptions) populate(b *query.Builder) error {
	pairs, err := o.values.pairs()
	if err != nil {
		return err
	}
	b.AddTable(o.table)
	if len(pairs) > 0 {
		if err := b.AddValue(pairs); err != nil {
			return err
		}
	}
	return o.filters.apply(b)
}
