package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cdtdelta/dbhelper/internal/csvio"
	"github.com/cdtdelta/dbhelper/internal/database"
	"github.com/cdtdelta/dbhelper/internal/jsonlio"
	"github.com/cdtdelta/dbhelper/internal/query"
)

type importOptions struct {
	table      string
	emptyNull  bool
	limit      int
	timestamps []string
}

func newImportCmd(g *globalFlags) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Insert every row of a CSV or JSON Lines file",
		Long: `Insert every row of a file into a table, one INSERT per row.
CSV files name their columns in the header line. Files ending in .jsonl or
.ndjson hold one JSON object per line, keyed by column.

Example:
  dbhelper import users.csv -t users --timestamp created --empty-null`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, g, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.table, "table", "t", "", "Target table")
	cmd.Flags().BoolVar(&opts.emptyNull, "empty-null", false, "Insert empty cells as NULL")
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 0, "Maximum rows to import (0 for all)")
	cmd.Flags().StringSliceVar(&opts.timestamps, "timestamp", nil, "Column whose values are normalized to YYYY-MM-DD HH:MM:SS")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

func runImport(cmd *cobra.Command, g *globalFlags, opts *importOptions, path string) error {
	s, err := g.load(cmd)
	if err != nil {
		return err
	}

	rows, err := readImportFile(s, opts, path)
	if err != nil {
		return err
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

	imported, err := importRows(cmd, b, store.Dialect(), opts, rows)
	if err != nil {
		return err
	}

	s.logger.Info().Str("file", path).Str("table", opts.table).Int("rows", imported).Msg("import complete")
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d row(s) into %s\n", imported, opts.table)
	return nil
}

// readImportFile reads a CSV file, or a JSON Lines file when path ends in
// .jsonl or .ndjson.
func readImportFile(s *session, opts *importOptions, path string) ([]map[string]any, error) {
	progress := func(n int) {
		s.logger.Info().Int("rows", n).Str("file", path).Msg("reading")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		if err := jsonlio.ValidateFile(path, opts.timestamps...); err != nil {
			return nil, fmt.Errorf("validating %s: %w", path, err)
		}
		res, err := jsonlio.ReadRows(path, opts.limit, progress)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if res.Excluded > 0 {
			s.logger.Warn().Int("lines", res.Excluded).Str("file", path).Msg("skipped lines that are not JSON objects")
		}
		if opts.emptyNull {
			for _, row := range res.Rows {
				for k, v := range row {
					if v == "" {
						row[k] = nil
					}
				}
			}
		}
		return res.Rows, nil

	default:
		if err := csvio.ValidateHeader(path, opts.timestamps...); err != nil {
			return nil, fmt.Errorf("validating %s: %w", path, err)
		}
		res, err := csvio.ReadRows(path, opts.emptyNull, opts.limit, progress)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return res.Rows, nil
	}
}

// importRows inserts rows one at a time and returns how many succeeded
// before the first failure.
func importRows(cmd *cobra.Command, b *query.Builder, d database.Dialect, opts *importOptions, rows []map[string]any) (int, error) {
	isTimestamp := make(map[string]bool, len(opts.timestamps))
	for _, col := range opts.timestamps {
		isTimestamp[col] = true
	}
	table := d.QuoteIdent(opts.table)

	for i, row := range rows {
		pairs := make(map[string]any, len(row))
		for col, v := range row {
			if str, ok := v.(string); ok && isTimestamp[col] && str != "" {
				ts, err := b.ValidateTimestamp(str)
				if err != nil {
					return i, fmt.Errorf("row %d column %s: %w", i+1, col, err)
				}
				v = ts
			}
			pairs[d.QuoteIdent(col)] = v
		}

		b.AddTable(table)
		if err := b.AddValue(pairs); err != nil {
			b.Reset()
			return i, fmt.Errorf("row %d: %w", i+1, err)
		}
		if _, err := b.QuickInsert(cmd.Context()); err != nil {
			b.Reset()
			return i, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return len(rows), nil
}
