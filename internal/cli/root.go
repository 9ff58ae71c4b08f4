// Package cli implements the dbhelper command line.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cdtdelta/dbhelper/internal/config"
	"github.com/cdtdelta/dbhelper/internal/database"
	"github.com/cdtdelta/dbhelper/internal/logging"
	"github.com/cdtdelta/dbhelper/internal/query"
)

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	driver     string
	dsn        string
	logLevel   string
}

// NewRootCmd creates the dbhelper root command with all subcommands.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "dbhelper",
		Short: "Build and run SQL statements from the command line",
		Long: `dbhelper assembles SELECT, INSERT and UPDATE statements from flags,
escapes every value for the configured backend and runs them.

Backends: sqlite, postgres, mysql. Settings come from a YAML config file,
then DBHELPER_* environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "dbhelper.yaml", "Path to the config file")
	cmd.PersistentFlags().StringVar(&g.driver, "driver", "", "Database driver (sqlite, postgres, mysql)")
	cmd.PersistentFlags().StringVar(&g.dsn, "dsn", "", "Data source name (file path or connection string)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	cmd.AddCommand(newSelectCmd(g))
	cmd.AddCommand(newInsertCmd(g))
	cmd.AddCommand(newUpdateCmd(g))
	cmd.AddCommand(newImportCmd(g))
	cmd.AddCommand(newFetchCmd(g))

	return cmd
}

// session is everything a subcommand needs once config is resolved.
type session struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// load resolves the configuration for cmd: file, then environment, then flags.
func (g *globalFlags) load(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if g.driver != "" {
		cfg.Database.Driver = g.driver
	}
	if g.dsn != "" {
		cfg.Database.DSN = g.dsn
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	return &session{cfg: cfg, logger: logger}, nil
}

// openStore opens the configured database.
func (s *session) openStore() (database.Store, error) {
	store, err := database.OpenStore(s.cfg.Database.Driver, s.cfg.Database.DSN, database.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return store, nil
}

// builder creates a statement builder over exec using the configured
// timezone and, when enabled, bound parameters in d's placeholder style.
func (s *session) builder(exec query.Executor, d database.Dialect) (*query.Builder, error) {
	loc, err := s.cfg.Location()
	if err != nil {
		return nil, err
	}
	opts := []query.Option{
		query.WithLogger(s.logger),
		query.WithLocation(loc),
	}
	if s.cfg.Database.BindVars {
		opts = append(opts, query.WithBindVars(d))
	}
	return query.New(exec, opts...), nil
}
