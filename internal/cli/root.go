// Package cli implements the hearth command line.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryan-buckman/hearth/internal/config"
	"github.com/bryan-buckman/hearth/internal/database"
	"github.com/bryan-buckman/hearth/internal/logging"
	"github.com/bryan-buckman/hearth/migrations"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
)

// Execute runs the root command with the process arguments.
func Execute(ctx context.Context) error {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		red.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "hearth",
		Short:         "Hearth - property listings with gated contact details",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("HEARTH_CONFIG"), "path to a YAML config file")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}
	root.AddCommand(
		newServeCmd(load),
		newMigrateCmd(load),
		newListingsCmd(load),
	)
	return root
}

type loader func() (*config.Config, error)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

// openStore opens the configured database, creating the directory of an
// SQLite file when needed.
func openStore(cfg *config.Config) (database.Store, error) {
	if cfg.Database.Driver == database.DriverSQLite && cfg.Database.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Database.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
	}
	store, err := database.Open(cfg.Database.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Database.Driver, err)
	}
	return store, nil
}

// dialectOf returns the goose dialect and connection behind store.
func dialectOf(store database.Store) (string, *sql.DB, error) {
	switch s := store.(type) {
	case *database.DB:
		return migrations.DialectSQLite, s.Conn(), nil
	case *database.PostgresStore:
		return migrations.DialectPostgres, s.Conn(), nil
	default:
		return "", nil, fmt.Errorf("migrations unsupported for %s", store.DatabaseType())
	}
}
