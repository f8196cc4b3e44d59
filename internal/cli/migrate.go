package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bryan-buckman/hearth/migrations"
)

func newMigrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <" + strings.Join(migrations.Commands, "|") + ">",
		Short: "Run database migrations",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return err
			}
			if !slices.Contains(migrations.Commands, args[0]) {
				return fmt.Errorf("unknown migrate command %q", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			dialect, conn, err := dialectOf(store)
			if err != nil {
				return err
			}
			if err := migrations.Command(conn, dialect, args[0]); err != nil {
				return err
			}
			green.Fprintf(cmd.OutOrStdout(), "✓ migrate %s (%s)\n", args[0], store.DatabaseType())
			return nil
		},
	}
}
