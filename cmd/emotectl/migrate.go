package main

import (
	"fmt"
	"io"

	"github.com/pscheid92/rubyemotes/internal/adapter/postgres"
	"github.com/spf13/cobra"
)

var statusOnly bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if !statusOnly {
			if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
				return err
			}
		}

		status, err := postgres.GetMigrationStatus(ctx, pool)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), status)
		}
		printMigrationStatus(cmd.OutOrStdout(), status)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&statusOnly, "status", false, "report the schema version without migrating")
}

func printMigrationStatus(out io.Writer, s postgres.MigrationStatus) {
	if s.Pending() {
		fmt.Fprintf(out, "Schema at version %d of %d (%d pending)\n", s.Current, s.Latest, s.Latest-s.Current)
		return
	}
	fmt.Fprintf(out, "Schema up to date (version %d)\n", s.Current)
}
