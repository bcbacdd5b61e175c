package main

import (
	"fmt"
	"io"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/rubyemotes/internal/adapter/events"
	"github.com/pscheid92/rubyemotes/internal/adapter/postgres"
	"github.com/pscheid92/rubyemotes/internal/app"
	"github.com/spf13/cobra"
)

var sweepOpts app.SweepOptions

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete emote images that no metadata record references",
	Long: `Lists every object under emotes/ and deletes the ones no emote record points at.
Objects younger than --min-age are kept so uploads still in flight are not removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		store, err := openStorage(ctx)
		if err != nil {
			return err
		}

		svc := app.NewService(postgres.NewConfigRepo(pool), nil, postgres.NewEmoteRepo(pool), store, events.NoopPublisher{}, clockwork.NewRealClock())

		result, err := svc.SweepOrphans(ctx, sweepOpts)
		if err != nil {
			return err
		}

		if jsonOutput {
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
		} else {
			printSweepResult(cmd.OutOrStdout(), result, sweepOpts.DryRun)
		}
		return sweepFailure(result)
	},
}

// sweepFailure turns failed deletes into a non-zero exit in every output mode.
func sweepFailure(r *app.SweepResult) error {
	if len(r.Failed) > 0 {
		return fmt.Errorf("%d object(s) could not be deleted", len(r.Failed))
	}
	return nil
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepOpts.DryRun, "dry-run", false, "report orphans without deleting them")
	sweepCmd.Flags().DurationVar(&sweepOpts.MinAge, "min-age", app.DefaultSweepMinAge, "skip objects modified more recently than this")
}

func printSweepResult(out io.Writer, r *app.SweepResult, dryRun bool) {
	fmt.Fprintf(out, "Scanned %d object(s): %d referenced, %d too recent, %d orphaned\n",
		r.Scanned, r.Referenced, r.TooRecent, len(r.Orphans))

	if dryRun {
		for _, key := range r.Orphans {
			fmt.Fprintf(out, "  would delete %s\n", key)
		}
		return
	}

	for _, key := range r.Deleted {
		fmt.Fprintf(out, "  deleted %s\n", key)
	}
	for _, key := range r.Failed {
		fmt.Fprintf(out, "  FAILED  %s\n", key)
	}
}
