package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/pscheid92/rubyemotes/internal/adapter/postgres"
	"github.com/pscheid92/rubyemotes/internal/domain"
	"github.com/spf13/cobra"
)

var emotesCmd = &cobra.Command{
	Use:   "emotes",
	Short: "Inspect emote metadata",
}

var emotesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List emotes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		emotes, err := postgres.NewEmoteRepo(pool).List(ctx)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), emotes)
		}
		printEmoteTable(cmd.OutOrStdout(), emotes)
		return nil
	},
}

func init() {
	emotesCmd.AddCommand(emotesListCmd)
}

func printEmoteTable(out io.Writer, emotes []domain.Emote) {
	if len(emotes) == 0 {
		fmt.Fprintln(out, "No emotes")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED\tURL")
	for _, e := range emotes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Name, e.CreatedAt.Format(time.RFC3339), e.URL)
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "\n%d emote(s)\n", len(emotes))
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
