package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/rubyemotes/internal/adapter/objectstore"
	"github.com/pscheid92/rubyemotes/internal/adapter/postgres"
	"github.com/pscheid92/rubyemotes/internal/platform/config"
	"github.com/pscheid92/rubyemotes/internal/platform/logging"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	timeout    time.Duration

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "emotectl <command>",
	Short:         "Maintenance commands for the Ruby Emotes backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall deadline for the command")

	rootCmd.AddCommand(migrateCmd, emotesCmd, sweepCmd)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func connectDB(ctx context.Context) (*pgxpool.Pool, error) {
	return postgres.Connect(ctx, cfg.DatabaseURL, nil)
}

func openStorage(ctx context.Context) (*objectstore.S3Store, error) {
	return objectstore.NewS3Store(ctx, objectstore.Options{
		Bucket:          cfg.StorageBucket,
		Region:          cfg.StorageRegion,
		Endpoint:        cfg.StorageEndpoint,
		PublicURL:       cfg.StoragePublicURL,
		CredentialsFile: cfg.StorageCredentialsFile,
		PublicReadACL:   cfg.StoragePublicACL,
	}, nil)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
