package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	versionTable = "public.schema_version"

	// "rubyem" in ASCII.
	migrationLockID    = 0x72756279656d
	lockReleaseTimeout = 5 * time.Second
)

// MigrationStatus reports the applied schema version against the embedded one.
type MigrationStatus struct {
	Current int32 `json:"current"`
	Latest  int32 `json:"latest"`
}

// Pending reports whether migrations remain to be applied.
func (s MigrationStatus) Pending() bool { return s.Current < s.Latest }

// RunMigrationsWithLock brings the schema to the latest embedded version.
// Replicas starting together serialize on a session advisory lock, so the
// losers find nothing left to do.
func RunMigrationsWithLock(ctx context.Context, pool *pgxpool.Pool) error {
	return withMigrator(ctx, pool, func(conn *pgx.Conn, m *migrate.Migrator) error {
		before, err := currentVersion(ctx, conn, m)
		if err != nil {
			return err
		}
		latest := int32(len(m.Migrations))
		if before >= latest {
			slog.InfoContext(ctx, "Database schema up to date", "version", before)
			return nil
		}

		slog.InfoContext(ctx, "Running database migrations", "from", before, "to", latest)
		if err := m.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		return nil
	})
}

// GetMigrationStatus reads the applied version without migrating.
func GetMigrationStatus(ctx context.Context, pool *pgxpool.Pool) (MigrationStatus, error) {
	var status MigrationStatus
	err := withMigrator(ctx, pool, func(conn *pgx.Conn, m *migrate.Migrator) error {
		current, err := currentVersion(ctx, conn, m)
		if err != nil {
			return err
		}
		status = MigrationStatus{Current: current, Latest: int32(len(m.Migrations))}
		return nil
	})
	return status, err
}

func withMigrator(ctx context.Context, pool *pgxpool.Pool, fn func(*pgx.Conn, *migrate.Migrator) error) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for migration: %w", err)
	}
	defer conn.Release()

	unlock, err := advisoryLock(ctx, conn.Conn())
	if err != nil {
		return err
	}
	defer unlock()

	migrator, err := migrate.NewMigrator(ctx, conn.Conn(), versionTable)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	if err := migrator.LoadMigrations(sub); err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	return fn(conn.Conn(), migrator)
}

// currentVersion treats a missing version table as a fresh database.
func currentVersion(ctx context.Context, conn *pgx.Conn, m *migrate.Migrator) (int32, error) {
	var exists bool
	if err := conn.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", versionTable).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to look up version table: %w", err)
	}
	if !exists {
		return 0, nil
	}

	v, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// advisoryLock blocks until the migration lock is held. The returned func
// releases it on a fresh context so a cancelled ctx cannot leak the lock.
func advisoryLock(ctx context.Context, conn *pgx.Conn) (func(), error) {
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return nil, fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
		defer cancel()

		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			slog.Error("Failed to release migration lock", "error", err)
		}
	}, nil
}
