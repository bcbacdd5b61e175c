package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/rubyemotes/internal/platform/retry"
)

const (
	maxConnIdleTime   = 5 * time.Minute
	healthCheckPeriod = 30 * time.Second
)

// Connect opens a pool against databaseURL and verifies it with a ping.
// tracer may be nil. A malformed URL is returned as retry.Permanent.
func Connect(ctx context.Context, databaseURL string, tracer pgx.QueryTracer) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to parse database URL: %w", err))
	}
	poolCfg.MaxConnIdleTime = maxConnIdleTime
	poolCfg.HealthCheckPeriod = healthCheckPeriod
	if tracer != nil {
		poolCfg.ConnConfig.Tracer = tracer
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.InfoContext(ctx, "Database connected",
		"endpoint", describeEndpoint(poolCfg.ConnConfig),
		"tls", poolCfg.ConnConfig.TLSConfig != nil,
		"max_conns", poolCfg.MaxConns)
	return pool, nil
}

// describeEndpoint renders host, port and database without credentials.
func describeEndpoint(cfg *pgx.ConnConfig) string {
	return fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
}
