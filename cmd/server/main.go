package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/rubyemotes/internal/adapter/events"
	"github.com/pscheid92/rubyemotes/internal/adapter/httpserver"
	"github.com/pscheid92/rubyemotes/internal/adapter/metrics"
	"github.com/pscheid92/rubyemotes/internal/adapter/objectstore"
	"github.com/pscheid92/rubyemotes/internal/adapter/postgres"
	"github.com/pscheid92/rubyemotes/internal/adapter/redis"
	"github.com/pscheid92/rubyemotes/internal/app"
	"github.com/pscheid92/rubyemotes/internal/domain"
	"github.com/pscheid92/rubyemotes/internal/platform/config"
	"github.com/pscheid92/rubyemotes/internal/platform/logging"
	"github.com/pscheid92/rubyemotes/internal/platform/retry"
	"github.com/pscheid92/rubyemotes/internal/platform/version"
	goredis "github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout       = 10 * time.Second
	startupTimeout        = 60 * time.Second
	cacheEvictionInterval = time.Minute
)

func logRetry(dependency string) func(int, error, time.Duration) {
	return func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Dependency not ready, retrying", "dependency", dependency, "attempt", attempt, "backoff", backoff, "error", err)
	}
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// slog is not configured yet
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(ctx context.Context, cfg *config.Config, dbMetrics *metrics.DBMetrics) *pgxpool.Pool {
	pool, err := retry.Do(ctx, retry.Startup(logRetry("postgres")), func(ctx context.Context) (*pgxpool.Pool, error) {
		return postgres.Connect(ctx, cfg.DatabaseURL, dbMetrics)
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(ctx context.Context, cfg *config.Config, redisMetrics *metrics.RedisMetrics) *goredis.Client {
	// Fresh hooks per attempt so boot-time failures do not leave the breaker open.
	client, err := retry.Do(ctx, retry.Startup(logRetry("redis")), func(ctx context.Context) (*goredis.Client, error) {
		return redis.NewClient(ctx, cfg.RedisURL,
			redis.NewMetricsHook(redisMetrics),
			redis.NewCircuitBreakerHook(redisMetrics, redis.DefaultBreakerSettings()),
		)
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupStorage(ctx context.Context, cfg *config.Config, storageMetrics *metrics.StorageMetrics) *objectstore.S3Store {
	store, err := objectstore.NewS3Store(ctx, objectstore.Options{
		Bucket:          cfg.StorageBucket,
		Region:          cfg.StorageRegion,
		Endpoint:        cfg.StorageEndpoint,
		PublicURL:       cfg.StoragePublicURL,
		CredentialsFile: cfg.StorageCredentialsFile,
		PublicReadACL:   cfg.StoragePublicACL,
	}, storageMetrics)
	if err != nil {
		slog.Error("Failed to create object store", "error", err)
		os.Exit(1)
	}
	return store
}

// setupEvents returns the publisher and, when NATS is configured, its health check.
func setupEvents(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (domain.EventPublisher, *httpserver.HealthCheck) {
	if cfg.NATSURL == "" {
		slog.Info("NATS_URL not set, change events are not published")
		return events.NoopPublisher{}, nil
	}

	publisher, err := retry.Do(ctx, retry.Startup(logRetry("nats")), func(context.Context) (*events.NATSPublisher, error) {
		return events.NewNATSPublisher(cfg.NATSURL, clock)
	})
	if err != nil {
		slog.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	return publisher, &httpserver.HealthCheck{Name: "nats", Check: publisher.Ping}
}

func runGracefulShutdown(srv *httpserver.Server, publisher domain.EventPublisher, redisClient *goredis.Client, pool *pgxpool.Pool, stopBackground func()) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopBackground()

		if err := publisher.Close(); err != nil {
			slog.Error("Failed to close event publisher", "error", err)
		}
		if err := redisClient.Close(); err != nil {
			slog.Error("Failed to close Redis client", "error", err)
		}
		pool.Close()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().Version)

	m := metrics.New(version.Get())

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelStartup()

	pool := setupDB(startupCtx, cfg, m.DB)
	redisClient := setupRedis(startupCtx, cfg, m.Redis)
	store := setupStorage(startupCtx, cfg, m.Storage)
	publisher, natsCheck := setupEvents(startupCtx, cfg, clock)

	configRepo := postgres.NewConfigRepo(pool)
	emoteRepo := postgres.NewEmoteRepo(pool)

	configCache := redis.NewConfigCacheRepo(redisClient, configRepo, cfg.ConfigCacheTTL, clock, m.Cache)
	stopEviction := configCache.StartEvictionTimer(cacheEvictionInterval)

	subscriberCtx, cancelSubscriber := context.WithCancel(context.Background())
	go redis.NewConfigInvalidationSubscriber(redisClient, configCache).Start(subscriberCtx)

	appSvc := app.NewService(configRepo, configCache, emoteRepo, store, publisher, clock)

	healthChecks := []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
		{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		{Name: "storage", Check: store.Ping},
	}
	if natsCheck != nil {
		healthChecks = append(healthChecks, *natsCheck)
	}

	srv, err := httpserver.NewServer(cfg, appSvc, healthChecks, httpserver.Observability{
		Registry: m.Registry,
		HTTP:     m.HTTP,
		Admin:    m.Admin,
	})
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	stopBackground := func() {
		cancelSubscriber()
		stopEviction()
	}
	done := runGracefulShutdown(srv, publisher, redisClient, pool, stopBackground)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
