package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/bytes"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv         string `env:"APP_ENV" default:"development"`
	Port           string `env:"PORT" default:"3000"`
	AdminAccessKey string `env:"ADMIN_ACCESS_KEY"`
	DatabaseURL    string `env:"DATABASE_URL"`
	RedisURL       string `env:"REDIS_URL"`
	NATSURL        string `env:"NATS_URL"`
	LogLevel       string `env:"LOG_LEVEL" default:"info"`
	LogFormat      string `env:"LOG_FORMAT" default:"text"`

	StorageBucket          string `env:"STORAGE_BUCKET"`
	StorageRegion          string `env:"STORAGE_REGION" default:"us-east-1"`
	StorageEndpoint        string `env:"STORAGE_ENDPOINT"`
	StoragePublicURL       string `env:"STORAGE_PUBLIC_URL"`
	StorageCredentialsFile string `env:"STORAGE_CREDENTIALS_FILE"`
	StoragePublicACL       bool   `env:"STORAGE_PUBLIC_ACL" default:"true"`

	CORSOrigins   string `env:"CORS_ORIGINS" default:"*"`
	MaxUploadSize string `env:"MAX_UPLOAD_SIZE" default:"10M"`

	AdminRateLimit float64 `env:"ADMIN_RATE_LIMIT" default:"0"`
	AdminRateBurst int     `env:"ADMIN_RATE_BURST" default:"10"`

	ConfigCacheTTL time.Duration `env:"CONFIG_CACHE_TTL" default:"10s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func validate(cfg *Config) error {
	required := []struct{ name, value string }{
		{"ADMIN_ACCESS_KEY", cfg.AdminAccessKey},
		{"DATABASE_URL", cfg.DatabaseURL},
		{"REDIS_URL", cfg.RedisURL},
		{"STORAGE_BUCKET", cfg.StorageBucket},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	if cfg.AdminRateLimit < 0 {
		return errors.New("ADMIN_RATE_LIMIT must not be negative")
	}
	if cfg.AdminRateLimit > 0 && cfg.AdminRateBurst < 1 {
		return errors.New("ADMIN_RATE_BURST must be at least 1 when rate limiting is enabled")
	}

	// Same parser as echo's BodyLimit, which would panic on this value at startup.
	if limit, err := bytes.Parse(cfg.MaxUploadSize); err != nil || limit <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE %q must be a positive size like 10M, 512KB or 1048576", cfg.MaxUploadSize)
	}

	if cfg.ConfigCacheTTL <= 0 {
		return errors.New("CONFIG_CACHE_TTL must be positive")
	}

	if cfg.StoragePublicURL != "" {
		if _, err := url.ParseRequestURI(cfg.StoragePublicURL); err != nil {
			return fmt.Errorf("STORAGE_PUBLIC_URL must be an absolute URL: %w", err)
		}
	}

	if cfg.IsProduction() {
		mode := sslMode(cfg.DatabaseURL)
		if mode == "disable" || mode == "allow" {
			return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
		}
	}

	return nil
}

func sslMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Query().Get("sslmode"))
}
