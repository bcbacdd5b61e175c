package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ADMIN_ACCESS_KEY", "test-admin-key")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("STORAGE_BUCKET", "emotes-test")
}

// validConfig mirrors what Load returns with only the required variables set.
func validConfig() Config {
	return Config{
		AppEnv:           "development",
		AdminAccessKey:   "test-admin-key",
		DatabaseURL:      "postgres://localhost/test",
		RedisURL:         "redis://localhost:6379",
		StorageBucket:    "emotes-test",
		StoragePublicACL: true,
		CORSOrigins:      "*",
		MaxUploadSize:    "10M",
		AdminRateBurst:   10,
		ConfigCacheTTL:   10 * time.Second,
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	want := validConfig()
	want.Port = "3000"
	want.StorageRegion = "us-east-1"
	want.LogLevel = "info"
	want.LogFormat = "text"
	assert.Equal(t, want, *cfg)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_ENDPOINT", "http://minio:9000")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("ADMIN_RATE_LIMIT", "2.5")
	t.Setenv("CONFIG_CACHE_TTL", "1m")
	t.Setenv("STORAGE_PUBLIC_ACL", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://minio:9000", cfg.StorageEndpoint)
	assert.Equal(t, "nats://nats:4222", cfg.NATSURL)
	assert.InDelta(t, 2.5, cfg.AdminRateLimit, 0.001)
	assert.Equal(t, time.Minute, cfg.ConfigCacheTTL)
	assert.False(t, cfg.StoragePublicACL)
}

func TestLoad_RejectsInvalidEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORAGE_BUCKET", "")

	_, err := Load()

	require.EqualError(t, err, "STORAGE_BUCKET is required")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no admin key", func(c *Config) { c.AdminAccessKey = "" }, "ADMIN_ACCESS_KEY is required"},
		{"no database", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL is required"},
		{"no redis", func(c *Config) { c.RedisURL = "" }, "REDIS_URL is required"},
		{"no bucket", func(c *Config) { c.StorageBucket = "" }, "STORAGE_BUCKET is required"},
		{"negative rate", func(c *Config) { c.AdminRateLimit = -1 }, "ADMIN_RATE_LIMIT must not be negative"},
		{"rate without burst", func(c *Config) { c.AdminRateLimit, c.AdminRateBurst = 1, 0 }, "ADMIN_RATE_BURST"},
		{"burst ignored when unlimited", func(c *Config) { c.AdminRateBurst = 0 }, ""},
		{"upload size in bytes", func(c *Config) { c.MaxUploadSize = "1048576" }, ""},
		{"upload size with unit suffix", func(c *Config) { c.MaxUploadSize = "512KB" }, ""},
		{"lower-case upload size", func(c *Config) { c.MaxUploadSize = "10mb" }, ""},
		{"upload size with space", func(c *Config) { c.MaxUploadSize = "10 MB" }, ""},
		{"garbage upload size", func(c *Config) { c.MaxUploadSize = "ten megs" }, "MAX_UPLOAD_SIZE"},
		{"zero upload size", func(c *Config) { c.MaxUploadSize = "0" }, "MAX_UPLOAD_SIZE"},
		{"negative upload size", func(c *Config) { c.MaxUploadSize = "-5M" }, "MAX_UPLOAD_SIZE"},
		{"zero cache ttl", func(c *Config) { c.ConfigCacheTTL = 0 }, "CONFIG_CACHE_TTL must be positive"},
		{"relative public url", func(c *Config) { c.StoragePublicURL = "cdn/emotes" }, "STORAGE_PUBLIC_URL must be an absolute URL"},
		{"absolute public url", func(c *Config) { c.StoragePublicURL = "https://cdn.example.com/emotes" }, ""},
		{
			"insecure database in development",
			func(c *Config) { c.DatabaseURL = "postgres://u:p@db/emotes?sslmode=disable" },
			"",
		},
		{
			"sslmode=disable in production",
			func(c *Config) {
				c.AppEnv = "production"
				c.DatabaseURL = "postgres://u:p@db/emotes?sslmode=disable"
			},
			"sslmode=disable which is not allowed in production",
		},
		{
			"sslmode=ALLOW in production",
			func(c *Config) {
				c.AppEnv = "production"
				c.DatabaseURL = "postgres://u:p@db/emotes?sslmode=ALLOW"
			},
			"sslmode=allow which is not allowed in production",
		},
		{
			"sslmode=require in production",
			func(c *Config) {
				c.AppEnv = "production"
				c.DatabaseURL = "postgres://u:p@db/emotes?sslmode=require"
			},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := validate(&cfg)

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"*", []string{"*"}},
		{"", []string{"*"}},
		{" , ", []string{"*"}},
		{"https://a.test, https://b.test", []string{"https://a.test", "https://b.test"}},
		{"https://a.test,,", []string{"https://a.test"}},
	}
	for _, tt := range tests {
		cfg := Config{CORSOrigins: tt.raw}
		assert.Equal(t, tt.want, cfg.AllowedOrigins(), "CORS_ORIGINS=%q", tt.raw)
	}
}
