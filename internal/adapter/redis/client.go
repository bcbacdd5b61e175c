package redis

import (
	"context"
	"fmt"

	"github.com/pscheid92/rubyemotes/internal/platform/retry"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient parses redisURL, installs hooks in order and pings the server.
// A malformed URL is returned as retry.Permanent.
func NewClient(ctx context.Context, redisURL string, hooks ...goredis.Hook) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to parse redis URL: %w", err))
	}

	client := goredis.NewClient(opts)
	for _, h := range hooks {
		client.AddHook(h)
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
