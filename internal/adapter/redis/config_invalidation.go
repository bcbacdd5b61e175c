package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
)

const configInvalidationChannel = "config:invalidate"

// ConfigInvalidationSubscriber drops the local L1 entry when another instance
// writes the config.
type ConfigInvalidationSubscriber struct {
	rdb   *goredis.Client
	cache *ConfigCacheRepo
}

func NewConfigInvalidationSubscriber(rdb *goredis.Client, cache *ConfigCacheRepo) *ConfigInvalidationSubscriber {
	return &ConfigInvalidationSubscriber{rdb: rdb, cache: cache}
}

// Start blocks until ctx is done or the subscription closes.
func (s *ConfigInvalidationSubscriber) Start(ctx context.Context) {
	pubsub := s.rdb.Subscribe(ctx, configInvalidationChannel)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok || msg == nil {
				return
			}
			s.handleInvalidation(msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (s *ConfigInvalidationSubscriber) handleInvalidation(payload string) {
	if payload != settingsDocument {
		slog.Warn("Ignoring config invalidation for unknown document", "document", payload)
		return
	}

	s.cache.dropLocal(sourceRemote)
	slog.Debug("Config cache invalidated via pub/sub", "document", payload)
}

func publishConfigInvalidation(ctx context.Context, rdb goredis.Cmdable, document string) error {
	if err := rdb.Publish(ctx, configInvalidationChannel, document).Err(); err != nil {
		return fmt.Errorf("failed to publish config invalidation: %w", err)
	}
	return nil
}
