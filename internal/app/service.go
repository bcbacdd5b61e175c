package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/rubyemotes/internal/domain"
	"github.com/pscheid92/rubyemotes/internal/platform/idgen"
)

type Service struct {
	configs      domain.ConfigRepository
	configSource domain.ConfigSource
	emotes       domain.EmoteRepository
	blobs        domain.BlobStore
	events       domain.EventPublisher
	clock        clockwork.Clock
	newID        func() (string, error)
}

// NewService wires the application layer. configSource is the cached read path
// over configs; writes always go to configs directly.
func NewService(configs domain.ConfigRepository, configSource domain.ConfigSource, emotes domain.EmoteRepository, blobs domain.BlobStore, events domain.EventPublisher, clock clockwork.Clock) *Service {
	return &Service{
		configs:      configs,
		configSource: configSource,
		emotes:       emotes,
		blobs:        blobs,
		events:       events,
		clock:        clock,
		newID:        idgen.DocumentID,
	}
}

// GetConfig returns settings/main, or the default config if it was never written.
func (s *Service) GetConfig(ctx context.Context) (domain.SiteConfig, error) {
	cfg, err := s.configSource.Get(ctx)
	if errors.Is(err, domain.ErrConfigNotFound) {
		return domain.DefaultSiteConfig(), nil
	}
	if err != nil {
		return domain.SiteConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return *cfg, nil
}

// SaveConfig merges adLink into settings/main.
func (s *Service) SaveConfig(ctx context.Context, adLink string) error {
	cfg := domain.SiteConfig{AdLink: adLink}
	if err := s.configs.Merge(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if err := s.configSource.Invalidate(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to invalidate config cache", "error", err)
	}

	s.publish(ctx, domain.TopicConfigUpdated, domain.ConfigUpdated{Config: cfg})
	return nil
}

// publish never fails the caller; a lost notification is only logged.
func (s *Service) publish(ctx context.Context, topic string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, topic, payload); err != nil {
		slog.WarnContext(ctx, "Failed to publish event", "topic", topic, "error", err)
	}
}
