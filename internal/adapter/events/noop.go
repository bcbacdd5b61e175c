package events

import (
	"context"

	"github.com/pscheid92/rubyemotes/internal/domain"
)

// NoopPublisher drops every event. It is used when NATS_URL is empty.
type NoopPublisher struct{}

var _ domain.EventPublisher = NoopPublisher{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (NoopPublisher) Close() error { return nil }
