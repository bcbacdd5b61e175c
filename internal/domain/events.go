package domain

import "context"

const (
	TopicConfigUpdated = "emotes.config.updated"
	TopicEmoteCreated  = "emotes.emote.created"
	TopicEmoteDeleted  = "emotes.emote.deleted"
)

type ConfigUpdated struct {
	Config SiteConfig `json:"config"`
}

type EmoteCreated struct {
	Emote Emote `json:"emote"`
}

type EmoteDeleted struct {
	EmoteID   string `json:"emote_id"`
	ObjectKey string `json:"object_key,omitempty"`
}

// EventPublisher emits change notifications for downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any) error
	Close() error
}
