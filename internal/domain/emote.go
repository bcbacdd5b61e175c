package domain

import (
	"context"
	"time"
)

// DefaultEmoteName is stored when an upload carries no name.
const DefaultEmoteName = "Unnamed Emote"

// EmoteKeyPrefix is the object-store prefix all emote images live under.
const EmoteKeyPrefix = "emotes/"

type Emote struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// EmoteRepository stores one metadata document per emote in the emotes collection.
// Create fills in CreatedAt from the store's clock.
type EmoteRepository interface {
	Create(ctx context.Context, emote *Emote) error
	Get(ctx context.Context, id string) (*Emote, error)
	List(ctx context.Context) ([]Emote, error)
	Delete(ctx context.Context, id string) error
}
