package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/rubyemotes/internal/domain"
)

const emotesCollection = "emotes"

// emoteData is the JSON body of an emotes/<id> document.
type emoteData struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// EmoteRepo stores one document per emote. CreatedAt lives in the row, not the JSON body.
type EmoteRepo struct {
	docs documents
}

func NewEmoteRepo(pool *pgxpool.Pool) *EmoteRepo {
	return &EmoteRepo{docs: documents{db: pool, collection: emotesCollection}}
}

func (r *EmoteRepo) Create(ctx context.Context, emote *domain.Emote) error {
	createdAt, err := r.docs.create(ctx, emote.ID, emoteData{Name: emote.Name, URL: emote.URL})
	if err != nil {
		return err
	}
	emote.CreatedAt = createdAt
	return nil
}

func (r *EmoteRepo) Get(ctx context.Context, id string) (*domain.Emote, error) {
	doc, err := r.docs.get(ctx, id)
	if errors.Is(err, errDocumentNotFound) {
		return nil, domain.ErrEmoteNotFound
	}
	if err != nil {
		return nil, err
	}

	emote, err := toEmote(*doc)
	if err != nil {
		return nil, err
	}
	return &emote, nil
}

// List returns every emote, newest first.
func (r *EmoteRepo) List(ctx context.Context) ([]domain.Emote, error) {
	docs, err := r.docs.list(ctx)
	if err != nil {
		return nil, err
	}

	emotes := make([]domain.Emote, 0, len(docs))
	for _, doc := range docs {
		emote, err := toEmote(doc)
		if err != nil {
			return nil, err
		}
		emotes = append(emotes, emote)
	}
	return emotes, nil
}

func (r *EmoteRepo) Delete(ctx context.Context, id string) error {
	err := r.docs.delete(ctx, id)
	if errors.Is(err, errDocumentNotFound) {
		return domain.ErrEmoteNotFound
	}
	return err
}

func toEmote(doc document) (domain.Emote, error) {
	var data emoteData
	if err := json.Unmarshal(doc.Data, &data); err != nil {
		return domain.Emote{}, fmt.Errorf("failed to decode emotes/%s: %w", doc.ID, err)
	}
	return domain.Emote{
		ID:        doc.ID,
		Name:      data.Name,
		URL:       data.URL,
		CreatedAt: doc.CreatedAt,
	}, nil
}
