package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/rubyemotes/internal/domain"
)

const (
	settingsCollection = "settings"
	mainSettingsID     = "main"
)

// ConfigRepo stores the settings/main document.
type ConfigRepo struct {
	docs documents
}

func NewConfigRepo(pool *pgxpool.Pool) *ConfigRepo {
	return &ConfigRepo{docs: documents{db: pool, collection: settingsCollection}}
}

func (r *ConfigRepo) Get(ctx context.Context) (*domain.SiteConfig, error) {
	doc, err := r.docs.get(ctx, mainSettingsID)
	if errors.Is(err, errDocumentNotFound) {
		return nil, domain.ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}

	var cfg domain.SiteConfig
	if err := json.Unmarshal(doc.Data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode settings/main: %w", err)
	}
	return &cfg, nil
}

func (r *ConfigRepo) Merge(ctx context.Context, cfg domain.SiteConfig) error {
	return r.docs.merge(ctx, mainSettingsID, cfg)
}
