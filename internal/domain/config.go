package domain

import "context"

// DefaultAdLink is served while settings/main has never been written.
const DefaultAdLink = "https://google.com"

// SiteConfig is the single settings/main document.
type SiteConfig struct {
	AdLink string `json:"adLink"`
}

// DefaultSiteConfig returns the config used before the first admin write.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{AdLink: DefaultAdLink}
}

// ConfigRepository reads and merge-writes the settings/main document.
type ConfigRepository interface {
	Get(ctx context.Context) (*SiteConfig, error)
	Merge(ctx context.Context, cfg SiteConfig) error
}

// ConfigSource is a cached view of ConfigRepository.
// Get returns ErrConfigNotFound when the document does not exist.
type ConfigSource interface {
	Get(ctx context.Context) (*SiteConfig, error)
	Invalidate(ctx context.Context) error
}
