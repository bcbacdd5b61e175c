package httpserver

import (
	"context"
	"io"
	"testing"

	"github.com/pscheid92/rubyemotes/internal/app"
	"github.com/pscheid92/rubyemotes/internal/domain"
	"github.com/pscheid92/rubyemotes/internal/platform/config"
	"github.com/stretchr/testify/require"
)

const testAdminKey = "test-admin-key"

type mockAppService struct {
	getConfigFn   func(ctx context.Context) (domain.SiteConfig, error)
	saveConfigFn  func(ctx context.Context, adLink string) error
	addEmoteFn    func(ctx context.Context, req app.AddEmoteRequest) (*domain.Emote, error)
	listEmotesFn  func(ctx context.Context) ([]domain.Emote, error)
	deleteEmoteFn func(ctx context.Context, id string) error
}

func (m *mockAppService) GetConfig(ctx context.Context) (domain.SiteConfig, error) {
	if m.getConfigFn != nil {
		return m.getConfigFn(ctx)
	}
	return domain.DefaultSiteConfig(), nil
}

func (m *mockAppService) SaveConfig(ctx context.Context, adLink string) error {
	if m.saveConfigFn != nil {
		return m.saveConfigFn(ctx, adLink)
	}
	return nil
}

func (m *mockAppService) AddEmote(ctx context.Context, req app.AddEmoteRequest) (*domain.Emote, error) {
	if m.addEmoteFn != nil {
		return m.addEmoteFn(ctx, req)
	}
	_, _ = io.Copy(io.Discard, req.Body)
	return &domain.Emote{ID: "emote-01", Name: req.Name, URL: "https://storage.example.com/bucket/emotes/1_" + req.Filename}, nil
}

func (m *mockAppService) ListEmotes(ctx context.Context) ([]domain.Emote, error) {
	if m.listEmotesFn != nil {
		return m.listEmotesFn(ctx)
	}
	return nil, nil
}

func (m *mockAppService) DeleteEmote(ctx context.Context, id string) error {
	if m.deleteEmoteFn != nil {
		return m.deleteEmoteFn(ctx, id)
	}
	return nil
}

type testServerOption func(*testServerOptions)

type testServerOptions struct {
	healthChecks []HealthCheck
	observ       Observability
	configure    func(*config.Config)
}

func withHealthChecks(checks ...HealthCheck) testServerOption {
	return func(o *testServerOptions) { o.healthChecks = checks }
}

func withObservability(observ Observability) testServerOption {
	return func(o *testServerOptions) { o.observ = observ }
}

func withConfig(fn func(*config.Config)) testServerOption {
	return func(o *testServerOptions) { o.configure = fn }
}

func newTestConfig() *config.Config {
	return &config.Config{
		AppEnv:         "test",
		Port:           "0",
		AdminAccessKey: testAdminKey,
		CORSOrigins:    "*",
		MaxUploadSize:  "1K",
		AdminRateBurst: 10,
	}
}

func newTestServer(t *testing.T, svc appService, opts ...testServerOption) *Server {
	t.Helper()

	var o testServerOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := newTestConfig()
	if o.configure != nil {
		o.configure(cfg)
	}

	srv, err := NewServer(cfg, svc, o.healthChecks, o.observ)
	require.NoError(t, err)
	return srv
}
