package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/rubyemotes/internal/adapter/metrics"
	"github.com/pscheid92/rubyemotes/internal/app"
	"github.com/pscheid92/rubyemotes/internal/domain"
	"github.com/pscheid92/rubyemotes/internal/platform/config"
	"github.com/pscheid92/rubyemotes/web"
)

type appService interface {
	GetConfig(ctx context.Context) (domain.SiteConfig, error)
	SaveConfig(ctx context.Context, adLink string) error
	AddEmote(ctx context.Context, req app.AddEmoteRequest) (*domain.Emote, error)
	ListEmotes(ctx context.Context) ([]domain.Emote, error)
	DeleteEmote(ctx context.Context, id string) error
}

// Observability groups the optional metrics wiring. Nil fields are skipped.
type Observability struct {
	Registry *prometheus.Registry
	HTTP     *metrics.HTTPMetrics
	Admin    *metrics.EmoteMetrics
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app appService

	templates    *template.Template
	healthChecks []HealthCheck
	observ       Observability
	startTime    time.Time
}

func NewServer(cfg *config.Config, app appService, healthChecks []HealthCheck, observ Observability) (*Server, error) {
	templates, err := template.ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          app,
		templates:    templates,
		healthChecks: healthChecks,
		observ:       observ,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) renderTemplate(c echo.Context, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.ErrorContext(c.Request().Context(), "Template execution failed", "path", c.Request().URL.Path, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	if err := c.HTMLBlob(http.StatusOK, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}
