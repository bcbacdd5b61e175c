package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/rubyemotes/internal/platform/version"
)

const (
	startupCheckTimeout   = 2 * time.Second
	readinessCheckTimeout = 5 * time.Second
)

// HealthCheck is a named dependency check, e.g. a Postgres or bucket ping.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type checkResult struct {
	Status    string  `json:"status"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

type readinessResponse struct {
	Status      string                 `json:"status"`
	FailedCheck string                 `json:"failed_check,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Checks      map[string]checkResult `json:"checks"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleStartup(c echo.Context) error {
	return s.respondHealth(c, startupCheckTimeout)
}

func (s *Server) handleReadiness(c echo.Context) error {
	return s.respondHealth(c, readinessCheckTimeout)
}

func (s *Server) handleLiveness(c echo.Context) error {
	response := map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.startTime).Seconds(),
		"version": version.Get().Version,
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

func (s *Server) respondHealth(c echo.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
	defer cancel()

	resp := runHealthChecks(ctx, s.healthChecks)
	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}

	if err := c.JSON(status, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// runHealthChecks checks every dependency in parallel. The first failure in
// declaration order is reported as failed_check.
func runHealthChecks(ctx context.Context, checks []HealthCheck) readinessResponse {
	results := make([]checkResult, len(checks))

	var wg sync.WaitGroup
	for i, hc := range checks {
		wg.Go(func() {
			start := time.Now()
			err := hc.Check(ctx)
			results[i] = checkResult{
				Status:    "ok",
				LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
			}
			if err != nil {
				results[i].Status = "failed"
				results[i].Error = err.Error()
			}
		})
	}
	wg.Wait()

	resp := readinessResponse{Status: "ready", Checks: make(map[string]checkResult, len(checks))}
	for i, hc := range checks {
		resp.Checks[hc.Name] = results[i]
		if results[i].Error != "" && resp.FailedCheck == "" {
			resp.Status = "unhealthy"
			resp.FailedCheck = hc.Name
			resp.Error = results[i].Error
		}
	}
	return resp
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
