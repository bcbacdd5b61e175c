package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/rubyemotes/internal/adapter/metrics"
)

const adminKeyHeader = "x-admin-key"

func (s *Server) registerRoutes() {
	s.echo.Use(requestIDMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	if s.observ.HTTP != nil {
		s.echo.Use(s.observ.HTTP.Middleware())
	}
	s.echo.Use(ErrorHandlingMiddleware())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         63072000, // 2 years; only sent over HTTPS
		HSTSPreloadEnabled: true,
		ContentSecurityPolicy: "default-src 'self'; " +
			"script-src 'self' 'unsafe-inline'; " +
			"style-src 'self' 'unsafe-inline'; " +
			"img-src 'self' https: data:; " +
			"frame-ancestors 'none'",
		ReferrerPolicy: "strict-origin-when-cross-origin",
	}))
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.config.AllowedOrigins(),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, adminKeyHeader},
	}))

	s.echo.GET("/", s.handleLanding)
	s.echo.GET("/admin", s.handleAdminPage)

	s.registerHealthRoutes()
	s.registerPublicAPIRoutes()
	s.registerAdminRoutes()

	if s.observ.Registry != nil {
		s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler(s.observ.Registry)))
	}
}

func (s *Server) registerPublicAPIRoutes() {
	s.echo.GET("/api/config", s.handleGetConfig)
	s.echo.GET("/api/emotes", s.handleListEmotes)
}

func (s *Server) registerAdminRoutes() {
	var mws []echo.MiddlewareFunc
	if s.config.AdminRateLimit > 0 {
		limit := rateLimitConfig{Rate: s.config.AdminRateLimit, Burst: s.config.AdminRateBurst}
		mws = append(mws, newRateLimiter(limit, s.rejectAdmin("rate_limited")))
	}
	mws = append(mws, requireAdminKey(s.config.AdminAccessKey, s.rejectAdmin("forbidden")))

	admin := s.echo.Group("/api/admin", mws...)
	admin.POST("/config", s.handleSaveConfig)
	admin.POST("/addemote", s.handleAddEmote, middleware.BodyLimit(s.config.MaxUploadSize))
	admin.DELETE("/emote/:id", s.handleDeleteEmote)
}

func (s *Server) rejectAdmin(reason string) func(echo.Context) {
	return func(c echo.Context) {
		s.observ.Admin.Rejected(reason)
		slog.WarnContext(c.Request().Context(), "Admin request rejected", "reason", reason, "remote_ip", c.RealIP(), "path", c.Request().URL.Path)
	}
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
