package httpserver

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/rubyemotes/internal/platform/errors"
	"github.com/pscheid92/rubyemotes/internal/platform/idgen"
	"github.com/pscheid92/rubyemotes/internal/platform/logging"
)

const maxRequestIDLength = 64

// requestIDMiddleware reuses a sane X-Request-Id from the client or creates one,
// echoes it back and puts it on the request context for logging.
func requestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(echo.HeaderXRequestID)
		if id == "" || len(id) > maxRequestIDLength {
			id = idgen.ShortID()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, id)

		ctx := logging.WithRequestID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// requireAdminKey rejects requests whose x-admin-key header does not equal key.
// onReject, if set, runs for every rejected request.
func requireAdminKey(key string, onReject func(echo.Context)) echo.MiddlewareFunc {
	expected := []byte(key)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			provided := []byte(c.Request().Header.Get(adminKeyHeader))
			if len(expected) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
				if onReject != nil {
					onReject(c)
				}
				return apperrors.ForbiddenError("Invalid Access Key")
			}
			return next(c)
		}
	}
}

// ErrorHandlingMiddleware renders errors returned by handlers as
// {"error","type","context"} bodies. echo's own HTTP errors, such as the body
// limit's 413, are left to echo's default handler.
func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			appErr := apperrors.From(err)
			logError(c, appErr)

			if c.Response().Committed {
				return nil
			}
			if err := c.JSON(appErr.HTTPStatus(), appErr.Response()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
		"status", err.HTTPStatus(),
		"remote_ip", c.RealIP(),
	}
	if err.Cause != nil {
		attrs = append(attrs, "cause", err.Cause)
	}
	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	slog.Log(c.Request().Context(), err.LogLevel(), err.Summary(), attrs...)
}
