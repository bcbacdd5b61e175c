package httpserver

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// rateLimitConfig is a token bucket per client IP. Idle buckets are dropped
// after ExpiresIn.
type rateLimitConfig struct {
	Rate      float64
	Burst     int
	ExpiresIn time.Duration
}

const defaultRateLimitExpiry = 5 * time.Minute

// retryAfter is the time one token takes to refill, rounded up to whole seconds.
func (c rateLimitConfig) retryAfter() int {
	if c.Rate <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(1/c.Rate)))
}

type rateLimitedResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// newRateLimiter throttles by c.RealIP(). CORS preflights are never counted.
// onDeny, if set, runs for every rejected request.
func newRateLimiter(cfg rateLimitConfig, onDeny func(c echo.Context)) echo.MiddlewareFunc {
	if cfg.ExpiresIn <= 0 {
		cfg.ExpiresIn = defaultRateLimitExpiry
	}

	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.Rate),
		Burst:     cfg.Burst,
		ExpiresIn: cfg.ExpiresIn,
	})
	retryAfter := strconv.Itoa(cfg.retryAfter())

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Method == http.MethodOptions
		},
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			if onDeny != nil {
				onDeny(c)
			}
			c.Response().Header().Set("Retry-After", retryAfter)
			return c.JSON(http.StatusTooManyRequests, rateLimitedResponse{
				Error: "Too many requests",
				Type:  "rate_limited",
			})
		},
	})
}
