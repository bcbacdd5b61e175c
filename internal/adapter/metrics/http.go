package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks requests by route template, never by raw path, so emote
// ids do not become label values.
type HTTPMetrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
	ResponseSize    *prometheus.HistogramVec
	InFlight        prometheus.Gauge
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	labels := []string{"method", "route", "status_code"}
	m := &HTTPMetrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, labels),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, labels),
		ResponseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "Size of HTTP response bodies in bytes.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}, []string{"route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of HTTP requests currently being processed.",
		}),
	}

	reg.MustRegister(m.RequestDuration, m.RequestsTotal, m.ResponseSize, m.InFlight)
	return m
}

// Middleware records every request except /metrics and the health endpoints.
// Unrouted requests share the "unmatched" route label.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "/metrics" || strings.HasPrefix(route, "/health/") {
				return next(c)
			}
			if route == "" {
				route = "unmatched"
			}

			m.InFlight.Inc()
			defer m.InFlight.Dec()

			start := time.Now()
			err := next(c)

			status := strconv.Itoa(responseStatus(c, err))
			method := c.Request().Method
			m.RequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
			m.RequestsTotal.WithLabelValues(method, route, status).Inc()
			m.ResponseSize.WithLabelValues(route).Observe(float64(c.Response().Size))
			return err
		}
	}
}

// responseStatus predicts the status echo will write for err. Errors that
// are still uncommitted here are rendered later by echo's error handler.
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}
