package redis

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/pscheid92/rubyemotes/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
)

// MetricsHook records every Redis command in RedisMetrics.
type MetricsHook struct {
	m *metrics.RedisMetrics
}

var _ goredis.Hook = (*MetricsHook)(nil)

func NewMetricsHook(m *metrics.RedisMetrics) *MetricsHook {
	return &MetricsHook{m: m}
}

func (h *MetricsHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.m.ConnectionErrors.Inc()
		}
		return conn, err
	}
}

func (h *MetricsHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(cmd.Name(), start, err)
		return err
	}
}

func (h *MetricsHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.observe("pipeline", start, err)
		return err
	}
}

func (h *MetricsHook) observe(operation string, start time.Time, err error) {
	h.m.OpsTotal.WithLabelValues(operation, commandStatus(err)).Inc()
	h.m.OpDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// commandStatus counts a cache miss as success and keeps caller
// cancellations apart from server faults.
func commandStatus(err error) string {
	switch {
	case err == nil, errors.Is(err, goredis.Nil):
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, circuitbreaker.ErrOpen):
		return "rejected"
	default:
		return "error"
	}
}
