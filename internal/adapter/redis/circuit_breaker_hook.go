package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/pscheid92/rubyemotes/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
)

var errBreakerOpen = fmt.Errorf("redis circuit breaker open: %w", circuitbreaker.ErrOpen)

// BreakerSettings tune when the Redis breaker trips and how long it stays open.
type BreakerSettings struct {
	FailureRatio   float64
	MinCommands    uint
	Window         time.Duration
	OpenFor        time.Duration
	TrialSuccesses uint
}

// DefaultBreakerSettings trips at 60% failures over at least 5 commands in
// 10s and lets a trial command through after 30s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		FailureRatio:   0.6,
		MinCommands:    5,
		Window:         10 * time.Second,
		OpenFor:        30 * time.Second,
		TrialSuccesses: 1,
	}
}

// CircuitBreakerHook fails Redis commands fast while Redis is unhealthy.
// The config cache treats any Redis error as a miss, so an open breaker
// sends reads straight to Postgres without waiting on dial timeouts.
type CircuitBreakerHook struct {
	cb circuitbreaker.CircuitBreaker[any]
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

// NewCircuitBreakerHook builds a breaker from s. m may be nil.
func NewCircuitBreakerHook(m *metrics.RedisMetrics, s BreakerSettings) *CircuitBreakerHook {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(s.FailureRatio, s.MinCommands, s.Window).
		WithDelay(s.OpenFor).
		WithSuccessThreshold(s.TrialSuccesses).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Redis circuit breaker changed state", "from", e.OldState.String(), "to", e.NewState.String())
			if m != nil {
				m.CircuitStateChanges.WithLabelValues(e.NewState.String()).Inc()
				m.CircuitState.Set(stateGauge(e.NewState))
			}
		}).
		Build()

	return &CircuitBreakerHook{cb: cb}
}

// stateGauge encodes a breaker state for the circuit_breaker_state gauge.
func stateGauge(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

// countsAgainstRedis reports whether err says something about Redis health.
// Misses and caller cancellations do not.
func countsAgainstRedis(err error) bool {
	return err != nil &&
		!errors.Is(err, goredis.Nil) &&
		!errors.Is(err, context.Canceled)
}

func (h *CircuitBreakerHook) guard(call func() error) error {
	if !h.cb.TryAcquirePermit() {
		return errBreakerOpen
	}
	err := call()
	if countsAgainstRedis(err) {
		h.cb.RecordError(err)
	} else {
		h.cb.RecordSuccess()
	}
	return err
}

func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		var conn net.Conn
		err := h.guard(func() (err error) {
			conn, err = next(ctx, network, addr)
			return err
		})
		return conn, err
	}
}

func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		err := h.guard(func() error { return next(ctx, cmd) })
		if errors.Is(err, errBreakerOpen) {
			cmd.SetErr(err)
		}
		return err
	}
}

func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		return h.guard(func() error { return next(ctx, cmds) })
	}
}

// State returns the current breaker state.
func (h *CircuitBreakerHook) State() circuitbreaker.State {
	return h.cb.State()
}
