// Package retry waits for dependencies during startup. Request handlers do not retry.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Clock          clockwork.Clock
	OnRetry        func(attempt int, err error, backoff time.Duration)
}

// Startup is the policy used while connecting to Postgres, Redis and NATS at boot.
func Startup(onRetry func(attempt int, err error, backoff time.Duration)) Policy {
	return Policy{
		MaxAttempts:    6,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		OnRetry:        onRetry,
	}
}

// Do runs op until it succeeds, returns a Permanent error, the attempts run
// out, or ctx is done. The backoff doubles after each attempt up to MaxBackoff.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		return zero, errors.New("retry: MaxAttempts must be >= 1")
	}
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	backoff := p.InitialBackoff
	for attempt := 1; ; attempt++ {
		val, err := op(ctx)
		if err == nil {
			return val, nil
		}

		var perm *PermanentError
		if errors.As(err, &perm) {
			return zero, perm.Err
		}
		if attempt == p.MaxAttempts {
			return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		select {
		case <-clock.After(backoff):
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}

		backoff *= 2
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
}

// PermanentError stops Do immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as not worth retrying, e.g. a malformed connection URL.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}
