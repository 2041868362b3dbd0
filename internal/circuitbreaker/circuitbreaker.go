package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned when the breaker rejects a call without attempting it.
var ErrOpen = errors.New("circuit breaker open")

// Config holds circuit breaker parameters.
type Config struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures int
	// Timeout is how long the circuit stays open before allowing a probe.
	Timeout   time.Duration
	Component string
	// OnStateChange is optional, for metrics. States are "closed", "half-open" and "open".
	OnStateChange func(from, to string)
}

// Breaker protects one upstream provider. A nil *Breaker runs every call unguarded,
// so callers need no enabled/disabled branching.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New creates a Breaker with the given config.
func New(cfg Config) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	maxFailures := uint32(cfg.MaxFailures)
	onChange := cfg.OnStateChange
	return &Breaker{cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Component,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			var done callerDone
			return err == nil || errors.As(err, &done)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			if onChange != nil {
				onChange(from.String(), to.String())
			}
		},
	})}
}

// callerDone marks a failure caused by the caller's context ending, so it is
// not counted against the provider.
type callerDone struct{ err error }

func (e callerDone) Error() string { return e.err.Error() }

func (e callerDone) Unwrap() error { return e.err }

// Call runs fn when the circuit allows it. Cancellation of ctx, before or
// during the call, is reported without counting as a provider failure.
func (b *Breaker) Call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b == nil {
		return fn()
	}
	_, err := b.cb.Execute(func() (interface{}, error) {
		err := fn()
		if err != nil && ctx.Err() != nil {
			return nil, callerDone{err}
		}
		return nil, err
	})
	var done callerDone
	if errors.As(err, &done) {
		return done.err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %v", ErrOpen, b.cb.Name(), err)
	}
	return err
}

// State returns the current state name (for metrics and health).
func (b *Breaker) State() string {
	if b == nil {
		return gobreaker.StateClosed.String()
	}
	return b.cb.State().String()
}
