package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream down")

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	var transitions []string
	b := New(Config{
		MaxFailures: 2,
		Timeout:     time.Hour,
		Component:   "test",
		OnStateChange: func(from, to string) {
			transitions = append(transitions, from+"->"+to)
		},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := b.Call(ctx, func() error { return errUpstream }); !errors.Is(err, errUpstream) {
			t.Fatalf("Call() #%d error = %v, want errUpstream", i, err)
		}
	}
	if got := b.State(); got != "open" {
		t.Fatalf("State() = %q, want open", got)
	}

	called := false
	err := b.Call(ctx, func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Call() on open breaker error = %v, want ErrOpen", err)
	}
	if called {
		t.Error("fn invoked while breaker open")
	}
	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Errorf("transitions = %v, want [closed->open]", transitions)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New(Config{MaxFailures: 2, Timeout: time.Hour})
	ctx := context.Background()

	_ = b.Call(ctx, func() error { return errUpstream })
	_ = b.Call(ctx, func() error { return nil })
	_ = b.Call(ctx, func() error { return errUpstream })

	if got := b.State(); got != "closed" {
		t.Errorf("State() = %q, want closed after non-consecutive failures", got)
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b := New(Config{MaxFailures: 1, Timeout: 20 * time.Millisecond})
	ctx := context.Background()

	_ = b.Call(ctx, func() error { return errUpstream })
	if got := b.State(); got != "open" {
		t.Fatalf("State() = %q, want open", got)
	}
	time.Sleep(40 * time.Millisecond)
	if err := b.Call(ctx, func() error { return nil }); err != nil {
		t.Fatalf("probe Call() error = %v", err)
	}
	if got := b.State(); got != "closed" {
		t.Errorf("State() after successful probe = %q, want closed", got)
	}
}

func TestBreaker_NilRunsUnguarded(t *testing.T) {
	var b *Breaker
	called := false
	if err := b.Call(context.Background(), func() error { called = true; return nil }); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if !called {
		t.Error("nil breaker did not invoke fn")
	}
	if got := b.State(); got != "closed" {
		t.Errorf("nil State() = %q, want closed", got)
	}
}

func TestBreaker_CancelledContext(t *testing.T) {
	b := New(Config{MaxFailures: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Call(ctx, func() error { t.Error("fn should not run"); return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Call() error = %v, want context.Canceled", err)
	}
	if got := b.State(); got != "closed" {
		t.Errorf("State() = %q, want closed", got)
	}
}

func TestBreaker_CancelledMidCallNotCounted(t *testing.T) {
	b := New(Config{MaxFailures: 1, Timeout: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	err := b.Call(ctx, func() error {
		cancel()
		return fmt.Errorf("google_directions request timeout: %w", ctx.Err())
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Call() error = %v, want context.Canceled", err)
	}
	if got := b.State(); got != "closed" {
		t.Fatalf("State() after caller cancel = %q, want closed", got)
	}

	deadline, stop := context.WithTimeout(context.Background(), time.Millisecond)
	defer stop()
	<-deadline.Done()
	if err := b.Call(context.Background(), func() error { return deadline.Err() }); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Call() error = %v, want DeadlineExceeded", err)
	}
	if got := b.State(); got != "open" {
		t.Errorf("State() after provider timeout = %q, want open", got)
	}
}
