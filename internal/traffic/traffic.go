package traffic

import (
	"sync"
	"time"
)

// Retention bounds how long outcomes are kept. Health windows must not exceed it.
const Retention = 10 * time.Minute

var defaultTracker = NewTracker()

// RecordSuccess records a trip request that produced a result (including an empty one).
func RecordSuccess() {
	defaultTracker.RecordSuccess()
}

// RecordError records a trip request that failed upstream or timed out.
func RecordError() {
	defaultTracker.RecordError()
}

// RecordDenied records a rate-limit denial (429).
func RecordDenied() {
	defaultTracker.RecordDenied()
}

// RequestCount returns the number of outcomes (success + error + denied) within the window.
func RequestCount(window time.Duration) int {
	return defaultTracker.RequestCount(window)
}

// DenialCount returns the number of denials within the window.
func DenialCount(window time.Duration) int {
	return defaultTracker.DenialCount(window)
}

// ErrorRate returns (errorCount, totalCount) within the window. totalCount = successes + errors.
func ErrorRate(window time.Duration) (errors, total int) {
	return defaultTracker.ErrorRate(window)
}

// Reset clears all recorded outcomes. For tests only.
func Reset() {
	defaultTracker.Reset()
}

type outcome uint8

const (
	outcomeSuccess outcome = iota
	outcomeError
	outcomeDenied
)

type event struct {
	at   time.Time
	kind outcome
}

// Tracker keeps a time-ordered log of request outcomes. It is the single source
// for the overloaded (denials) and degraded (error rate) health states.
type Tracker struct {
	mu     sync.Mutex
	now    func() time.Time
	events []event
}

// NewTracker returns a Tracker using the wall clock.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

func (t *Tracker) RecordSuccess() { t.record(outcomeSuccess) }

func (t *Tracker) RecordError() { t.record(outcomeError) }

func (t *Tracker) RecordDenied() { t.record(outcomeDenied) }

func (t *Tracker) record(kind outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.events = append(t.events, event{at: now, kind: kind})
	t.pruneLocked(now)
}

// RequestCount returns the total number of outcomes within the window.
func (t *Tracker) RequestCount(window time.Duration) int {
	s, e, d := t.counts(window)
	return s + e + d
}

// DenialCount returns the number of rate-limit denials within the window.
func (t *Tracker) DenialCount(window time.Duration) int {
	_, _, d := t.counts(window)
	return d
}

// ErrorRate returns (errorCount, totalCount) within the window.
// Denials are excluded: a 429 says nothing about upstream health.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	s, e, _ := t.counts(window)
	return e, s + e
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}

func (t *Tracker) counts(window time.Duration) (success, errors, denied int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	for i := len(t.events) - 1; i >= 0 && !t.events[i].at.Before(cutoff); i-- {
		switch t.events[i].kind {
		case outcomeSuccess:
			success++
		case outcomeError:
			errors++
		case outcomeDenied:
			denied++
		}
	}
	return success, errors, denied
}

// pruneLocked drops events older than Retention. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-Retention)
	i := 0
	for ; i < len(t.events) && t.events[i].at.Before(cutoff); i++ {
	}
	if i > 0 {
		t.events = append(t.events[:0], t.events[i:]...)
	}
}
