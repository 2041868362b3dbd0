package lifecycle

import (
	"testing"
	"time"
)

func TestIsShuttingDown_DefaultFalse(t *testing.T) {
	SetShuttingDown(false)
	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true, want false by default")
	}
}

func TestSetShuttingDown_True(t *testing.T) {
	SetShuttingDown(true)
	defer SetShuttingDown(false)
	if !IsShuttingDown() {
		t.Error("IsShuttingDown() = false after SetShuttingDown(true), want true")
	}
}

func TestIsReady(t *testing.T) {
	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	MarkStarted(start, 3*time.Second)
	defer MarkStarted(start, 0)

	if IsReady(start.Add(time.Second)) {
		t.Error("IsReady() before delay = true, want false")
	}
	if !IsReady(start.Add(3 * time.Second)) {
		t.Error("IsReady() at delay = false, want true")
	}
}

func TestIsReady_NoDelay(t *testing.T) {
	MarkStarted(time.Now(), 0)
	if !IsReady(time.Time{}) {
		t.Error("IsReady() with zero delay = false, want true")
	}
}
