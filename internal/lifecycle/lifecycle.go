package lifecycle

import (
	"sync/atomic"
	"time"
)

var (
	shuttingDown atomic.Bool
	readyAt      atomic.Int64 // unix nanos; zero means ready immediately
)

// SetShuttingDown sets the shutdown flag. Call when SIGTERM/SIGINT received.
// Health handler returns 503 with status shutting-down while true.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// MarkStarted records process start; IsReady reports false until delay has elapsed.
func MarkStarted(start time.Time, delay time.Duration) {
	if delay <= 0 {
		readyAt.Store(0)
		return
	}
	readyAt.Store(start.Add(delay).UnixNano())
}

// IsReady reports whether the configured ready delay has elapsed at now.
func IsReady(now time.Time) bool {
	at := readyAt.Load()
	return at == 0 || now.UnixNano() >= at
}
