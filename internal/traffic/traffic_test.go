package traffic

import (
	"testing"
	"time"
)

func TestRequestCount_Empty(t *testing.T) {
	Reset()
	if n := RequestCount(1 * time.Minute); n != 0 {
		t.Errorf("RequestCount() = %d, want 0", n)
	}
}

func TestRecordSuccess_AndRequestCount(t *testing.T) {
	Reset()
	RecordSuccess()
	RecordSuccess()
	if n := RequestCount(1 * time.Minute); n != 2 {
		t.Errorf("RequestCount() = %d, want 2", n)
	}
}

// TestRecordDenied_AndCounts verifies that RecordDenied increments both
// DenialCount and RequestCount.
func TestRecordDenied_AndCounts(t *testing.T) {
	Reset()
	RecordDenied()
	RecordDenied()
	if n := DenialCount(1 * time.Minute); n != 2 {
		t.Errorf("DenialCount() = %d, want 2", n)
	}
	if n := RequestCount(1 * time.Minute); n != 2 {
		t.Errorf("RequestCount() = %d, want 2", n)
	}
}

func TestErrorRate_SuccessAndError(t *testing.T) {
	Reset()
	RecordSuccess()
	RecordSuccess()
	RecordError()
	errors, total := ErrorRate(1 * time.Minute)
	if errors != 1 || total != 3 {
		t.Errorf("ErrorRate() = (%d, %d), want (1, 3)", errors, total)
	}
}

func TestErrorRate_DeniedExcluded(t *testing.T) {
	Reset()
	RecordSuccess()
	RecordDenied()
	RecordDenied()
	errors, total := ErrorRate(1 * time.Minute)
	if errors != 0 || total != 1 {
		t.Errorf("ErrorRate() = (%d, %d), want (0, 1) - denied excluded from error rate", errors, total)
	}
}

// TestTracker_WindowExcludesOldEvents drives a fake clock to check that only
// events inside the window are counted and that retention prunes the log.
func TestTracker_WindowExcludesOldEvents(t *testing.T) {
	now := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	tr := NewTracker()
	tr.now = func() time.Time { return now }

	tr.RecordError()
	now = now.Add(2 * time.Minute)
	tr.RecordSuccess()

	if errors, total := tr.ErrorRate(time.Minute); errors != 0 || total != 1 {
		t.Errorf("ErrorRate(1m) = (%d, %d), want (0, 1)", errors, total)
	}
	if errors, total := tr.ErrorRate(5 * time.Minute); errors != 1 || total != 2 {
		t.Errorf("ErrorRate(5m) = (%d, %d), want (1, 2)", errors, total)
	}

	now = now.Add(Retention + time.Minute)
	tr.RecordDenied()
	if len(tr.events) != 1 {
		t.Errorf("events after retention = %d, want 1", len(tr.events))
	}
}

func TestReset(t *testing.T) {
	Reset()
	RecordSuccess()
	RecordError()
	RecordDenied()
	Reset()
	if n := RequestCount(1 * time.Minute); n != 0 {
		t.Errorf("RequestCount() = %d, want 0", n)
	}
	errors, total := ErrorRate(1 * time.Minute)
	if errors != 0 || total != 0 {
		t.Errorf("ErrorRate() = (%d, %d), want (0, 0)", errors, total)
	}
}
