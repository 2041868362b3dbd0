package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLocation_EmptyAndWhitespace(t *testing.T) {
	v := New(1, 100)
	for _, input := range []string{"", "   ", "\t"} {
		_, err := v.Location(input)
		if !errors.Is(err, ErrLocationEmpty) {
			t.Errorf("Location(%q) error = %v, want ErrLocationEmpty", input, err)
		}
	}
}

func TestLocation_Length(t *testing.T) {
	v := New(2, 100)
	if _, err := v.Location("x"); !errors.Is(err, ErrLocationTooShort) {
		t.Errorf("error = %v, want ErrLocationTooShort", err)
	}
	if _, err := v.Location(strings.Repeat("a", 101)); !errors.Is(err, ErrLocationTooLong) {
		t.Errorf("error = %v, want ErrLocationTooLong", err)
	}
	if got, err := v.Location("ab"); err != nil || got != "ab" {
		t.Errorf("min boundary = (%q, %v)", got, err)
	}
	if _, err := v.Location(strings.Repeat("ö", 100)); err != nil {
		t.Errorf("max boundary in runes: err = %v", err)
	}
}

func TestLocation_InvalidChars(t *testing.T) {
	v := New(1, 100)
	tests := []struct {
		name  string
		input string
	}{
		{"backslash", "sea\\ttle"},
		{"question", "sea?ttle"},
		{"control", "sea\x00ttle"},
		{"percent", "sea%ttle"},
		{"angle brackets", "<script>"},
		{"semicolon", "a;b"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Location(tc.input)
			if !errors.Is(err, ErrLocationInvalidChars) {
				t.Errorf("error = %v, want ErrLocationInvalidChars", err)
			}
		})
	}
}

func TestLocation_Valid(t *testing.T) {
	v := New(2, 200)
	tests := []struct {
		name     string
		input    string
		wantNorm string
	}{
		{"city", "Stockholm", "Stockholm"},
		{"address", "Drottninggatan 53, 111 21 Stockholm", "Drottninggatan 53, 111 21 Stockholm"},
		{"coordinates", "59.3293,18.0686", "59.3293,18.0686"},
		{"negative coordinates", "-33.8688,151.2093", "-33.8688,151.2093"},
		{"apostrophe", "St. John's", "St. John's"},
		{"trimmed", "  Gävle  ", "Gävle"},
		{"unit", "Flat 2/14 (rear)", "Flat 2/14 (rear)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := v.Location(tc.input)
			if err != nil {
				t.Fatalf("Location() err = %v", err)
			}
			if got != tc.wantNorm {
				t.Errorf("normalized = %q, want %q", got, tc.wantNorm)
			}
		})
	}
}

func TestLocation_NoBounds(t *testing.T) {
	v := New(0, 0)
	if _, err := v.Location("x"); err != nil {
		t.Errorf("err = %v, want nil with bounds disabled", err)
	}
}

func TestStartTime(t *testing.T) {
	stockholm := time.FixedZone("CET", 3600)
	now := time.Date(2025, 1, 6, 7, 30, 0, 0, time.UTC)
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"empty means now", "", now},
		{"datetime-local", "2025-01-06T08:00", time.Date(2025, 1, 6, 8, 0, 0, 0, stockholm)},
		{"with seconds", "2025-01-06T08:00:30", time.Date(2025, 1, 6, 8, 0, 30, 0, stockholm)},
		{"space separated", "2025-01-06 08:00", time.Date(2025, 1, 6, 8, 0, 0, 0, stockholm)},
		{"rfc3339 keeps offset", "2025-01-06T08:00:00Z", time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StartTime(tt.input, stockholm, now)
			if err != nil {
				t.Fatalf("StartTime(%q) err = %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("StartTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStartTime_ZonelessUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	got, err := StartTime("2025-01-06T23:30", loc, time.Now())
	if err != nil {
		t.Fatalf("StartTime err = %v", err)
	}
	if got.Location() != loc {
		t.Errorf("location = %v, want %v", got.Location(), loc)
	}
}

func TestStartTime_Invalid(t *testing.T) {
	for _, input := range []string{"tomorrow", "06/01/2025 08:00", "2025-13-01T08:00"} {
		if _, err := StartTime(input, time.UTC, time.Now()); !errors.Is(err, ErrStartTimeInvalid) {
			t.Errorf("StartTime(%q) err = %v, want ErrStartTimeInvalid", input, err)
		}
	}
}
