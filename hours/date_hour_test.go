package hours

import (
	"testing"
	"time"
)

func TestDateHourString(t *testing.T) {
	dh := DateHour{Date: "2025-01-01", Hour: 5}
	expected := "2025-01-01 05"
	if s := dh.String(); s != expected {
		t.Errorf("String() expected %q, got %q", expected, s)
	}
}

func TestDateHourIsoString(t *testing.T) {
	dh := DateHour{Date: "2025-01-01", Hour: 15}
	expected := "2025-01-01T15:00:00Z"
	if s := dh.IsoString(); s != expected {
		t.Errorf("IsoString() expected %q, got %q", expected, s)
	}
}

func TestDateHourAdd(t *testing.T) {
	tests := []struct {
		name     string
		input    DateHour
		addHours int
		expected DateHour
	}{
		{
			name:     "add within same day",
			input:    DateHour{Date: "2025-01-01", Hour: 10},
			addHours: 2,
			expected: DateHour{Date: "2025-01-01", Hour: 12},
		},
		{
			name:     "add crossing midnight",
			input:    DateHour{Date: "2025-01-01", Hour: 23},
			addHours: 2,
			expected: DateHour{Date: "2025-01-02", Hour: 1},
		},
		{
			name:     "add negative hours (subtract)",
			input:    DateHour{Date: "2025-01-01", Hour: 1},
			addHours: -2,
			expected: DateHour{Date: "2024-12-31", Hour: 23},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.input.Add(tt.addHours)
			if result != tt.expected {
				t.Errorf("Add(%d) expected %+v, got %+v", tt.addHours, tt.expected, result)
			}
		})
	}
}

func TestDateHourCompare(t *testing.T) {
	tests := []struct {
		name     string
		a, b     DateHour
		expected int
	}{
		{
			name:     "equal",
			a:        DateHour{Date: "2025-01-01", Hour: 10},
			b:        DateHour{Date: "2025-01-01", Hour: 10},
			expected: 0,
		},
		{
			name:     "earlier hour same day",
			a:        DateHour{Date: "2025-01-01", Hour: 9},
			b:        DateHour{Date: "2025-01-01", Hour: 10},
			expected: -1,
		},
		{
			name:     "later date earlier hour",
			a:        DateHour{Date: "2025-01-02", Hour: 0},
			b:        DateHour{Date: "2025-01-01", Hour: 23},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if c := tt.a.Compare(tt.b); c != tt.expected {
				t.Errorf("Compare() expected %d, got %d", tt.expected, c)
			}
		})
	}
}

func TestDateHourContains(t *testing.T) {
	dh := DateHour{Date: "2025-01-01", Hour: 10}

	inside := time.Date(2025, time.January, 1, 10, 30, 0, 0, time.UTC)
	if !dh.Contains(inside) {
		t.Errorf("expected %v to be inside slot %s", inside, dh)
	}

	start := time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC)
	if !dh.Contains(start) {
		t.Errorf("expected slot start to be inside slot %s", dh)
	}

	next := time.Date(2025, time.January, 1, 11, 0, 0, 0, time.UTC)
	if dh.Contains(next) {
		t.Errorf("expected start of next hour to be outside slot %s", dh)
	}
}

func TestDateHourIsZero(t *testing.T) {
	// A zero value DateHour should be recognized as zero.
	var dh DateHour
	if !dh.IsZero() {
		t.Errorf("expected a zero value DateHour to be zero")
	}
	// A non-zero DateHour (even with Hour 0) should not be considered zero if Date is non-empty.
	dh = DateHour{Date: "2025-01-01", Hour: 0}
	if dh.IsZero() {
		t.Errorf("expected a non-zero DateHour (non-empty Date) not to be zero")
	}
}

func TestFromTime(t *testing.T) {
	// Test a valid time.
	tm := time.Date(2025, time.January, 1, 15, 30, 0, 0, time.UTC)
	dh := FromTime(tm)
	expected := DateHour{Date: "2025-01-01", Hour: 15}
	if dh != expected {
		t.Errorf("FromTime() expected %+v, got %+v", expected, dh)
	}

	// Test with a zero time.
	var zero time.Time
	dhZero := FromTime(zero)
	if !dhZero.IsZero() {
		t.Errorf("FromTime() with zero time expected a zero DateHour")
	}
}

func TestFromNow(t *testing.T) {
	// Since FromNow() uses the current time, we capture the expected values.
	now := time.Now().UTC()
	dh := FromNow()
	expectedDate := now.Format("2006-01-02")
	expectedHour := now.Hour()

	if dh.Date != expectedDate {
		t.Errorf("FromNow() expected date %q, got %q", expectedDate, dh.Date)
	}
	if int(dh.Hour) != expectedHour {
		t.Errorf("FromNow() expected hour %d, got %d", expectedHour, dh.Hour)
	}
}
