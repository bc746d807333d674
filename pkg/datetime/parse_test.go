package datetime

import (
	"testing"
	"time"
)

func TestMustParseTime(t *testing.T) {
	tests := []struct {
		name     string
		layout   string
		dateStr  string
		expected string
	}{
		{
			name:     "Valid date",
			layout:   DateLayout,
			dateStr:  "2025-01-15",
			expected: "2025-01-15",
		},
		{
			name:     "Leap day",
			layout:   DateLayout,
			dateStr:  "2028-02-29",
			expected: "2028-02-29",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MustParseTime(tt.layout, tt.dateStr)
			if result.Format(tt.layout) != tt.expected {
				t.Errorf("MustParseTime() = %s, expected %s", result.Format(tt.layout), tt.expected)
			}
		})
	}
}

func TestMustParseTimePanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected MustParseTime to panic with invalid date")
		}
	}()

	MustParseTime(DateLayout, "invalid-date")
}

func TestParseDateRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "2025-13-01", "2025/01/01", "01-02-2025", "2025-02-30"} {
		if _, err := ParseDate(input); err == nil {
			t.Errorf("ParseDate(%q) expected error", input)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		to       string
		expected int
	}{
		{"same day", "2025-03-10", "2025-03-10", 0},
		{"forward", "2025-03-10", "2025-03-17", 7},
		{"backward", "2025-03-17", "2025-03-10", -7},
		{"across year", "2024-12-25", "2025-01-04", 10},
		{"across leap day", "2028-02-28", "2028-03-01", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DaysBetween(MustParseDate(tt.from), MustParseDate(tt.to))
			if got != tt.expected {
				t.Errorf("DaysBetween(%s, %s) = %d, expected %d", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestDaysBetweenIgnoresClock(t *testing.T) {
	from := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	to := time.Date(2025, 3, 11, 0, 1, 0, 0, time.UTC)
	if got := DaysBetween(from, to); got != 1 {
		t.Errorf("expected 1 day, got %d", got)
	}
}

func TestMaxDate(t *testing.T) {
	a := MustParseDate("2025-01-01")
	b := MustParseDate("2025-01-02")
	if !MaxDate(a, b).Equal(b) || !MaxDate(b, a).Equal(b) {
		t.Errorf("MaxDate should return the later date")
	}
}
