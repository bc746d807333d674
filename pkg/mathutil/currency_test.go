package mathutil

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"Round up at midpoint", 1.235, 1.24},
		{"Round down below midpoint", 1.234, 1.23},
		{"No rounding needed", 1.23, 1.23},
		{"Large number", 12345.678, 12345.68},
		{"Negative number round down", -1.234, -1.23},
		{"Zero", 0.0, 0.0},
		{"Very small positive", 0.001, 0.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Round(tt.input)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("Round(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRatioGuardsZeroDenominator(t *testing.T) {
	if got := Ratio(10, 0); got != 0 {
		t.Errorf("Ratio(10, 0) = %v, expected 0", got)
	}
	if got := Ratio(1, 4); got != 0.25 {
		t.Errorf("Ratio(1, 4) = %v, expected 0.25", got)
	}
	if got := CalculatePercentage(5, 0); got != 0 {
		t.Errorf("CalculatePercentage(5, 0) = %v, expected 0", got)
	}
	if got := CalculatePercentage(25, 200); got != 12.5 {
		t.Errorf("CalculatePercentage(25, 200) = %v, expected 12.5", got)
	}
}

func TestAggregates(t *testing.T) {
	values := []float64{500000, 100000, 250000}
	if got := Sum(values); got != 850000 {
		t.Errorf("Sum = %v", got)
	}
	if got := Mean(values); math.Abs(got-283333.333) > 0.001 {
		t.Errorf("Mean = %v", got)
	}
	if got := MinOf(values); got != 100000 {
		t.Errorf("MinOf = %v", got)
	}
	if Mean(nil) != 0 || MinOf(nil) != 0 || Sum(nil) != 0 {
		t.Errorf("empty aggregates should be zero")
	}
}

func TestInUnitInterval(t *testing.T) {
	tests := []struct {
		input    float64
		expected bool
	}{
		{0, true},
		{1, true},
		{0.5, true},
		{-0.0001, false},
		{1.0001, false},
		{math.NaN(), false},
		{math.Inf(1), false},
	}
	for _, tt := range tests {
		if got := InUnitInterval(tt.input); got != tt.expected {
			t.Errorf("InUnitInterval(%v) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}
