// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/cashflow-planner/pkg/constants"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// Ratio divides value by total, returning 0 when total is zero.
func Ratio(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return value / total
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	return Ratio(value, total) * constants.PercentageMultiplier
}

// Sum adds all values.
func Sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// MinOf returns the smallest value, or 0 for an empty slice.
func MinOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	lowest := values[0]
	for _, v := range values[1:] {
		if v < lowest {
			lowest = v
		}
	}
	return lowest
}

// InUnitInterval reports whether v lies in [0,1]. NaN is rejected.
func InUnitInterval(v float64) bool {
	return v >= 0 && v <= 1
}
