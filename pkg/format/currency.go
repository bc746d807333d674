// Package format renders report values for humans.
package format

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	digits := message.NewPrinter(language.English).Sprintf("%.2f", math.Abs(amount))
	if amount < 0 && digits != "0.00" {
		return "-$" + digits
	}
	return "$" + digits
}

// Percent renders a percentage value (already scaled by 100) with one decimal.
func Percent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}
