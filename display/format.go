// Package display renders the per-symbol summary table from a derived
// series frame.
package display

import (
	"fmt"
	"math"
)

// FormatMillions renders a raw count in millions, "$2.5M" for 2,500,000.
func FormatMillions(value float64) string {
	if math.IsNaN(value) {
		return "-"
	}

	return fmt.Sprintf("$%.1fM", value/1e6)
}

// FormatThousands renders a price quoted in thousands, "$12.3K" for 12.345.
func FormatThousands(value float64) string {
	if math.IsNaN(value) {
		return "-"
	}

	return fmt.Sprintf("$%.1fK", value)
}

// FormatPercent renders a fractional return as a fixed two decimal
// percentage.
func FormatPercent(value float64) string {
	if math.IsNaN(value) {
		return "-"
	}

	return fmt.Sprintf("%.2f%%", value*100)
}
