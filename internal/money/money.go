package money

import "math"

// Round2 rounds a monetary amount to 2 decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// HasMaxTwoDecimals reports whether the amount carries at most 2 fractional
// digits, with a small epsilon to absorb float noise from JSON decoding.
func HasMaxTwoDecimals(v float64) bool {
	scaled := v * 100
	return math.Abs(scaled-math.Round(scaled)) < 1e-9
}
