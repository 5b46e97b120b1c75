// Package scoring provides signal normalization and composite match scoring.
package scoring

import "math"

// neutralScore is returned when a signal carries no information.
const neutralScore = 0.5

// Normalize linearly rescales value from [min,max] into [0,1].
// Values outside the range clamp; an empty range yields the neutral 0.5.
func Normalize(value, min, max float64) float64 {
	if max == min {
		return neutralScore
	}
	if value <= min {
		return 0
	}
	if value >= max {
		return 1
	}
	return Clamp01((value - min) / (max - min))
}

// Clamp01 bounds v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
