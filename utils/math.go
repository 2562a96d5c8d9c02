// Package utils contains small numeric and concurrency helpers shared by the vision and mapping packages.
package utils

import (
	"math"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// AbsInt returns the absolute value of an int.
func AbsInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// MaxInt returns the larger of two ints.
func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// MinInt returns the smaller of two ints.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ClampF64 restricts a float64 to the range [lo, hi].
func ClampF64(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(value, hi))
}

// Square returns n*n.
func Square(n float64) float64 {
	return n * n
}
