// Package core provides fundamental geometry types and numeric helpers for the
// simulation. It contains no engine state so the helpers stay pure and testable.
package core

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Tolerance is the comparison epsilon used for grid alignment and endpoint
// matching, expressed in grid units (or pixels when comparing raw points).
const Tolerance = 1e-3

// GridPoint is an integer point, used for forecast cells and snapped positions.
type GridPoint struct {
	X, Y int
}

// P is a convenience constructor for GridPoint.
func P(x, y int) GridPoint {
	return GridPoint{X: x, Y: y}
}

// Key returns the "x,y" form used to bucket forecast cells.
func (p GridPoint) Key() string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// String returns a string representation of the point.
func (p GridPoint) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Snap rounds a continuous point to the nearest integer point.
func Snap(p orb.Point) GridPoint {
	return GridPoint{X: int(RoundHalfUp(p.X())), Y: int(RoundHalfUp(p.Y()))}
}

// RoundHalfUp rounds to the nearest integer, with halves going towards +Inf.
// math.Round would send -0.5 to -1; forecasts need -0.5 to go to 0.
func RoundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// NearlyEqual reports whether a and b differ by less than Tolerance.
func NearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < Tolerance
}

// NearlyEqualPoints reports whether both coordinates are within Tolerance.
func NearlyEqualPoints(a, b orb.Point) bool {
	return NearlyEqual(a.X(), b.X()) && NearlyEqual(a.Y(), b.Y())
}

// IsIntegral reports whether v lies within Tolerance of a whole number.
func IsIntegral(v float64) bool {
	return NearlyEqual(v, RoundHalfUp(v))
}

// Clamp restricts a value to be within [min, max].
func Clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// ClampF restricts a float64 value to be within [min, max].
// NaN collapses to min.
func ClampF(val, min, max float64) float64 {
	if math.IsNaN(val) || val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Sign returns -1, 0 or 1 according to the sign of v.
func Sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
