// Package engine implements the movement and collision engine.
//
// Every simulation runs two cooperating tasks over a shared train store:
//
//  1. Controller - every train's short-horizon forecast is computed, the
//     forecasts are cross-referenced and trains that would share a cell are
//     halted behind a blocker (or released once their blocker has moved on).
//
//  2. Movement - every running train advances one discrete step along its
//     segment, switching segments when it lands on a grid-aligned point that
//     another segment passes through.
//
// Simulation is the context object both tasks operate on; the scheduler
// package decides when each task runs.
package engine

import (
	"math"

	"github.com/vovakirdan/railsim/internal/core"
	"github.com/vovakirdan/railsim/internal/track"
	"github.com/vovakirdan/railsim/internal/train"
)

const (
	// ForecastHorizon is the number of future steps projected per train.
	ForecastHorizon = 10

	// CollisionWindow is how many leading forecast points take part in the
	// collision check. Resume checks use the full horizon.
	CollisionWindow = 5
)

// Forecast is the sequence of predicted pixel positions of one train.
type Forecast [ForecastHorizon]core.GridPoint

// Intersects reports whether any point of f equals any point of other.
func (f Forecast) Intersects(other Forecast) bool {
	for _, a := range f {
		for _, b := range other {
			if a == b {
				return true
			}
		}
	}
	return false
}

// stepSize converts a speed in grid cells per tick into a segment fraction.
func stepSize(speed float64, seg track.Segment, gridSize float64) float64 {
	return speed / (seg.Length() / gridSize)
}

// ForecastFractions projects the train's segment fraction ForecastHorizon
// steps ahead. Overshooting an end reflects back into the segment; the
// direction itself is never flipped and no junctions are followed, so this is
// a cheap footprint proxy rather than a trajectory.
func ForecastFractions(t train.Train, seg track.Segment, gridSize float64) [ForecastHorizon]float64 {
	var out [ForecastHorizon]float64

	step := stepSize(t.Speed, seg, gridSize)
	dir := float64(t.Direction.Normalize())
	pos := core.ClampF(t.Position, 0, 1)

	for i := range out {
		pos = reflect(pos + step*dir)
		out[i] = pos
	}
	return out
}

// reflect folds v back into [0,1]: values above 1 become 2-v and negative
// values become -v, repeated for steps longer than a whole segment.
func reflect(v float64) float64 {
	v = math.Mod(v, 2)
	if v < 0 {
		v += 2
	}
	if v > 1 {
		v = 2 - v
	}
	return core.ClampF(v, 0, 1)
}

// Predict returns the train's forecast as rounded points on seg.
func Predict(t train.Train, seg track.Segment, gridSize float64) Forecast {
	var f Forecast
	for i, frac := range ForecastFractions(t, seg, gridSize) {
		f[i] = core.Snap(seg.PointAt(frac))
	}
	return f
}
