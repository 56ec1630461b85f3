package engine

import (
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/vovakirdan/railsim/internal/core"
	"github.com/vovakirdan/railsim/internal/track"
	"github.com/vovakirdan/railsim/internal/train"
)

// line40 is a 40-pixel horizontal segment; at grid size 10 a speed of 1.25
// moves 0.3125 of it per step.
var line40 = track.Segment{ID: "L", Kind: track.KindMain, Active: true, Start: orb.Point{0, 0}, End: orb.Point{40, 0}}

func TestForecastFractionsReflectAtStart(t *testing.T) {
	tr := runner("a", "L", 1, train.Backward, 1.25)

	f := ForecastFractions(tr, line40, 10)

	expected := []float64{0.6875, 0.375, 0.0625, 0.25, 0.0625}
	for i, want := range expected {
		assert.InDelta(t, want, f[i], 1e-9, "step %d", i)
	}
}

func TestForecastFractionsReflectAtEndKeepsDirection(t *testing.T) {
	tr := runner("a", "L", 0.9, train.Forward, 1.25)

	f := ForecastFractions(tr, line40, 10)

	// The direction is never flipped, so the forecast bounces against the end.
	assert.InDelta(t, 0.7875, f[0], 1e-9)
	assert.InDelta(t, 0.9, f[1], 1e-9)
	assert.InDelta(t, 0.7875, f[2], 1e-9)
}

func TestForecastStoppedTrainStaysPut(t *testing.T) {
	tr := runner("a", "L", 0.5, train.Stopped, 1.25)

	f := Predict(tr, line40, 10)
	for _, p := range f {
		assert.Equal(t, core.P(20, 0), p)
	}
}

func TestPredictRoundsHalfUp(t *testing.T) {
	tr := runner("a", "L", 1, train.Backward, 1.25)

	f := Predict(tr, line40, 10)

	assert.Equal(t, core.P(28, 0), f[0]) // 27.5
	assert.Equal(t, core.P(15, 0), f[1])
	assert.Equal(t, core.P(3, 0), f[2]) // 2.5
	assert.Equal(t, core.P(10, 0), f[3])
}

func TestForecastFractionsStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	dirs := []train.Direction{train.Backward, train.Stopped, train.Forward}

	for i := 0; i < 2000; i++ {
		length := 1 + rng.Float64()*200
		seg := track.Segment{ID: "S", Active: true, Start: orb.Point{0, 0}, End: orb.Point{0, length}}
		tr := runner("a", "S", rng.Float64(), dirs[rng.Intn(3)], rng.Float64()*5)

		for j, frac := range ForecastFractions(tr, seg, 1+rng.Float64()*49) {
			if frac < 0 || frac > 1 {
				t.Fatalf("case %d step %d: fraction %v escaped [0,1] (train %v, length %v)", i, j, frac, tr, length)
			}
		}
	}
}

func TestForecastIntersects(t *testing.T) {
	var a, b Forecast
	for i := range a {
		a[i] = core.P(i, 0)
		b[i] = core.P(100+i, 0)
	}
	assert.False(t, a.Intersects(b))

	b[9] = core.P(3, 0)
	assert.True(t, a.Intersects(b))
	assert.True(t, b.Intersects(a))
}
