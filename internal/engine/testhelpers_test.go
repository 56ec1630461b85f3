package engine

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/railsim/internal/track"
	"github.com/vovakirdan/railsim/internal/train"
)

// cells builds an active segment from grid-cell coordinates scaled by grid.
func cells(id track.ID, kind track.Kind, grid, x1, y1, x2, y2 float64) track.Segment {
	return track.Segment{
		ID:     id,
		Kind:   kind,
		Active: true,
		Start:  orb.Point{x1 * grid, y1 * grid},
		End:    orb.Point{x2 * grid, y2 * grid},
	}
}

func mustGraph(t *testing.T, grid float64, segments ...track.Segment) *track.Graph {
	t.Helper()
	g, err := track.NewGraph(segments, grid)
	require.NoError(t, err)
	return g
}

// twinMainline is the default layout: two 40-cell mainlines on rows 19 and
// 21 bridged by three junctions.
func twinMainline(t *testing.T) *track.Graph {
	const grid = 25
	return mustGraph(t, grid,
		cells("T-001", track.KindMain, grid, 0, 19, 40, 19),
		cells("T-002", track.KindMain, grid, 0, 21, 40, 21),
		cells("T-003", track.KindJunction, grid, 5, 19, 5, 21),
		cells("T-004", track.KindJunction, grid, 38, 19, 38, 21),
		cells("T-005", track.KindJunction, grid, 20, 21, 20, 19),
	)
}

func runner(id train.ID, trackID track.ID, pos float64, dir train.Direction, speed float64) train.Train {
	return train.Train{ID: id, Name: id, TrackID: trackID, Position: pos, Direction: dir, Speed: speed}
}
