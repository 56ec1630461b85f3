package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/railsim/internal/track"
	"github.com/vovakirdan/railsim/internal/train"
)

func TestMovementWaitsForController(t *testing.T) {
	sim := New(twinMainline(t), []train.Train{runner("a", "T-001", 1, train.Backward, 0.5)})

	m := sim.MovementTick()
	assert.True(t, m.Skipped)
	assert.Equal(t, 1.0, sim.Snapshot().Trains[0].Position)

	sim.ControllerTick()
	assert.True(t, sim.GateOpen())

	m = sim.MovementTick()
	assert.False(t, m.Skipped)
	require.Len(t, m.Moves, 1)
	assert.Equal(t, MoveAdvanced, m.Moves[0].Kind)
	assert.InDelta(t, 0.9875, m.Moves[0].Position, 1e-9)
	assert.False(t, sim.GateOpen())

	m = sim.MovementTick()
	assert.True(t, m.Skipped)

	snap := sim.Snapshot()
	assert.Equal(t, uint64(1), snap.ControllerTicks)
	assert.Equal(t, uint64(1), snap.MovementTicks)
	assert.Equal(t, uint64(2), snap.SkippedTicks)
}

func TestTickRunsControllerFirst(t *testing.T) {
	sim := New(crossing(t), []train.Train{
		runner("A", "H", 0.45, train.Forward, 1),
		runner("B", "V", 0.45, train.Forward, 1),
	})

	c, m := sim.Tick()

	assert.Equal(t, []HaltEvent{{Kind: EventHalted, Train: "B", BlockedBy: "A"}}, c.Events)
	assert.Equal(t, 1, c.Halted)
	require.Len(t, m.Moves, 2)
	assert.Equal(t, MoveAdvanced, m.Moves[0].Kind)
	assert.Equal(t, MoveHeld, m.Moves[1].Kind)
	assert.InDelta(t, 0.45, m.Moves[1].Position, 1e-12)
}

// nearMiss has a horizontal line and an off-grid vertical line so the
// trains share a pixel without the segments connecting.
func nearMiss(t *testing.T) *track.Graph {
	return mustGraph(t, 10,
		cells("H", track.KindMain, 1, 0, 190, 400, 190),
		cells("V", track.KindMain, 1, 203, 100, 203, 300),
	)
}

func TestHaltedTrainResumesOnceBlockerPasses(t *testing.T) {
	// Both move one pixel per step; A reaches the shared pixel (203,190) first.
	sim := New(nearMiss(t), []train.Train{
		runner("A", "H", 0.495, train.Forward, 0.1),
		runner("B", "V", 0.435, train.Forward, 0.1),
	})

	c, _ := sim.Tick()
	require.Equal(t, []HaltEvent{{Kind: EventHalted, Train: "B", BlockedBy: "A"}}, c.Events)

	resumedAt := 0
	for tick := 2; tick <= 10 && resumedAt == 0; tick++ {
		c, m := sim.Tick()
		if len(c.Events) > 0 {
			require.Equal(t, []HaltEvent{{Kind: EventResumed, Train: "B", BlockedBy: "A"}}, c.Events)
			resumedAt = tick
			assert.Equal(t, MoveAdvanced, m.Moves[1].Kind)
			continue
		}
		assert.Equal(t, MoveHeld, m.Moves[1].Kind, "tick %d", tick)
	}
	assert.Equal(t, 6, resumedAt)
}

func TestSimulationFollowsJunctions(t *testing.T) {
	sim := New(twinMainline(t), []train.Train{runner("a", "T-001", 0.9625, train.Backward, 0.5)})

	_, m := sim.Tick()
	require.Len(t, m.Moves, 1)
	assert.Equal(t, MoveSwitched, m.Moves[0].Kind)
	assert.Equal(t, "T-001", m.Moves[0].From)
	assert.Equal(t, "T-004", m.Moves[0].To)

	var last Move
	for i := 0; i < 4; i++ {
		_, m = sim.Tick()
		last = m.Moves[0]
	}
	assert.Equal(t, MoveSwitched, last.Kind)
	assert.Equal(t, "T-002", last.To)

	tr := sim.Snapshot().Trains[0]
	assert.Equal(t, train.Backward, tr.Direction)
	assert.InDelta(t, 0.95, tr.Position, 1e-9)
}

func TestMovementReportsReachableForLead(t *testing.T) {
	const grid = 25
	g := mustGraph(t, grid,
		cells("T-001", track.KindMain, grid, 0, 0, 10, 0),
		cells("J-001", track.KindJunction, grid, 10, 0, 10, 2),
	)
	sim := New(g, []train.Train{runner("a", "T-001", 0.99, train.Forward, 0.3)})

	_, m := sim.Tick()

	assert.Equal(t, MoveOverrun, m.Moves[0].Kind)
	require.Len(t, m.Reachable, 1)
	assert.Equal(t, "J-001", m.Reachable[0].ID)
	assert.Len(t, sim.Snapshot().Reachable, 1)
}

func TestResetRestoresInitialTrains(t *testing.T) {
	initial := []train.Train{runner("a", "T-001", 0.9625, train.Backward, 0.5)}
	sim := New(twinMainline(t), initial)
	for i := 0; i < 3; i++ {
		sim.Tick()
	}
	require.NotEqual(t, "T-001", sim.Snapshot().Trains[0].TrackID)

	sim.Reset()

	snap := sim.Snapshot()
	assert.Equal(t, "T-001", snap.Trains[0].TrackID)
	assert.Equal(t, 0.9625, snap.Trains[0].Position)
	assert.False(t, snap.GateOpen)
	assert.Zero(t, snap.ControllerTicks)
	assert.Zero(t, snap.MovementTicks)
	assert.Empty(t, snap.Forecasts)
	assert.Equal(t, 0.9625, initial[0].Position)
}

func TestSetGridSizeClampsAndKeepsFractions(t *testing.T) {
	sim := New(twinMainline(t), []train.Train{runner("a", "T-001", 0.9625, train.Backward, 0.5)})

	size, err := sim.SetGridSize(100)
	require.NoError(t, err)
	assert.Equal(t, DefaultGridMax, size)
	assert.Equal(t, DefaultGridMax, sim.GridSize())

	seg, ok := sim.Graph().Segment("T-001")
	require.True(t, ok)
	assert.InDelta(t, 40*DefaultGridMax, seg.End.X(), 1e-9)
	assert.Equal(t, 0.9625, sim.Snapshot().Trains[0].Position)

	_, m := sim.Tick()
	assert.Equal(t, MoveSwitched, m.Moves[0].Kind)
	assert.Equal(t, "T-004", m.Moves[0].To)

	size, err = sim.SetGridSize(3)
	require.NoError(t, err)
	assert.Equal(t, DefaultGridMin, size)
}

func TestSetGridBounds(t *testing.T) {
	sim := New(twinMainline(t), nil)

	require.Error(t, sim.SetGridBounds(0, 10))
	require.Error(t, sim.SetGridBounds(20, 10))
	require.NoError(t, sim.SetGridBounds(20, 30))

	size, err := sim.SetGridSize(10)
	require.NoError(t, err)
	assert.Equal(t, 20, size)
}

func TestEmptySimulationTicks(t *testing.T) {
	sim := New(twinMainline(t), nil)

	c, m := sim.Tick()

	assert.Empty(t, c.Events)
	assert.Empty(t, m.Moves)
	assert.Nil(t, m.Reachable)
}

func TestTrainOnMissingTrackIsFrozen(t *testing.T) {
	sim := New(twinMainline(t), []train.Train{runner("ghost", "T-404", 0.5, train.Forward, 1)})

	c, m := sim.Tick()

	assert.NotContains(t, c.Forecasts, "ghost")
	assert.Equal(t, MoveFrozen, m.Moves[0].Kind)
}

func TestRandomRunsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g := twinMainline(t)
	ids := []track.ID{"T-001", "T-002", "T-003", "T-004", "T-005"}
	dirs := []train.Direction{train.Backward, train.Stopped, train.Forward}
	speeds := []float64{0, 0.25, 0.5, 1}

	for run := 0; run < 20; run++ {
		var trains []train.Train
		for i := 0; i < 4; i++ {
			trains = append(trains, runner(
				train.ID(string(rune('a'+i))),
				ids[rng.Intn(len(ids))],
				rng.Float64(),
				dirs[rng.Intn(len(dirs))],
				speeds[rng.Intn(len(speeds))],
			))
		}
		sim := New(g, trains)

		for tick := 0; tick < 200; tick++ {
			sim.Tick()
			snap := sim.Snapshot()
			order := make(map[train.ID]int, len(snap.Trains))
			for i, tr := range snap.Trains {
				order[tr.ID] = i
			}
			for i, tr := range snap.Trains {
				require.GreaterOrEqual(t, tr.Position, 0.0)
				require.LessOrEqual(t, tr.Position, 1.0)
				require.Contains(t, dirs, tr.Direction)
				_, ok := g.Segment(tr.TrackID)
				require.True(t, ok)
				if !tr.Halted {
					continue
				}
				require.NotNil(t, tr.Halt)
				// A blocker always comes earlier in enumeration order, so
				// two trains can never hold each other.
				require.Less(t, order[tr.Halt.BlockedBy], i, "run %d tick %d", run, tick)
			}
			if len(snap.Trains) > 0 {
				require.False(t, snap.Trains[0].Halted)
			}
		}
	}
}

func TestRunningTrainNeverCarriesHaltRecord(t *testing.T) {
	seeded := runner("a", "T-001", 0.3, train.Forward, 0.5)
	seeded.Halt = &train.HaltInfo{Reason: train.ReasonCollision, BlockedBy: "zz"}
	sim := New(twinMainline(t), []train.Train{seeded})

	for i := 0; i < 3; i++ {
		sim.Tick()
	}

	a, ok := sim.Store().Get("a")
	require.True(t, ok)
	assert.False(t, a.Halted)
	assert.Nil(t, a.Halt)
}
