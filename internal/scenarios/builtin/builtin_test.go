package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/railsim/internal/engine"
	"github.com/vovakirdan/railsim/internal/registry"
	"github.com/vovakirdan/railsim/internal/train"
)

func TestBuiltinsRegistered(t *testing.T) {
	for _, id := range []string{"twin-mainline", "head-on", "siding"} {
		s, err := registry.Create(id)
		require.NoError(t, err, id)

		g, trains, err := s.Build(float64(s.GridSize))
		require.NoError(t, err, id)
		assert.Positive(t, g.Len(), id)
		assert.NotEmpty(t, trains, id)
	}
}

func TestTwinMainlineMatchesDefaultData(t *testing.T) {
	s, err := registry.Create("twin-mainline")
	require.NoError(t, err)

	g, trains, err := s.Build(25)
	require.NoError(t, err)
	assert.Equal(t, 5, g.Len())
	require.Len(t, trains, 2)
	assert.Equal(t, "The Rocket", trains[0].Name)
	assert.Equal(t, 1.0, trains[0].Position)
	assert.Equal(t, train.Backward, trains[0].Direction)
	assert.Equal(t, 0.25, trains[1].Speed)
}

func TestSidingShorthand(t *testing.T) {
	s, err := registry.Create("siding")
	require.NoError(t, err)

	g, trains, err := s.Build(1)
	require.NoError(t, err)

	siding, ok := g.Segment("T-002")
	require.True(t, ok)
	assert.Equal(t, 12.0, siding.Start.Y())
	assert.Equal(t, 10.0, siding.End.X())

	j, ok := g.Segment("T-003")
	require.True(t, ok)
	assert.True(t, j.IsJunction())
	assert.True(t, j.Vertical())

	assert.Equal(t, "Train-01", trains[0].ID)
	assert.Equal(t, "T-002", trains[0].Destination)
}

func TestTwinMainlineRunsWithoutFaults(t *testing.T) {
	s, err := registry.Create("twin-mainline")
	require.NoError(t, err)
	g, trains, err := s.Build(25)
	require.NoError(t, err)

	sim := engine.New(g, trains)
	for i := 0; i < 500; i++ {
		sim.Tick()
	}
	for _, tr := range sim.Snapshot().Trains {
		assert.GreaterOrEqual(t, tr.Position, 0.0)
		assert.LessOrEqual(t, tr.Position, 1.0)
		_, ok := g.Segment(tr.TrackID)
		assert.True(t, ok)
	}
}

func TestFactoriesReturnIndependentCopies(t *testing.T) {
	a, err := registry.Create("head-on")
	require.NoError(t, err)
	a.Tracks[0].ID = "changed"

	b, err := registry.Create("head-on")
	require.NoError(t, err)
	assert.Equal(t, "T-001", b.Tracks[0].ID)
}

func TestEveryFactoryBuilds(t *testing.T) {
	for _, info := range registry.List() {
		s, err := registry.Create(info.ID)
		require.NoError(t, err, info.ID)
		assert.Equal(t, info.ID, s.ID)
		_, _, err = s.Build(25)
		assert.NoError(t, err, info.ID)
	}
}
