package track

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGrid = 25.0

// seg builds an active segment from grid-cell coordinates.
func seg(id ID, kind Kind, x1, y1, x2, y2 float64) Segment {
	return Segment{
		ID:     id,
		Kind:   kind,
		Active: true,
		Start:  orb.Point{x1 * testGrid, y1 * testGrid},
		End:    orb.Point{x2 * testGrid, y2 * testGrid},
	}
}

func twinMainline(t *testing.T) *Graph {
	t.Helper()
	g, err := NewGraph([]Segment{
		seg("T-001", KindMain, 0, 19, 40, 19),
		seg("T-002", KindMain, 0, 21, 40, 21),
		seg("T-003", KindJunction, 5, 19, 5, 21),
		seg("T-004", KindJunction, 38, 19, 38, 21),
		seg("T-005", KindJunction, 20, 21, 20, 19),
	}, testGrid)
	require.NoError(t, err)
	return g
}

func ids(segments []Segment) []ID {
	out := make([]ID, len(segments))
	for i, s := range segments {
		out[i] = s.ID
	}
	return out
}

func TestNewGraphRejectsZeroLength(t *testing.T) {
	_, err := NewGraph([]Segment{seg("T-001", KindMain, 3, 3, 3, 3)}, testGrid)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTrack))
}

func TestNewGraphRejectsDuplicates(t *testing.T) {
	_, err := NewGraph([]Segment{
		seg("T-001", KindMain, 0, 0, 10, 0),
		seg("T-001", KindMain, 0, 2, 10, 2),
	}, testGrid)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateTrack))
}

func TestNewGraphRejectsBadGridSize(t *testing.T) {
	_, err := NewGraph(nil, 0)
	assert.Error(t, err)
}

func TestSegmentGeometry(t *testing.T) {
	s := seg("T-001", KindMain, 0, 19, 40, 19)

	assert.InDelta(t, 1000.0, s.Length(), 1e-9)
	assert.True(t, s.Horizontal())
	assert.False(t, s.Vertical())
	assert.Equal(t, orb.Point{500, 475}, s.PointAt(0.5))
	assert.InDelta(t, 0.95, s.Project(orb.Point{950, 475}), 1e-9)

	v := seg("T-005", KindJunction, 20, 21, 20, 19)
	assert.True(t, v.Vertical())
	assert.InDelta(t, 1.0, v.Project(orb.Point{500, 475}), 1e-9)
	assert.Equal(t, v.Start, v.Endpoint(false))
	assert.Equal(t, v.End, v.Endpoint(true))

	start, end := v.ToGrid(testGrid)
	assert.Equal(t, "20,21", start.Key())
	assert.Equal(t, "20,19", end.Key())
}

func TestFindConnections(t *testing.T) {
	g := twinMainline(t)

	tests := []struct {
		name     string
		origin   ID
		point    orb.Point
		expected []ID
	}{
		{
			name:     "junction start on upper main",
			origin:   "T-001",
			point:    orb.Point{38 * testGrid, 19 * testGrid},
			expected: []ID{"T-004"},
		},
		{
			name:     "junction end reaches lower main",
			origin:   "T-004",
			point:    orb.Point{38 * testGrid, 21 * testGrid},
			expected: []ID{"T-002"},
		},
		{
			name:     "mid-line point with no junction",
			origin:   "T-001",
			point:    orb.Point{10 * testGrid, 19 * testGrid},
			expected: []ID{},
		},
		{
			name:     "origin excluded but other main matches at corner",
			origin:   "T-003",
			point:    orb.Point{5 * testGrid, 19 * testGrid},
			expected: []ID{"T-001"},
		},
		{
			name:     "point is snapped to the nearest cell",
			origin:   "T-001",
			point:    orb.Point{20*testGrid + 4, 19*testGrid - 3},
			expected: []ID{"T-005"},
		},
		{
			name:     "end of line",
			origin:   "T-001",
			point:    orb.Point{0, 19 * testGrid},
			expected: []ID{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ids(g.FindConnections(tc.origin, tc.point)))
		})
	}
}

func TestFindConnectionsSkipsInactiveAndDiagonal(t *testing.T) {
	inactive := seg("T-010", KindJunction, 10, 19, 10, 21)
	inactive.Active = false

	g, err := NewGraph([]Segment{
		seg("T-001", KindMain, 0, 19, 40, 19),
		inactive,
		seg("T-011", KindMain, 12, 19, 14, 21),
	}, testGrid)
	require.NoError(t, err)

	assert.Empty(t, g.FindConnections("T-001", orb.Point{10 * testGrid, 19 * testGrid}))
	assert.Empty(t, g.FindConnections("T-001", orb.Point{12 * testGrid, 19 * testGrid}))
}

func TestFindConnectionsDeclarationOrder(t *testing.T) {
	g, err := NewGraph([]Segment{
		seg("T-001", KindMain, 0, 0, 10, 0),
		seg("T-002", KindJunction, 5, 0, 5, 2),
		seg("T-003", KindJunction, 5, -2, 5, 0),
	}, testGrid)
	require.NoError(t, err)

	assert.Equal(t, []ID{"T-002", "T-003"}, ids(g.FindConnections("T-001", orb.Point{5 * testGrid, 0})))
}

func TestRescale(t *testing.T) {
	g := twinMainline(t)

	scaled, err := g.Rescale(10)
	require.NoError(t, err)

	s, ok := scaled.Segment("T-001")
	require.True(t, ok)
	assert.Equal(t, 10.0, scaled.GridSize())
	assert.InDelta(t, 400.0, s.Length(), 1e-9)
	assert.InDelta(t, 190.0, s.Start.Y(), 1e-9)

	// Connectivity is expressed in grid cells, so it survives rescaling.
	assert.Equal(t, []ID{"T-004"}, ids(scaled.FindConnections("T-001", orb.Point{380, 190})))

	// The original graph is untouched.
	orig, _ := g.Segment("T-001")
	assert.InDelta(t, 1000.0, orig.Length(), 1e-9)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindMain, k)

	k, err = ParseKind("junction")
	require.NoError(t, err)
	assert.Equal(t, KindJunction, k)

	_, err = ParseKind("siding")
	assert.Error(t, err)
}
