package track

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/samber/lo"

	"github.com/vovakirdan/railsim/internal/core"
)

// Graph is the append-only set of segments of one simulation, together with
// the grid size their coordinates were scaled by.
type Graph struct {
	segments []Segment
	index    map[ID]int
	gridSize float64
}

// NewGraph validates the segments and builds a graph. Declaration order is
// kept; it decides which connection a train takes when several match.
func NewGraph(segments []Segment, gridSize float64) (*Graph, error) {
	if gridSize <= 0 {
		return nil, fmt.Errorf("track: grid size must be positive, got %v", gridSize)
	}

	g := &Graph{
		segments: make([]Segment, 0, len(segments)),
		index:    make(map[ID]int, len(segments)),
		gridSize: gridSize,
	}
	for _, s := range segments {
		if err := g.add(s); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Graph) add(s Segment) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, exists := g.index[s.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTrack, s.ID)
	}
	g.index[s.ID] = len(g.segments)
	g.segments = append(g.segments, s)
	return nil
}

// GridSize returns the scale factor between grid cells and coordinates.
func (g *Graph) GridSize() float64 {
	return g.gridSize
}

// Len returns the number of segments.
func (g *Graph) Len() int {
	return len(g.segments)
}

// Segment looks up a segment by ID.
func (g *Graph) Segment(id ID) (Segment, bool) {
	i, ok := g.index[id]
	if !ok {
		return Segment{}, false
	}
	return g.segments[i], true
}

// Segments returns a copy of all segments in declaration order.
func (g *Graph) Segments() []Segment {
	out := make([]Segment, len(g.segments))
	copy(out, g.segments)
	return out
}

// Rescale returns a new graph whose coordinates are expressed at gridSize.
func (g *Graph) Rescale(gridSize float64) (*Graph, error) {
	if gridSize <= 0 {
		return nil, fmt.Errorf("track: grid size must be positive, got %v", gridSize)
	}
	factor := gridSize / g.gridSize
	scaled := lo.Map(g.segments, func(s Segment, _ int) Segment {
		return s.Scaled(factor)
	})
	return NewGraph(scaled, gridSize)
}

// FindConnections returns every active segment other than origin that runs
// axis-aligned through p. The point is snapped to the nearest grid cell; a
// candidate matches when its constant axis equals the cell and its extent on
// the other axis covers it, both within core.Tolerance grid units.
func (g *Graph) FindConnections(origin ID, p orb.Point) []Segment {
	cellX := core.RoundHalfUp(p.X() / g.gridSize)
	cellY := core.RoundHalfUp(p.Y() / g.gridSize)

	return lo.Filter(g.segments, func(s Segment, _ int) bool {
		if !s.Active || s.ID == origin {
			return false
		}
		return g.passesThrough(s, cellX, cellY)
	})
}

func (g *Graph) passesThrough(s Segment, cellX, cellY float64) bool {
	startX, startY := s.Start.X()/g.gridSize, s.Start.Y()/g.gridSize
	endX, endY := s.End.X()/g.gridSize, s.End.Y()/g.gridSize

	if core.NearlyEqual(startX, endX) && core.NearlyEqual(cellX, startX) {
		return within(cellY, startY, endY)
	}
	if core.NearlyEqual(startY, endY) && core.NearlyEqual(cellY, startY) {
		return within(cellX, startX, endX)
	}
	return false
}

func within(v, a, b float64) bool {
	low, high := a, b
	if low > high {
		low, high = high, low
	}
	return v >= low-core.Tolerance && v <= high+core.Tolerance
}
