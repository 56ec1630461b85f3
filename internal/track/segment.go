// Package track models the static rail network: straight segments laid out on
// a 2-D grid, and the spatial adjacency queries the movement engine relies on.
//
// Segment endpoints live in a continuous coordinate space whose unit is one
// grid cell multiplied by the grid size, so a segment from (0,19) to (40,19)
// in grid cells is stored as (0,475)-(1000,475) at grid size 25.
package track

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/vovakirdan/railsim/internal/core"
)

// ID identifies a segment for the lifetime of a simulation.
type ID = string

// Kind classifies a segment.
type Kind string

const (
	KindMain     Kind = "main"
	KindJunction Kind = "junction"
)

// ParseKind converts a string to a Kind. Empty means main.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindMain:
		return KindMain, nil
	case KindJunction:
		return KindJunction, nil
	default:
		return "", fmt.Errorf("track: unknown kind %q", s)
	}
}

// Attach records where a junction meets its parent segments.
type Attach string

const (
	AttachStart Attach = "start"
	AttachMid   Attach = "mid"
	AttachEnd   Attach = "end"
)

var (
	// ErrInvalidTrack is returned for segments that cannot be simulated,
	// such as zero-length segments or segments without an ID.
	ErrInvalidTrack = errors.New("track: invalid track")

	// ErrDuplicateTrack is returned when two segments share an ID.
	ErrDuplicateTrack = errors.New("track: duplicate track id")
)

// Segment is a straight piece of track between two points.
type Segment struct {
	ID     ID
	Kind   Kind
	Active bool
	Start  orb.Point
	End    orb.Point

	// Junction metadata. The engine never reads these; connectivity is purely
	// geometric.
	Connect  [2]ID
	Attach   Attach
	Parallel bool
}

// Validate checks the construction invariants of a segment.
func (s Segment) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidTrack)
	}
	if s.Start.Equal(s.End) {
		return fmt.Errorf("%w: %s has zero length", ErrInvalidTrack, s.ID)
	}
	return nil
}

// IsJunction reports whether the segment is a junction connector.
func (s Segment) IsJunction() bool {
	return s.Kind == KindJunction
}

// Length returns the euclidean length of the segment.
func (s Segment) Length() float64 {
	return planar.Distance(s.Start, s.End)
}

// Delta returns the end point minus the start point.
func (s Segment) Delta() (dx, dy float64) {
	return s.End.X() - s.Start.X(), s.End.Y() - s.Start.Y()
}

// PointAt returns the point at fraction f (0 = Start, 1 = End).
func (s Segment) PointAt(f float64) orb.Point {
	dx, dy := s.Delta()
	return orb.Point{s.Start.X() + dx*f, s.Start.Y() + dy*f}
}

// Endpoint returns End when atEnd is set, Start otherwise.
func (s Segment) Endpoint(atEnd bool) orb.Point {
	if atEnd {
		return s.End
	}
	return s.Start
}

// Vertical reports whether the segment runs along the Y axis.
func (s Segment) Vertical() bool {
	return core.NearlyEqual(s.Start.X(), s.End.X())
}

// Horizontal reports whether the segment runs along the X axis.
func (s Segment) Horizontal() bool {
	return core.NearlyEqual(s.Start.Y(), s.End.Y())
}

// Project returns the fraction of p along the segment's dominant axis.
// Vertical segments project on Y, everything else on X.
func (s Segment) Project(p orb.Point) float64 {
	dx, dy := s.Delta()
	if s.Vertical() {
		return (p.Y() - s.Start.Y()) / dy
	}
	return (p.X() - s.Start.X()) / dx
}

// ToGrid returns the endpoints in grid cells, rounded half up.
func (s Segment) ToGrid(gridSize float64) (start, end core.GridPoint) {
	return core.Snap(orb.Point{s.Start.X() / gridSize, s.Start.Y() / gridSize}),
		core.Snap(orb.Point{s.End.X() / gridSize, s.End.Y() / gridSize})
}

// Scaled returns a copy with both endpoints multiplied by factor.
func (s Segment) Scaled(factor float64) Segment {
	s.Start = orb.Point{s.Start.X() * factor, s.Start.Y() * factor}
	s.End = orb.Point{s.End.X() * factor, s.End.Y() * factor}
	return s
}

// String returns a short description of the segment.
func (s Segment) String() string {
	return fmt.Sprintf("%s[%s %v-%v]", s.ID, s.Kind, s.Start, s.End)
}
