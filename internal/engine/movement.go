package engine

import (
	"github.com/vovakirdan/railsim/internal/core"
	"github.com/vovakirdan/railsim/internal/track"
	"github.com/vovakirdan/railsim/internal/train"
)

// MoveKind describes what a movement step did to a train.
type MoveKind int

const (
	MoveHeld      MoveKind = iota // halted by the controller, untouched
	MoveFrozen                    // segment missing, untouched
	MoveParked                    // no direction or no speed, untouched
	MoveAdvanced                  // moved along its segment
	MoveThrough                   // crossed a junction without taking it
	MoveSwitched                  // moved onto another segment
	MoveEndOfLine                 // landed on a dead end and stopped
	MoveOverrun                   // overshot its segment and stopped
)

// String returns a human-readable move kind.
func (k MoveKind) String() string {
	switch k {
	case MoveHeld:
		return "held"
	case MoveFrozen:
		return "frozen"
	case MoveParked:
		return "parked"
	case MoveAdvanced:
		return "advanced"
	case MoveThrough:
		return "through"
	case MoveSwitched:
		return "switched"
	case MoveEndOfLine:
		return "end-of-line"
	case MoveOverrun:
		return "overrun"
	default:
		return "unknown"
	}
}

// Stopped reports whether the move brought the train to a hard stop.
func (k MoveKind) Stopped() bool {
	return k == MoveEndOfLine || k == MoveOverrun
}

// Advance moves t one step along g.
//
// Rules, in order:
//  1. Halted, parked, or on a missing segment: returned unchanged.
//  2. The next fraction is position + speed/(length/gridSize) * direction.
//  3. Overshooting either end clamps to it and stops the train. There is no
//     connectivity lookup here; transitions only happen on exact landings.
//  4. Landing on a grid-aligned point queries the graph. With no connection a
//     bound is a dead end; otherwise the first connection is the target. A
//     junction entered in the train's own sense of travel is crossed
//     ("through"), anything else is switched onto, with the new direction
//     pointing away from the end it was entered at.
//  5. Anywhere else the train just advances.
func Advance(t train.Train, g *track.Graph) (train.Train, MoveKind) {
	if t.Halted {
		return t, MoveHeld
	}
	seg, ok := g.Segment(t.TrackID)
	if !ok {
		return t, MoveFrozen
	}

	t = t.Sanitized()
	if !t.Moving() {
		return t, MoveParked
	}

	gridSize := g.GridSize()
	next := t.Position + stepSize(t.Speed, seg, gridSize)*float64(t.Direction)

	if next > 1 || next < 0 {
		t.Position = core.ClampF(next, 0, 1)
		return stop(t), MoveOverrun
	}

	if !core.IsIntegral(next * seg.Length() / gridSize) {
		t.Position = next
		return t, MoveAdvanced
	}

	point := seg.PointAt(next)
	connections := g.FindConnections(seg.ID, point)
	if len(connections) == 0 {
		t.Position = next
		if next >= 1 || next <= 0 {
			return stop(t), MoveEndOfLine
		}
		return t, MoveAdvanced
	}

	target := connections[0]
	fromStart := core.NearlyEqualPoints(point, target.Start)

	if target.IsJunction() && passesThrough(t.Direction, fromStart) {
		t.Position = next
		return t, MoveThrough
	}

	t.TrackID = target.ID
	t.Position = core.ClampF(target.Project(point), 0, 1)
	if fromStart {
		t.Direction = train.Forward
	} else {
		t.Direction = train.Backward
	}
	return t, MoveSwitched
}

// passesThrough reports whether entering a junction at this end keeps the
// train's rotational sense, in which case it stays on its own segment.
func passesThrough(dir train.Direction, fromStart bool) bool {
	return (dir == train.Backward && !fromStart) || (dir == train.Forward && fromStart)
}

func stop(t train.Train) train.Train {
	t.Speed = 0
	t.Direction = train.Stopped
	return t
}

// Reachable returns the segments reachable from the endpoint the lead train
// is stopped at, or nil when it is not stopped at an endpoint.
func Reachable(lead train.Train, g *track.Graph) []track.Segment {
	seg, ok := g.Segment(lead.TrackID)
	if !ok || lead.Direction != train.Stopped {
		return nil
	}
	if lead.Position < 1 && lead.Position > 0 {
		return nil
	}
	return g.FindConnections(seg.ID, seg.Endpoint(lead.Position >= 1))
}
