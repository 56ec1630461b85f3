package scenario

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/samber/lo"

	"github.com/vovakirdan/railsim/internal/core"
	"github.com/vovakirdan/railsim/internal/track"
	"github.com/vovakirdan/railsim/internal/train"
)

// lineSpacing is the gap in cells between a line and one placed next to it.
const lineSpacing = 2

// DefaultSpeed is used for trains that do not set one.
const DefaultSpeed = 1.0

// Build resolves the scenario at gridSize into a track graph and the initial
// trains.
func (s Scenario) Build(gridSize float64) (*track.Graph, []train.Train, error) {
	if gridSize <= 0 {
		return nil, nil, fmt.Errorf("scenario %s: grid size must be positive, got %v", s.ID, gridSize)
	}

	b := &builder{}
	for i, ts := range s.Tracks {
		if err := b.addTrack(ts); err != nil {
			return nil, nil, fmt.Errorf("scenario %s: track #%d: %w", s.ID, i+1, err)
		}
	}

	segments := lo.Map(b.segments, func(seg track.Segment, _ int) track.Segment {
		return seg.Scaled(gridSize)
	})
	g, err := track.NewGraph(segments, gridSize)
	if err != nil {
		return nil, nil, fmt.Errorf("scenario %s: %w", s.ID, err)
	}

	trains := make([]train.Train, 0, len(s.Trains))
	for i, spec := range s.Trains {
		t, err := buildTrain(spec, len(trains), g)
		if err != nil {
			return nil, nil, fmt.Errorf("scenario %s: train #%d: %w", s.ID, i+1, err)
		}
		if lo.ContainsBy(trains, func(o train.Train) bool { return o.ID == t.ID }) {
			return nil, nil, fmt.Errorf("scenario %s: train #%d: %w: %q", s.ID, i+1, ErrDuplicateTrain, t.ID)
		}
		trains = append(trains, t)
	}
	return g, trains, nil
}

// builder accumulates segments in cell units so the shorthand can refer to
// tracks declared before it.
type builder struct {
	segments []track.Segment
}

func (b *builder) find(id string) (track.Segment, bool) {
	return lo.Find(b.segments, func(s track.Segment) bool { return s.ID == id })
}

func (b *builder) nextID() track.ID {
	return fmt.Sprintf("T-%03d", len(b.segments)+1)
}

func (b *builder) addTrack(ts TrackSpec) error {
	var (
		seg track.Segment
		err error
	)
	id := lo.Ternary(ts.ID != "", ts.ID, b.nextID())
	switch {
	case ts.NextTo != "":
		seg, err = b.nextTo(ts)
	case len(ts.Between) > 0:
		seg, err = b.between(ts)
	default:
		seg, err = explicit(ts, id)
	}
	if err != nil {
		return err
	}

	seg.ID = id
	seg.Active = ts.Active == nil || *ts.Active
	b.segments = append(b.segments, seg)
	return nil
}

func explicit(ts TrackSpec, id track.ID) (track.Segment, error) {
	if ts.Start == nil || ts.End == nil {
		return track.Segment{}, fmt.Errorf("%w: %q needs start and end, next_to or between", track.ErrInvalidTrack, id)
	}
	kind, err := track.ParseKind(ts.Kind)
	if err != nil {
		return track.Segment{}, err
	}
	attach, err := parseAttach(ts.Attach, "")
	if err != nil {
		return track.Segment{}, err
	}
	return track.Segment{
		Kind:     kind,
		Start:    orb.Point{ts.Start.X, ts.Start.Y},
		End:      orb.Point{ts.End.X, ts.End.Y},
		Attach:   attach,
		Parallel: ts.Parallel,
	}, nil
}

// nextTo places a main line two cells above or below ref, moving further
// out while another horizontal track already occupies the row.
func (b *builder) nextTo(ts TrackSpec) (track.Segment, error) {
	ref, ok := b.find(ts.NextTo)
	if !ok {
		return track.Segment{}, fmt.Errorf("%w: next_to %q", ErrUnknownTrack, ts.NextTo)
	}

	var step float64
	switch ts.Side {
	case SideBelow, "":
		step = lineSpacing
	case SideAbove:
		step = -lineSpacing
	default:
		return track.Segment{}, fmt.Errorf("scenario: unknown side %q", ts.Side)
	}

	length := ts.Length
	if length == 0 {
		length = 1
	}
	if length < 0 {
		return track.Segment{}, fmt.Errorf("scenario: negative length %v", length)
	}

	y := ref.Start.Y() + step
	for b.rowTaken(y) {
		y += step
	}

	x := ref.Start.X()
	return track.Segment{
		Kind:  track.KindMain,
		Start: orb.Point{x, y},
		End:   orb.Point{x + MainlineCells*length, y},
	}, nil
}

func (b *builder) rowTaken(y float64) bool {
	return lo.SomeBy(b.segments, func(s track.Segment) bool {
		return core.NearlyEqual(s.Start.Y(), y) && core.NearlyEqual(s.End.Y(), y)
	})
}

// between builds a junction from a point on one track to the same relative
// point on another.
func (b *builder) between(ts TrackSpec) (track.Segment, error) {
	if len(ts.Between) != 2 {
		return track.Segment{}, fmt.Errorf("scenario: between needs exactly two tracks, got %d", len(ts.Between))
	}
	from, ok := b.find(ts.Between[0])
	if !ok {
		return track.Segment{}, fmt.Errorf("%w: between %q", ErrUnknownTrack, ts.Between[0])
	}
	to, ok := b.find(ts.Between[1])
	if !ok {
		return track.Segment{}, fmt.Errorf("%w: between %q", ErrUnknownTrack, ts.Between[1])
	}

	attach, err := parseAttach(ts.Attach, track.AttachMid)
	if err != nil {
		return track.Segment{}, err
	}

	return track.Segment{
		Kind:     track.KindJunction,
		Start:    attachPoint(from, attach),
		End:      attachPoint(to, attach),
		Connect:  [2]track.ID{from.ID, to.ID},
		Attach:   attach,
		Parallel: ts.Parallel,
	}, nil
}

func parseAttach(s string, def track.Attach) (track.Attach, error) {
	switch track.Attach(s) {
	case "":
		return def, nil
	case track.AttachStart, track.AttachMid, track.AttachEnd:
		return track.Attach(s), nil
	default:
		return "", fmt.Errorf("scenario: unknown attach point %q", s)
	}
}

func attachPoint(s track.Segment, a track.Attach) orb.Point {
	switch a {
	case track.AttachStart:
		return s.Start
	case track.AttachEnd:
		return s.End
	default:
		return s.PointAt(0.5)
	}
}

func buildTrain(spec TrainSpec, n int, g *track.Graph) (train.Train, error) {
	if _, ok := g.Segment(spec.Track); !ok {
		return train.Train{}, fmt.Errorf("%w: %q", ErrUnknownTrack, spec.Track)
	}
	if spec.Destination != "" {
		if _, ok := g.Segment(spec.Destination); !ok {
			return train.Train{}, fmt.Errorf("%w: destination %q", ErrUnknownTrack, spec.Destination)
		}
	}

	spawn, err := train.ParseSpawn(spec.Spawn)
	if err != nil {
		return train.Train{}, err
	}

	id := lo.Ternary(spec.ID != "", spec.ID, fmt.Sprintf("Train-%02d", n+1))
	name := lo.Ternary(spec.Name != "", spec.Name, fmt.Sprintf("Train %d", n+1))

	dir := spawn.DefaultDirection()
	if spec.Direction != nil {
		dir = train.Direction(*spec.Direction)
	}
	speed := DefaultSpeed
	if spec.Speed != nil {
		speed = *spec.Speed
	}

	t := train.New(id, name, spec.Track, spawn, dir, speed)
	t.Destination = spec.Destination
	if spec.Position != nil {
		t.Position = *spec.Position
		t = t.Sanitized()
	}
	return t, nil
}
