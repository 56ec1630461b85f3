package engine

import (
	"fmt"

	"github.com/vovakirdan/railsim/internal/core"
	"github.com/vovakirdan/railsim/internal/track"
	"github.com/vovakirdan/railsim/internal/train"
)

// Default grid size bounds in pixels per cell.
const (
	DefaultGridMin = 10
	DefaultGridMax = 50
)

// Move records what a movement tick did to one train.
type Move struct {
	Train    train.ID
	Kind     MoveKind
	From     track.ID
	To       track.ID
	Position float64
}

// ControllerReport is the outcome of one controller tick.
type ControllerReport struct {
	Tick      uint64
	Forecasts map[train.ID]Forecast
	Events    []HaltEvent
	Halted    int
}

// MovementReport is the outcome of one movement tick. Skipped is set when the
// gate was closed and nothing moved.
type MovementReport struct {
	Tick      uint64
	Skipped   bool
	Moves     []Move
	Reachable []track.Segment
}

// Snapshot is a deep copy of the observable simulation state.
type Snapshot struct {
	Trains          []train.Train
	Forecasts       map[train.ID]Forecast
	Reachable       []track.Segment
	GridSize        int
	GateOpen        bool
	ControllerTicks uint64
	MovementTicks   uint64
	SkippedTicks    uint64
}

// Simulation is the context shared by the controller and movement tasks. It
// owns the graph, the train store, the latest forecasts and the gate that
// orders movement after a fresh halt decision. It is not safe for concurrent
// use; the scheduler serialises access.
type Simulation struct {
	graph   *track.Graph
	initial []train.Train
	store   *train.Store

	forecasts map[train.ID]Forecast
	reachable []track.Segment
	gate      bool

	controllerTicks uint64
	movementTicks   uint64
	skippedTicks    uint64

	gridMin, gridMax int
}

// New creates a simulation over g with the given initial trains. The trains
// are copied; Reset restores them.
func New(g *track.Graph, trains []train.Train) *Simulation {
	initial := make([]train.Train, len(trains))
	for i, t := range trains {
		initial[i] = t.Clone()
	}
	return &Simulation{
		graph:     g,
		initial:   initial,
		store:     train.NewStore(initial),
		forecasts: make(map[train.ID]Forecast),
		gridMin:   DefaultGridMin,
		gridMax:   DefaultGridMax,
	}
}

// SetGridBounds sets the range SetGridSize clamps to.
func (s *Simulation) SetGridBounds(min, max int) error {
	if min <= 0 || max < min {
		return fmt.Errorf("engine: invalid grid bounds [%d, %d]", min, max)
	}
	s.gridMin, s.gridMax = min, max
	return nil
}

// GridSize returns the current grid size.
func (s *Simulation) GridSize() int {
	return int(s.graph.GridSize())
}

// SetGridSize rescales the graph to size, clamped to the grid bounds, and
// returns the size applied. Train fractions are unaffected by rescaling.
func (s *Simulation) SetGridSize(size int) (int, error) {
	size = core.Clamp(size, s.gridMin, s.gridMax)
	g, err := s.graph.Rescale(float64(size))
	if err != nil {
		return s.GridSize(), fmt.Errorf("engine: rescaling graph: %w", err)
	}
	s.graph = g
	return size, nil
}

// Graph returns the track graph.
func (s *Simulation) Graph() *track.Graph {
	return s.graph
}

// Store returns the train store.
func (s *Simulation) Store() *train.Store {
	return s.store
}

// GateOpen reports whether a controller decision is waiting to be consumed.
func (s *Simulation) GateOpen() bool {
	return s.gate
}

// ControllerTick forecasts every train, resolves conflicts and opens the gate.
// Trains on missing segments get no forecast.
func (s *Simulation) ControllerTick() ControllerReport {
	gridSize := s.graph.GridSize()
	forecasts := make(map[train.ID]Forecast, s.store.Len())
	for i := 0; i < s.store.Len(); i++ {
		t := s.store.At(i)
		seg, ok := s.graph.Segment(t.TrackID)
		if !ok {
			continue
		}
		forecasts[t.ID] = Predict(t, seg, gridSize)
	}

	events := Resolve(s.store, forecasts)
	s.forecasts = forecasts
	s.gate = true
	s.controllerTicks++

	return ControllerReport{
		Tick:      s.controllerTicks,
		Forecasts: copyForecasts(forecasts),
		Events:    events,
		Halted:    s.store.HaltedCount(),
	}
}

// MovementTick advances every train by one step if the gate is open and
// closes it again. With the gate closed it does nothing and reports Skipped.
func (s *Simulation) MovementTick() MovementReport {
	if !s.gate {
		s.skippedTicks++
		return MovementReport{Tick: s.movementTicks, Skipped: true}
	}

	moves := make([]Move, 0, s.store.Len())
	for i := 0; i < s.store.Len(); i++ {
		before := s.store.At(i)
		after, kind := Advance(before, s.graph)
		s.store.Set(i, after)
		moves = append(moves, Move{
			Train:    after.ID,
			Kind:     kind,
			From:     before.TrackID,
			To:       after.TrackID,
			Position: after.Position,
		})
	}

	s.reachable = nil
	if lead, ok := s.store.Lead(); ok {
		s.reachable = Reachable(lead, s.graph)
	}

	s.gate = false
	s.movementTicks++

	return MovementReport{
		Tick:      s.movementTicks,
		Moves:     moves,
		Reachable: copySegments(s.reachable),
	}
}

// Tick runs the controller and then the movement task, in strict order.
func (s *Simulation) Tick() (ControllerReport, MovementReport) {
	c := s.ControllerTick()
	m := s.MovementTick()
	return c, m
}

// Reset discards all train state and restores the initial trains.
func (s *Simulation) Reset() {
	s.store = train.NewStore(s.initial)
	s.forecasts = make(map[train.ID]Forecast)
	s.reachable = nil
	s.gate = false
	s.controllerTicks = 0
	s.movementTicks = 0
	s.skippedTicks = 0
}

// Snapshot returns a deep copy of the observable state.
func (s *Simulation) Snapshot() Snapshot {
	return Snapshot{
		Trains:          s.store.All(),
		Forecasts:       copyForecasts(s.forecasts),
		Reachable:       copySegments(s.reachable),
		GridSize:        s.GridSize(),
		GateOpen:        s.gate,
		ControllerTicks: s.controllerTicks,
		MovementTicks:   s.movementTicks,
		SkippedTicks:    s.skippedTicks,
	}
}

func copyForecasts(in map[train.ID]Forecast) map[train.ID]Forecast {
	out := make(map[train.ID]Forecast, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copySegments(in []track.Segment) []track.Segment {
	if in == nil {
		return nil
	}
	out := make([]track.Segment, len(in))
	copy(out, in)
	return out
}
