package storage

import (
	"sync"

	"github.com/vovakirdan/railsim/internal/engine"
	"github.com/vovakirdan/railsim/internal/scheduler"
	"github.com/vovakirdan/railsim/internal/train"
)

// Recorder journals the transitions of a running simulation. It implements
// scheduler.Observer; the first write error is kept and later reports are
// dropped.
type Recorder struct {
	store *Store
	runID string

	mu  sync.Mutex
	err error
}

// Ensure Recorder implements scheduler.Observer
var _ scheduler.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder for an already begun run.
func NewRecorder(store *Store, runID string) *Recorder {
	return &Recorder{store: store, runID: runID}
}

// RunID returns the ID of the run being recorded.
func (r *Recorder) RunID() string {
	return r.runID
}

// ControllerTicked records halt and resume transitions.
func (r *Recorder) ControllerTicked(rep engine.ControllerReport) {
	events := make([]Event, 0, len(rep.Events))
	for _, ev := range rep.Events {
		events = append(events, Event{
			Tick:      int64(rep.Tick),
			Kind:      string(ev.Kind),
			Train:     ev.Train,
			BlockedBy: ev.BlockedBy,
		})
	}
	r.write(events)
}

// MovementTicked records track switches, junction crossings and stops.
func (r *Recorder) MovementTicked(rep engine.MovementReport) {
	var events []Event
	for _, m := range rep.Moves {
		switch m.Kind {
		case engine.MoveSwitched, engine.MoveThrough, engine.MoveEndOfLine, engine.MoveOverrun:
			events = append(events, Event{
				Tick:     int64(rep.Tick),
				Kind:     m.Kind.String(),
				Train:    m.Train,
				Track:    m.To,
				Position: m.Position,
			})
		}
	}
	r.write(events)
}

func (r *Recorder) write(events []Event) {
	if len(events) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	r.err = r.store.RecordEvents(r.runID, events)
}

// Err returns the first error hit while recording.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Finish closes the run with the counters and trains of snap.
func (r *Recorder) Finish(status string, snap engine.Snapshot) error {
	if status == StatusCompleted && r.Err() != nil {
		status = StatusFailed
	}
	trains := make([]TrainState, len(snap.Trains))
	for i, t := range snap.Trains {
		trains[i] = stateOf(t)
	}
	return r.store.FinishRun(r.runID, RunSummary{
		Status:          status,
		ControllerTicks: int64(snap.ControllerTicks),
		MovementTicks:   int64(snap.MovementTicks),
		SkippedTicks:    int64(snap.SkippedTicks),
	}, trains)
}

func stateOf(t train.Train) TrainState {
	s := TrainState{
		TrainID:   t.ID,
		Name:      t.Name,
		TrackID:   t.TrackID,
		Position:  t.Position,
		Direction: int(t.Direction),
		Speed:     t.Speed,
		Halted:    t.Halted,
	}
	if t.Halt != nil {
		s.BlockedBy = t.Halt.BlockedBy
	}
	return s
}
