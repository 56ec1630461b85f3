// Package scheduler drives a simulation in real time.
//
// The controller and movement tasks share one goroutine, so they never run
// concurrently. In loose mode each task owns a self-rescheduling timer and
// the simulation gate decides whether a movement invocation does anything;
// in lockstep mode a single timer runs both tasks back to back.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/railsim/internal/engine"
)

// Mode selects how the two tasks are timed.
type Mode string

const (
	ModeLoose    Mode = "loose"
	ModeLockstep Mode = "lockstep"
)

// ParseMode converts a config string into a Mode. Empty means loose.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeLoose:
		return ModeLoose, nil
	case ModeLockstep:
		return ModeLockstep, nil
	default:
		return "", fmt.Errorf("scheduler: unknown mode %q", s)
	}
}

// State is the lifecycle state of a scheduler.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateStopped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrAlreadyStarted is returned by Start when the loop is already running.
var ErrAlreadyStarted = errors.New("scheduler: already started")

// Default timings.
const (
	DefaultControllerPeriod = 500 * time.Millisecond
	DefaultMovementPeriod   = 500 * time.Millisecond
	DefaultMovementWarmup   = 100 * time.Millisecond
)

// Options configures a Scheduler.
type Options struct {
	Mode             Mode
	ControllerPeriod time.Duration
	MovementPeriod   time.Duration
	MovementWarmup   time.Duration

	// MaxMovementTicks stops the loop after that many executed movement
	// ticks. Zero runs until stopped.
	MaxMovementTicks uint64

	Logger *log.Logger
}

// DefaultOptions returns loose-mode options with the default timings.
func DefaultOptions() Options {
	return Options{
		Mode:             ModeLoose,
		ControllerPeriod: DefaultControllerPeriod,
		MovementPeriod:   DefaultMovementPeriod,
		MovementWarmup:   DefaultMovementWarmup,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Mode == "" {
		o.Mode = def.Mode
	}
	if o.ControllerPeriod <= 0 {
		o.ControllerPeriod = def.ControllerPeriod
	}
	if o.MovementPeriod <= 0 {
		o.MovementPeriod = def.MovementPeriod
	}
	if o.MovementWarmup < 0 {
		o.MovementWarmup = 0
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// Observer receives task reports. Both methods are called on the loop
// goroutine and must not call back into the scheduler's control methods.
type Observer interface {
	ControllerTicked(engine.ControllerReport)
	MovementTicked(engine.MovementReport)
}

type commandKind int

const (
	cmdPause commandKind = iota
	cmdResume
	cmdReset
)

type command struct {
	kind commandKind
	ack  chan struct{}
}

// Scheduler runs a simulation's controller and movement tasks on timers.
type Scheduler struct {
	opts      Options
	log       *log.Logger
	observers []Observer

	// mu guards sim and state.
	mu    sync.Mutex
	sim   *engine.Simulation
	state State

	control  chan command
	started  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
}

// New creates a scheduler for sim. The scheduler owns sim from now on; use
// Snapshot and SetGridSize instead of touching it directly.
func New(sim *engine.Simulation, opts Options, observers ...Observer) *Scheduler {
	opts = opts.withDefaults()
	return &Scheduler{
		opts:      opts,
		log:       opts.Logger,
		observers: observers,
		sim:       sim,
		state:     StateIdle,
		control:   make(chan command),
		done:      make(chan struct{}),
	}
}

// Start arms both tasks and runs the loop until Stop is called, ctx is
// cancelled or MaxMovementTicks is reached. It blocks.
//
// It returns ctx.Err() on cancellation and nil otherwise.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	select {
	case <-s.done:
		return nil
	default:
	}
	defer s.Stop()

	ctrl := time.NewTimer(0)
	move := time.NewTimer(s.opts.MovementWarmup)
	defer ctrl.Stop()
	defer move.Stop()

	disarm := func() {
		ctrl.Stop()
		move.Stop()
	}
	arm := func() {
		ctrl.Reset(0)
		if s.opts.Mode == ModeLoose {
			move.Reset(s.opts.MovementWarmup)
		}
	}

	if s.opts.Mode == ModeLockstep {
		move.Stop()
	}
	s.setState(StateRunning)
	s.log.Info("scheduler started", "mode", s.opts.Mode,
		"controller_period", s.opts.ControllerPeriod, "movement_period", s.opts.MovementPeriod)

	for {
		select {
		case <-ctrl.C:
			s.runController()
			if s.opts.Mode == ModeLockstep {
				if s.runMovement() {
					s.log.Info("movement tick limit reached", "ticks", s.opts.MaxMovementTicks)
					return nil
				}
			}
			ctrl.Reset(s.opts.ControllerPeriod)

		case <-move.C:
			if s.runMovement() {
				s.log.Info("movement tick limit reached", "ticks", s.opts.MaxMovementTicks)
				return nil
			}
			move.Reset(s.opts.MovementPeriod)

		case cmd := <-s.control:
			s.handle(cmd.kind, arm, disarm)
			close(cmd.ack)

		case <-ctx.Done():
			s.log.Info("scheduler cancelled")
			return ctx.Err()

		case <-s.done:
			s.log.Info("scheduler stopped")
			return nil
		}
	}
}

func (s *Scheduler) handle(kind commandKind, arm, disarm func()) {
	switch kind {
	case cmdPause:
		if s.State() != StateRunning {
			return
		}
		disarm()
		s.setState(StatePaused)
		s.log.Info("scheduler paused")

	case cmdResume:
		if s.State() == StateRunning {
			return
		}
		arm()
		s.setState(StateRunning)
		s.log.Info("scheduler resumed")

	case cmdReset:
		disarm()
		s.mu.Lock()
		s.sim.Reset()
		s.state = StateIdle
		s.mu.Unlock()
		s.log.Info("simulation reset")
	}
}

func (s *Scheduler) runController() {
	s.mu.Lock()
	rep := s.sim.ControllerTick()
	s.mu.Unlock()

	for _, ev := range rep.Events {
		switch ev.Kind {
		case engine.EventHalted:
			s.log.Info("train halted", "train", ev.Train, "blocked_by", ev.BlockedBy, "tick", rep.Tick)
		case engine.EventResumed:
			s.log.Info("train resumed", "train", ev.Train, "tick", rep.Tick)
		}
	}
	for _, o := range s.observers {
		o.ControllerTicked(rep)
	}
}

// runMovement runs one movement invocation and reports whether the tick
// limit has been reached.
func (s *Scheduler) runMovement() bool {
	s.mu.Lock()
	rep := s.sim.MovementTick()
	s.mu.Unlock()

	if rep.Skipped {
		s.log.Debug("movement skipped, no fresh controller decision")
	}
	for _, m := range rep.Moves {
		switch m.Kind {
		case engine.MoveSwitched:
			s.log.Debug("train switched track", "train", m.Train, "from", m.From, "to", m.To, "position", m.Position)
		case engine.MoveThrough:
			s.log.Debug("train passed junction", "train", m.Train, "track", m.To, "position", m.Position)
		case engine.MoveEndOfLine, engine.MoveOverrun:
			s.log.Info("train stopped", "train", m.Train, "track", m.To, "reason", m.Kind, "position", m.Position)
		}
	}
	for _, o := range s.observers {
		o.MovementTicked(rep)
	}

	return !rep.Skipped && s.opts.MaxMovementTicks > 0 && rep.Tick >= s.opts.MaxMovementTicks
}

// send hands a command to the loop and waits until it has been applied.
// It returns immediately once the loop has finished and blocks until Start
// runs if it has not started yet.
func (s *Scheduler) send(kind commandKind) {
	cmd := command{kind: kind, ack: make(chan struct{})}
	select {
	case s.control <- cmd:
		<-cmd.ack
	case <-s.done:
	}
}

// Pause stops both timers. Trains keep their state.
func (s *Scheduler) Pause() { s.send(cmdPause) }

// Resume re-arms both tasks: the controller fires at once and movement
// after the warm-up. It also restarts a scheduler that was reset.
func (s *Scheduler) Resume() { s.send(cmdResume) }

// Reset stops both tasks and restores the simulation's initial state. The
// scheduler stays idle until Resume.
func (s *Scheduler) Reset() { s.send(cmdReset) }

// Stop ends the loop. It is safe to call more than once and from any
// goroutine.
func (s *Scheduler) Stop() {
	s.doneOnce.Do(func() {
		close(s.done)
		s.setState(StateStopped)
	})
}

// Done is closed once the scheduler has stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Snapshot returns a consistent copy of the simulation state.
func (s *Scheduler) Snapshot() engine.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Snapshot()
}

// SetGridSize rescales the running simulation.
func (s *Scheduler) SetGridSize(size int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.SetGridSize(size)
}
