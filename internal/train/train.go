// Package train holds the mutable train entities of a simulation and the
// ordered store they live in.
package train

import (
	"fmt"

	"github.com/vovakirdan/railsim/internal/core"
	"github.com/vovakirdan/railsim/internal/track"
)

// ID identifies a train.
type ID = string

// Direction is the sense of travel along the current segment.
type Direction int

const (
	Backward Direction = -1 // towards the segment start
	Stopped  Direction = 0
	Forward  Direction = 1 // towards the segment end
)

// String returns a human-readable direction.
func (d Direction) String() string {
	switch d {
	case Backward:
		return "backward"
	case Stopped:
		return "stopped"
	case Forward:
		return "forward"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Normalize maps any integer onto -1, 0 or 1 by sign.
func (d Direction) Normalize() Direction {
	return Direction(core.Sign(float64(d)))
}

// Spawn selects which endpoint of its first segment a train starts at.
type Spawn string

const (
	SpawnStart Spawn = "start"
	SpawnEnd   Spawn = "end"
)

// ParseSpawn converts a scenario value into a Spawn. Empty means start.
func ParseSpawn(s string) (Spawn, error) {
	switch Spawn(s) {
	case "", SpawnStart:
		return SpawnStart, nil
	case SpawnEnd:
		return SpawnEnd, nil
	default:
		return "", fmt.Errorf("train: unknown spawn point %q", s)
	}
}

// Position returns the segment fraction for the spawn endpoint.
func (s Spawn) Position() float64 {
	if s == SpawnEnd {
		return 1
	}
	return 0
}

// DefaultDirection returns the direction a train spawned here heads in.
func (s Spawn) DefaultDirection() Direction {
	if s == SpawnEnd {
		return Backward
	}
	return Forward
}

// HaltReason explains why a train is halted.
type HaltReason string

const (
	ReasonCollision HaltReason = "collision"
)

// HaltInfo is present while a train is held for a predicted collision.
type HaltInfo struct {
	Reason    HaltReason
	BlockedBy ID
}

// Train is a single train entity.
type Train struct {
	ID          ID
	Name        string
	TrackID     track.ID
	Position    float64 // fraction of the way from segment start to end
	Direction   Direction
	Speed       float64 // grid cells per movement tick
	Halted      bool
	Halt        *HaltInfo
	Spawn       Spawn
	Destination track.ID // informational only
}

// New creates a train placed at the spawn endpoint of trackID.
func New(id ID, name string, trackID track.ID, spawn Spawn, dir Direction, speed float64) Train {
	t := Train{
		ID:        id,
		Name:      name,
		TrackID:   trackID,
		Position:  spawn.Position(),
		Direction: dir,
		Speed:     speed,
		Spawn:     spawn,
	}
	return t.Sanitized()
}

// Sanitized returns a copy with the numeric fields forced into range:
// position in [0,1], direction in {-1,0,1} and a non-negative speed. A halt
// record is dropped unless the train is halted.
func (t Train) Sanitized() Train {
	t.Position = core.ClampF(t.Position, 0, 1)
	if !t.Halted {
		t.Halt = nil
	}
	t.Direction = t.Direction.Normalize()
	if !(t.Speed > 0) {
		t.Speed = 0
	}
	return t
}

// Moving reports whether the train would advance if it were not halted.
func (t Train) Moving() bool {
	return t.Direction != Stopped && t.Speed > 0
}

// Clone returns a deep copy of the train.
func (t Train) Clone() Train {
	if t.Halt != nil {
		h := *t.Halt
		t.Halt = &h
	}
	return t
}

// String returns a short description of the train.
func (t Train) String() string {
	return fmt.Sprintf("%s on %s @%.4f dir=%d speed=%.2f halted=%v",
		t.ID, t.TrackID, t.Position, t.Direction, t.Speed, t.Halted)
}
