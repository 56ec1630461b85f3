// Package scenario describes simulation setups: the track layout and the
// trains placed on it, both in grid cells.
//
// Tracks can be given by explicit endpoints or by the authoring shorthand
// of the layout editor: a main line placed next to another one, or a
// junction between two existing tracks. Build resolves the shorthand in
// declaration order and scales everything to a grid size.
package scenario

import (
	"errors"
	"fmt"
)

// ErrUnknownTrack is returned when a scenario refers to a track it does not
// declare (before the reference, for the authoring shorthand).
var ErrUnknownTrack = errors.New("scenario: unknown track")

// ErrDuplicateTrain is returned when two trains resolve to the same ID.
var ErrDuplicateTrain = errors.New("scenario: duplicate train id")

// MainlineCells is the length in cells of a full-length main line.
const MainlineCells = 40

// Cell is a point in grid cells.
type Cell struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Side selects where a line is placed relative to its reference.
type Side string

const (
	SideBelow Side = "below"
	SideAbove Side = "above"
)

// TrackSpec declares one track segment.
type TrackSpec struct {
	ID     string `yaml:"id,omitempty"`
	Kind   string `yaml:"kind,omitempty"`
	Active *bool  `yaml:"active,omitempty"`

	// Explicit endpoints.
	Start *Cell `yaml:"start,omitempty"`
	End   *Cell `yaml:"end,omitempty"`

	// Main line next to an earlier main line. Length is a fraction of
	// MainlineCells and defaults to 1.
	NextTo string  `yaml:"next_to,omitempty"`
	Side   Side    `yaml:"side,omitempty"`
	Length float64 `yaml:"length,omitempty"`

	// Junction between two earlier tracks.
	Between  []string `yaml:"between,omitempty"`
	Attach   string   `yaml:"attach,omitempty"`
	Parallel bool     `yaml:"parallel,omitempty"`
}

// TrainSpec declares one train.
type TrainSpec struct {
	ID          string   `yaml:"id,omitempty"`
	Name        string   `yaml:"name,omitempty"`
	Track       string   `yaml:"track"`
	Destination string   `yaml:"destination,omitempty"`
	Spawn       string   `yaml:"spawn,omitempty"`
	Direction   *int     `yaml:"direction,omitempty"`
	Speed       *float64 `yaml:"speed,omitempty"`
	Position    *float64 `yaml:"position,omitempty"`
}

// Scenario is a complete simulation setup.
type Scenario struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name,omitempty"`
	Description string      `yaml:"description,omitempty"`
	GridSize    int         `yaml:"grid_size,omitempty"`
	Tracks      []TrackSpec `yaml:"tracks"`
	Trains      []TrainSpec `yaml:"trains"`

	// FilePath is set by the loader.
	FilePath string `yaml:"-"`
}

// Title returns the display name, falling back to the ID.
func (s Scenario) Title() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

func (s Scenario) String() string {
	return fmt.Sprintf("%s (%d tracks, %d trains)", s.ID, len(s.Tracks), len(s.Trains))
}
