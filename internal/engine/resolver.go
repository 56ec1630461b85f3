package engine

import (
	"github.com/samber/lo"

	"github.com/vovakirdan/railsim/internal/train"
)

// HaltEventKind is a halt state transition.
type HaltEventKind string

const (
	EventHalted  HaltEventKind = "halted"
	EventResumed HaltEventKind = "resumed"
)

// HaltEvent records a train being halted behind a blocker or released.
type HaltEvent struct {
	Kind      HaltEventKind
	Train     train.ID
	BlockedBy train.ID
}

// Resolve cross-references forecasts and updates the halt state of every
// train in store. It returns the transitions it made.
//
// Trains whose first CollisionWindow forecast cells overlap are grouped per
// cell in enumeration order; the first train of a cell keeps running and all
// later ones are halted behind it. A train halted on an earlier tick stays
// halted while any of its blocker's forecast cells matches one of its own,
// and is released on the first tick they no longer share a cell.
func Resolve(store *train.Store, forecasts map[train.ID]Forecast) []HaltEvent {
	blockers := claimConflicts(store, forecasts)

	var events []HaltEvent
	for i := 0; i < store.Len(); i++ {
		t := store.At(i)

		if blocker, ok := blockers[t.ID]; ok {
			if !t.Halted || t.Halt == nil || t.Halt.BlockedBy != blocker {
				events = append(events, HaltEvent{Kind: EventHalted, Train: t.ID, BlockedBy: blocker})
			}
			store.Hold(i, train.HaltInfo{Reason: train.ReasonCollision, BlockedBy: blocker})
			continue
		}

		if rec, ok := store.HaltRecord(t.ID); ok {
			if stillBlocked(forecasts, rec.BlockedBy, t.ID) {
				store.Hold(i, rec)
				continue
			}
			store.Release(i)
			events = append(events, HaltEvent{Kind: EventResumed, Train: t.ID, BlockedBy: rec.BlockedBy})
			continue
		}

		if t.Halted || t.Halt != nil {
			store.Release(i)
		}
	}
	return events
}

// claimConflicts maps every train that must yield to the train it yields to.
// When a train yields in several cells the last cell visited wins.
func claimConflicts(store *train.Store, forecasts map[train.ID]Forecast) map[train.ID]train.ID {
	var order []string
	claims := make(map[string][]train.ID)

	for _, id := range store.IDs() {
		f, ok := forecasts[id]
		if !ok {
			continue
		}
		for _, p := range f[:CollisionWindow] {
			key := p.Key()
			if _, seen := claims[key]; !seen {
				order = append(order, key)
			}
			claims[key] = append(claims[key], id)
		}
	}

	blockers := make(map[train.ID]train.ID)
	for _, key := range order {
		ids := lo.Uniq(claims[key])
		if len(ids) < 2 {
			continue
		}
		for _, id := range ids[1:] {
			blockers[id] = ids[0]
		}
	}
	return blockers
}

func stillBlocked(forecasts map[train.ID]Forecast, blocker, id train.ID) bool {
	theirs, ok := forecasts[blocker]
	if !ok {
		return false
	}
	mine, ok := forecasts[id]
	if !ok {
		return false
	}
	return theirs.Intersects(mine)
}
