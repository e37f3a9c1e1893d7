// Package history provides undo/redo over document change records.
package history

import (
	"time"

	"github.com/bethropolis/scribe/internal/delta"
)

// Entry is one undoable step.
type Entry struct {
	Change  delta.Delta // Forward change, applies where Inverse was undone
	Inverse delta.Delta // Reverts Change against the content it was applied to
	At      time.Time   // When the step was last extended
}

// NewEntry records change applied to before, the content it was applied to.
func NewEntry(change, before delta.Delta, at time.Time) Entry {
	return Entry{Change: change, Inverse: change.Invert(before), At: at}
}

// extend folds a change made right after e into it.
func (e Entry) extend(next Entry) Entry {
	return Entry{
		Change:  e.Change.Compose(next.Change),
		Inverse: next.Inverse.Compose(e.Inverse),
		At:      next.At,
	}
}

// noop reports whether d changes nothing once trailing retains are dropped.
func noop(d delta.Delta) bool {
	c := d.Clone()
	return c.Chop().Empty()
}
