package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/logger"
)

const DefaultMaxHistory = 100

// Applier is what undo and redo edit: normally a *document.Document.
type Applier interface {
	ApplyChanges(change delta.Delta) (delta.Delta, error)
}

// Manager handles the undo/redo stack.
type Manager struct {
	doc          Applier
	entries      []Entry
	currentIndex int // Index of the *next* entry to potentially Redo
	maxHistory   int
	delay        time.Duration
	now          func() time.Time
	mutex        sync.Mutex
}

// NewManager creates a history manager. Records less than delay apart are
// undone as one step; a zero delay keeps every record separate.
func NewManager(doc Applier, maxHistory int, delay time.Duration) *Manager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Manager{
		doc:        doc,
		entries:    make([]Entry, 0, maxHistory),
		maxHistory: maxHistory,
		delay:      delay,
		now:        time.Now,
	}
}

// Record stores change, which was just applied to content before. Any redo
// history is dropped.
func (m *Manager) Record(change, before delta.Delta) {
	if noop(change) {
		return
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entry := NewEntry(change, before, m.now())
	m.entries = m.entries[:m.currentIndex]
	if n := len(m.entries); n > 0 && m.delay > 0 && entry.At.Sub(m.entries[n-1].At) < m.delay {
		m.entries[n-1] = m.entries[n-1].extend(entry)
	} else {
		m.entries = append(m.entries, entry)
	}
	if len(m.entries) > m.maxHistory {
		m.entries = m.entries[len(m.entries)-m.maxHistory:]
	}
	m.currentIndex = len(m.entries)
	logger.DebugTagf("history", "recorded change, index %d of %d", m.currentIndex, len(m.entries))
}

// Cutoff stops the next Record from merging into the last entry.
func (m *Manager) Cutoff() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if n := len(m.entries); n > 0 {
		m.entries[n-1].At = time.Time{}
	}
}

// Undo reverts the last recorded step and returns the change it applied.
func (m *Manager) Undo() (delta.Delta, bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.currentIndex <= 0 {
		logger.DebugTagf("history", "nothing to undo")
		return delta.Delta{}, false, nil
	}
	entry := m.entries[m.currentIndex-1]
	applied, err := m.doc.ApplyChanges(entry.Inverse)
	if err != nil {
		return delta.Delta{}, false, fmt.Errorf("undo failed: %w", err)
	}
	m.currentIndex--
	logger.DebugTagf("history", "undid entry %d", m.currentIndex)
	return applied, true, nil
}

// Redo reapplies the last undone step and returns the change it applied.
func (m *Manager) Redo() (delta.Delta, bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.currentIndex >= len(m.entries) {
		logger.DebugTagf("history", "nothing to redo. currentIndex=%d, len=%d", m.currentIndex, len(m.entries))
		return delta.Delta{}, false, nil
	}
	entry := m.entries[m.currentIndex]
	applied, err := m.doc.ApplyChanges(entry.Change)
	if err != nil {
		return delta.Delta{}, false, fmt.Errorf("redo failed: %w", err)
	}
	m.currentIndex++
	logger.DebugTagf("history", "redid entry %d", m.currentIndex-1)
	return applied, true, nil
}

// Transform rebases every stored step onto remote, a change applied to the
// document after the newest step. Steps that remote made empty are dropped.
func (m *Manager) Transform(remote delta.Delta) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var undo []Entry
	r := remote
	for i := m.currentIndex - 1; i >= 0; i-- {
		e := m.entries[i]
		inverse := r.Transform(e.Inverse, true)
		r = e.Inverse.Transform(r, false)
		moved := Entry{Change: r.Transform(e.Change, true), Inverse: inverse, At: e.At}
		if !noop(moved.Inverse) {
			undo = append(undo, moved)
		}
	}
	var redo []Entry
	r = remote
	for i := m.currentIndex; i < len(m.entries); i++ {
		e := m.entries[i]
		change := r.Transform(e.Change, true)
		r = e.Change.Transform(r, false)
		moved := Entry{Change: change, Inverse: r.Transform(e.Inverse, true), At: e.At}
		if !noop(moved.Change) {
			redo = append(redo, moved)
		}
	}

	out := make([]Entry, 0, len(undo)+len(redo))
	for i := len(undo) - 1; i >= 0; i-- {
		out = append(out, undo[i])
	}
	m.currentIndex = len(out)
	m.entries = append(out, redo...)
	logger.DebugTagf("history", "rebased %d undo and %d redo entries", len(undo), len(redo))
}

// Clear resets the history stack. Call this on document load.
func (m *Manager) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.entries = m.entries[:0]
	m.currentIndex = 0
}

// CanUndo returns true if there are steps that can be undone.
func (m *Manager) CanUndo() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.currentIndex > 0
}

// CanRedo returns true if there are steps that can be redone.
func (m *Manager) CanRedo() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.currentIndex < len(m.entries)
}

// Len is the number of stored steps, undone ones included.
func (m *Manager) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.entries)
}
