// Package clipboard copies document ranges to the system clipboard and
// pastes them back, keeping formatting when the content came from here.
package clipboard

import (
	"fmt"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/frame"
	"github.com/bethropolis/scribe/internal/logger"
	"github.com/bethropolis/scribe/internal/types"
)

// System is the platform clipboard.
type System interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Document defines the methods the clipboard needs from the document.
type Document interface {
	Length() int
	ToDelta() delta.Delta
	ApplyChanges(change delta.Delta) (delta.Delta, error)
	InsertText(pos types.DocPos, text string, attrs delta.AttributeMap) (delta.Delta, error)
}

// Manager handles clipboard operations.
type Manager struct {
	doc    Document
	system System
	mutex  sync.Mutex
	rich   delta.Delta // Last copied content
	plain  string      // Its text, to tell whether the system clipboard changed
}

// NewManager creates a clipboard manager backed by the system clipboard. A
// nil system keeps copies inside the process.
func NewManager(doc Document, system System) *Manager {
	return &Manager{doc: doc, system: system}
}

// NewSystemManager creates a clipboard manager on the platform clipboard.
func NewSystemManager(doc Document) *Manager {
	return NewManager(doc, systemClipboard{})
}

// PlainText renders content as text: embeds as U+FFFC, terminators as "\n".
func PlainText(content delta.Delta) string {
	var b strings.Builder
	for _, op := range content.Ops {
		switch {
		case op.IsTerminator():
			b.WriteByte('\n')
		case op.Embed:
			b.WriteRune(frame.ObjectReplacement)
		default:
			b.WriteString(op.Insert)
		}
	}
	return b.String()
}

// Copy stores the content of r and returns its text. A failing system
// clipboard is logged; the copy stays available to Paste.
func (m *Manager) Copy(r types.Range) (string, error) {
	s, e := r.Offsets()
	s, e = max(s, 0), min(e, m.doc.Length())
	if s >= e {
		return "", nil
	}
	content := m.doc.ToDelta().Slice(s, e)
	text := PlainText(content)

	m.mutex.Lock()
	m.rich, m.plain = content, text
	m.mutex.Unlock()

	if m.system != nil {
		if err := m.system.WriteAll(text); err != nil {
			logger.Warnf("clipboard: system write failed: %v", err)
			return text, fmt.Errorf("failed to write system clipboard: %w", err)
		}
	}
	logger.Debugf("clipboard: copied %d characters", e-s)
	return text, nil
}

// Paste inserts the clipboard at pos. Content copied by this manager keeps
// its formatting unless the system clipboard has changed since.
func (m *Manager) Paste(pos types.DocPos) (delta.Delta, error) {
	m.mutex.Lock()
	rich, plain := m.rich, m.plain
	m.mutex.Unlock()

	text := plain
	if m.system != nil {
		got, err := m.system.ReadAll()
		if err != nil {
			logger.Warnf("clipboard: system read failed, using the last copy: %v", err)
		} else {
			text = got
		}
	}
	if text == "" {
		return delta.Delta{}, nil
	}
	p := pos.Flatten()
	if text != plain || rich.Empty() {
		return m.doc.InsertText(pos, text, nil)
	}
	if p < 0 || p >= m.doc.Length() {
		return delta.Delta{}, nil
	}
	change := delta.New().Retain(p, nil)
	for _, op := range rich.Ops {
		change.Push(op)
	}
	applied, err := m.doc.ApplyChanges(*change)
	if err != nil {
		logger.Warnf("clipboard: formatted paste failed, pasting text: %v", err)
		return m.doc.InsertText(pos, text, nil)
	}
	return applied, nil
}
