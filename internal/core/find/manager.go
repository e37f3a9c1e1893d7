// Package find searches a document's text and replaces matches.
package find

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/bethropolis/scribe/internal/block"
	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/logger"
	"github.com/bethropolis/scribe/internal/types"
	"github.com/bethropolis/scribe/internal/utils"
)

// Document defines the methods the find manager needs from the document.
type Document interface {
	Blocks() []block.Block
	GetSelectionRectangles(r types.Range) []types.Rect
	Delete(r types.Range, forward bool) (delta.Delta, error)
	InsertText(pos types.DocPos, text string, attrs delta.AttributeMap) (delta.Delta, error)
}

// Options select how a term matches.
type Options struct {
	Regexp     bool // Term is a regular expression, otherwise literal
	IgnoreCase bool
}

// Result is one match. Range is relative to the start of Block, so edits in
// other blocks never move it.
type Result struct {
	Range types.Range
	Rects []types.Rect // Document coordinates at search time
	Block block.Block
}

// DocRange is the match in document offsets.
func (r Result) DocRange() types.Range {
	s, e := r.Range.Offsets()
	start := r.Block.Base().Start()
	return types.Span(start+s, start+e)
}

// Manager handles find and replace.
type Manager struct {
	doc     Document
	mutex   sync.RWMutex
	results []Result
	term    string
	re      *regexp.Regexp
}

// NewManager creates a find manager.
func NewManager(doc Document) *Manager {
	return &Manager{doc: doc}
}

// Compile builds the matcher for term.
func Compile(term string, opts Options) (*regexp.Regexp, error) {
	if term == "" {
		return nil, fmt.Errorf("search pattern cannot be empty")
	}
	pattern := term
	if !opts.Regexp {
		pattern = regexp.QuoteMeta(term)
	}
	if opts.IgnoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern: %w", err)
	}
	return re, nil
}

// Search finds every occurrence of term, in document order. Matches never
// span a line break. An empty term clears the results.
func (m *Manager) Search(term string, opts Options) ([]Result, error) {
	if term == "" {
		m.Clear()
		return nil, nil
	}
	re, err := Compile(term, opts)
	if err != nil {
		logger.Warnf("find: invalid pattern '%s': %v", term, err)
		return nil, err
	}

	var results []Result
	for _, b := range m.doc.Blocks() {
		acc := 0
		for _, f := range b.Frames() {
			line := f.Text()
			line = line[:len(line)-1] // Terminator
			for _, loc := range re.FindAllStringIndex(line, -1) {
				if loc[0] == loc[1] {
					continue
				}
				s := acc + utils.ByteOffsetToRuneIndex(line, loc[0])
				e := acc + utils.ByteOffsetToRuneIndex(line, loc[1])
				r := Result{Range: types.Span(s, e), Block: b}
				r.Rects = m.doc.GetSelectionRectangles(r.DocRange())
				results = append(results, r)
			}
			acc += f.Len()
		}
	}

	m.mutex.Lock()
	m.term, m.re, m.results = term, re, results
	m.mutex.Unlock()
	logger.DebugTagf("find", "%d matches for '%s'", len(results), term)
	return m.Results(), nil
}

// Results returns a copy of the current matches.
func (m *Manager) Results() []Result {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]Result, len(m.results))
	copy(out, m.results)
	return out
}

// Clear drops the current matches.
func (m *Manager) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.results, m.term, m.re = nil, "", nil
}

// Next returns the index of the first match starting after pos, or before
// it when searching backward. The search wraps around.
func (m *Manager) Next(pos types.DocPos, forward bool) (int, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	n := len(m.results)
	if n == 0 {
		return 0, false
	}
	p := pos.Flatten()
	i := sort.Search(n, func(i int) bool {
		s, _ := m.results[i].DocRange().Offsets()
		if forward {
			return s > p
		}
		return s >= p
	})
	if forward {
		return i % n, true
	}
	return (i - 1 + n) % n, true
}

// Replace swaps match i for text and returns the change. Later matches in
// the same block move with the edit; matches in other blocks are untouched.
func (m *Manager) Replace(i int, text string) (delta.Delta, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if i < 0 || i >= len(m.results) {
		return delta.Delta{}, fmt.Errorf("no match %d of %d", i, len(m.results))
	}
	r := m.results[i]
	start := r.Block.Base().Start()
	docRange := r.DocRange()

	change, err := m.doc.Delete(docRange, false)
	if err != nil {
		return delta.Delta{}, fmt.Errorf("replace failed during delete: %w", err)
	}
	ins, err := m.doc.InsertText(docRange.Start, text, nil)
	if err != nil {
		return change, fmt.Errorf("replace failed during insert: %w", err)
	}
	change = change.Compose(ins)

	m.results = append(m.results[:i], m.results[i+1:]...)
	for j := range m.results {
		o := &m.results[j]
		if o.Block != r.Block {
			continue
		}
		s, e := o.DocRange().Transform(change).Offsets()
		o.Range = types.Span(s-start, e-start)
		o.Rects = nil
	}
	logger.DebugTagf("find", "replaced match %d with %q", i, text)
	return change, nil
}

// ReplaceAll replaces every match, last first, and returns the combined
// change.
func (m *Manager) ReplaceAll(text string) (delta.Delta, error) {
	total := delta.Delta{}
	for i := len(m.Results()) - 1; i >= 0; i-- {
		c, err := m.Replace(i, text)
		if err != nil {
			return total, err
		}
		total = total.Compose(c)
	}
	return total, nil
}
