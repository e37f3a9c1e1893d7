// Package frame holds one paragraph's fragments and lays them out into
// lines. A frame always ends with exactly one terminator fragment.
package frame

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/fragment"
	"github.com/bethropolis/scribe/internal/measure"
)

// ErrMissingEnd is returned when ops for a frame do not end with a terminator.
var ErrMissingEnd = errors.New("frame: ops must end with a terminator")

// Frame is a paragraph: a run of fragments closed by a terminator.
type Frame struct {
	children []fragment.Fragment
	lines    []Line

	length     int
	needLayout bool
	maxWidth   float64
	measurer   measure.Measurer

	minMetrics measure.Metrics
	indent     float64

	// headless marks a terminator that carried no block header.
	headless bool

	// Position relative to the owning block.
	X, Y   float64
	Width  float64
	Height float64
}

// New returns a frame of children. A terminator is appended if the last
// child is not one.
func New(children ...fragment.Fragment) *Frame {
	f := &Frame{children: children, needLayout: true}
	if len(children) == 0 || children[len(children)-1].Kind() != fragment.KindEnd {
		f.children = append(f.children, fragment.NewEnd(nil))
	}
	f.normalize()
	return f
}

// FromOps builds a frame from insert ops, the last of which must be a
// terminator. No other op may be one.
func FromOps(ops []delta.Op) (*Frame, error) {
	if len(ops) == 0 || !ops[len(ops)-1].IsTerminator() {
		return nil, ErrMissingEnd
	}
	children := make([]fragment.Fragment, 0, len(ops))
	for i, op := range ops {
		if i < len(ops)-1 && op.IsTerminator() {
			return nil, fmt.Errorf("frame: terminator at op %d of %d", i, len(ops))
		}
		frag, err := fragment.FromOp(op)
		if err != nil {
			return nil, err
		}
		children = append(children, frag)
	}
	return New(children...), nil
}

// Len is the frame's stream length, terminator included.
func (f *Frame) Len() int { return f.length }

// Children returns the fragments in order. The slice must not be modified.
func (f *Frame) Children() []fragment.Fragment { return f.children }

// End returns the terminator.
func (f *Frame) End() *fragment.End {
	return f.children[len(f.children)-1].(*fragment.End)
}

// Attributes are the terminator's attributes.
func (f *Frame) Attributes() delta.AttributeMap { return f.End().Attributes() }

// SetAttributes replaces the terminator's attributes.
func (f *Frame) SetAttributes(attrs delta.AttributeMap) {
	if !f.End().Attributes().Equal(attrs) {
		f.End().SetAttributes(attrs)
		f.Invalidate()
	}
}

// Lines returns the laid out lines.
func (f *Frame) Lines() []Line { return f.lines }

// NeedLayout reports whether the frame changed since its last layout.
func (f *Frame) NeedLayout() bool { return f.needLayout }

// Invalidate forces the next Layout to run.
func (f *Frame) Invalidate() { f.needLayout = true }

// SetMaxWidth sets the wrapping width used by the next Layout.
func (f *Frame) SetMaxWidth(w float64) {
	if f.maxWidth != w {
		f.maxWidth = w
		f.needLayout = true
	}
}

// MaxWidth is the wrapping width.
func (f *Frame) MaxWidth() float64 { return f.maxWidth }

// SetIndent sets the left inset applied to every line.
func (f *Frame) SetIndent(px float64) {
	if f.indent != px {
		f.indent = px
		f.needLayout = true
	}
}

// Indent is the left inset applied to every line.
func (f *Frame) Indent() float64 { return f.indent }

// SetMinMetrics sets a floor for every line's metrics, such as a list marker's.
func (f *Frame) SetMinMetrics(m measure.Metrics) {
	if f.minMetrics != m {
		f.minMetrics = m
		f.needLayout = true
	}
}

// Text returns the frame's text: embeds as U+FFFC and the terminator as "\n".
func (f *Frame) Text() string {
	var b strings.Builder
	for _, c := range f.children {
		switch c := c.(type) {
		case *fragment.Text:
			b.WriteString(c.Content())
		case *fragment.End:
			b.WriteByte('\n')
		default:
			if c.Len() > 0 {
				b.WriteRune(ObjectReplacement)
			}
		}
	}
	return b.String()
}

// ObjectReplacement stands in for embeds in plain text.
const ObjectReplacement = '￼'

// ToOps returns the frame as insert ops.
func (f *Frame) ToOps() []delta.Op {
	ops := make([]delta.Op, 0, len(f.children))
	for _, c := range f.children {
		ops = append(ops, c.ToOp())
	}
	return ops
}

// locate returns the child holding pos and the offset into it. A position on
// a boundary belongs to the following child.
func (f *Frame) locate(pos int) (int, int) {
	acc := 0
	for i, c := range f.children {
		n := c.Len()
		if pos < acc+n {
			return i, pos - acc
		}
		acc += n
	}
	last := len(f.children) - 1
	return last, f.children[last].Len()
}

// offsetOf returns the frame position where child i starts.
func (f *Frame) offsetOf(i int) int {
	acc := 0
	for _, c := range f.children[:i] {
		acc += c.Len()
	}
	return acc
}

func (f *Frame) splice(i, n int, repl []fragment.Fragment) {
	tail := append([]fragment.Fragment(nil), f.children[i+n:]...)
	f.children = append(append(f.children[:i], repl...), tail...)
}

// normalize drops empty fragments, merges compatible neighbours and
// recomputes the length.
func (f *Frame) normalize() {
	out := f.children[:0]
	for _, c := range f.children {
		if c.Len() == 0 && c.Kind() != fragment.KindEnd {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Eat(c) {
			continue
		}
		out = append(out, c)
	}
	for i := len(out); i < len(f.children); i++ {
		f.children[i] = nil
	}
	f.children = out
	f.length = 0
	for _, c := range f.children {
		f.length += c.Len()
	}
}

func (f *Frame) changed() {
	f.normalize()
	f.needLayout = true
}

// Normalize merges adjacent fragments that can be merged.
func (f *Frame) Normalize() { f.changed() }

// InsertText inserts content at pos. Nil attrs inherit the preceding run.
func (f *Frame) InsertText(pos int, content string, attrs delta.AttributeMap) {
	if content == "" {
		return
	}
	pos = clamp(pos, 0, f.length-1)
	i, off := f.locate(pos)
	if off == 0 && i > 0 {
		if prev, ok := f.children[i-1].(*fragment.Text); ok {
			i, off = i-1, prev.Len()
		}
	}
	f.splice(i, 1, f.children[i].InsertText(content, off, attrs))
	f.changed()
}

// InsertFragment places frag at pos, splitting a text run if needed.
func (f *Frame) InsertFragment(pos int, frag fragment.Fragment) {
	pos = clamp(pos, 0, f.length-1)
	i, off := f.locate(pos)
	if off > 0 {
		if rest := f.children[i].InsertEnter(off); rest != nil {
			f.splice(i+1, 0, []fragment.Fragment{frag, rest})
			f.changed()
			return
		}
		i++
	}
	f.splice(i, 0, []fragment.Fragment{frag})
	f.changed()
}

// Delete removes [start, end) without touching the terminator. A collapsed
// range with forward set removes the unit before start. It reports whether
// the frame changed.
func (f *Frame) Delete(start, end int, forward bool) bool {
	if start == end {
		if !forward || start <= 0 || start > f.length-1 {
			return false
		}
		i, off := f.locate(start - 1)
		if !f.children[i].Delete(off+1, off+1, true) {
			return false
		}
		f.changed()
		return true
	}
	start = clamp(start, 0, f.length-1)
	end = clamp(end, 0, f.length-1)
	if start >= end {
		return false
	}
	removed := false
	acc := 0
	for _, c := range f.children {
		n := c.Len()
		if acc < end && acc+n > start {
			if c.Delete(max(start-acc, 0), min(end-acc, n), false) {
				removed = true
			}
		}
		acc += n
	}
	if removed {
		f.changed()
	}
	return removed
}

// InsertEnter splits the frame at pos. The receiver keeps the content before
// pos under a new terminator copying the frame attributes; the returned frame
// holds the rest and the original terminator.
func (f *Frame) InsertEnter(pos int) *Frame {
	pos = clamp(pos, 0, f.length-1)
	i, off := f.locate(pos)
	var tail []fragment.Fragment
	if off > 0 {
		if rest := f.children[i].InsertEnter(off); rest != nil {
			tail = append(tail, rest)
		}
		i++
	}
	tail = append(tail, f.children[i:]...)
	head := append([]fragment.Fragment(nil), f.children[:i]...)
	head = append(head, fragment.NewEnd(f.Attributes().Clone()))

	f.children = head
	f.changed()
	next := New(tail...)
	next.indent = f.indent
	next.minMetrics = f.minMetrics
	next.maxWidth = f.maxWidth
	next.headless = f.headless
	return next
}

// Headless reports whether the frame's terminator is written without the
// owning block's header.
func (f *Frame) Headless() bool { return f.headless }

// SetHeadless sets how the frame's terminator is written.
func (f *Frame) SetHeadless(v bool) { f.headless = v }

// Append moves other's fragments onto the end of f, dropping f's terminator
// so other's terminator closes the merged frame.
func (f *Frame) Append(other *Frame) {
	f.children = append(f.children[:len(f.children)-1], other.children...)
	f.headless = other.headless
	other.children = nil
	f.changed()
}

// Format applies inline attributes to [start, end) and paragraph attributes
// to the terminator when the range touches this frame.
func (f *Frame) Format(attrs delta.AttributeMap, start, end int) {
	inline := delta.AttributeMap{}
	para := delta.AttributeMap{}
	for k, v := range attrs {
		switch {
		case fragment.IsInlineKey(k):
			inline[k] = v
		case fragment.IsFrameKey(k):
			para[k] = v
		}
	}
	start = clamp(start, 0, f.length)
	end = clamp(end, start, f.length)
	if len(inline) > 0 && start < end {
		var out []fragment.Fragment
		acc := 0
		for _, c := range f.children {
			n := c.Len()
			if acc < end && acc+n > start {
				out = append(out, c.Format(inline, max(start-acc, 0), min(end-acc, n))...)
			} else {
				out = append(out, c)
			}
			acc += n
		}
		f.children = out
	}
	if len(para) > 0 {
		f.End().Format(para, 0, 1)
	}
	f.changed()
}

// CollectFormat adds the attributes in effect over [start, end) to into, one
// entry per distinct value. A collapsed range reports the run before start.
func (f *Frame) CollectFormat(start, end int, into map[string][]any) {
	if start == end && start > 0 {
		start--
	}
	acc := 0
	for _, c := range f.children {
		n := c.Len()
		if c.Kind() != fragment.KindEnd && ((acc < end && acc+n > start) || (start == end && acc == start)) {
			MergeFormat(into, c.Attributes())
		}
		acc += n
	}
	MergeFormat(into, f.Attributes().Only(fragment.FrameKeys...))
}

// MergeFormat adds each attribute value of attrs to into unless present.
func MergeFormat(into map[string][]any, attrs delta.AttributeMap) {
	for k, v := range attrs {
		seen := false
		for _, have := range into[k] {
			if delta.ValueEqual(have, v) {
				seen = true
				break
			}
		}
		if !seen {
			into[k] = append(into[k], v)
		}
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
