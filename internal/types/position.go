// Package types holds the position and geometry values shared by the layout
// and edit layers.
package types

import (
	"fmt"
	"strings"

	"github.com/bethropolis/scribe/internal/delta"
)

// DocPos addresses a character offset. Index is relative to the container the
// position is resolved in; Inner, when set, descends into nested structure such
// as a table cell, with Index pointing at the start of that structure.
type DocPos struct {
	Index int
	Inner *DocPos
}

// Pos returns a flat position.
func Pos(index int) DocPos {
	return DocPos{Index: index}
}

// Nested returns a position addressing inner within the structure at outer.
func Nested(outer, inner int) DocPos {
	return DocPos{Index: outer, Inner: &DocPos{Index: inner}}
}

// Compare orders positions: by Index, then by Inner. A nil Inner sorts before
// any non-nil Inner at the same Index.
func Compare(a, b DocPos) int {
	switch {
	case a.Index < b.Index:
		return -1
	case a.Index > b.Index:
		return 1
	}
	switch {
	case a.Inner == nil && b.Inner == nil:
		return 0
	case a.Inner == nil:
		return -1
	case b.Inner == nil:
		return 1
	}
	return Compare(*a.Inner, *b.Inner)
}

// Equal reports whether every level matches.
func (p DocPos) Equal(other DocPos) bool {
	return Compare(p, other) == 0
}

// Clone deep-copies the Inner chain.
func (p DocPos) Clone() DocPos {
	out := DocPos{Index: p.Index}
	if p.Inner != nil {
		inner := p.Inner.Clone()
		out.Inner = &inner
	}
	return out
}

// Flatten returns the absolute stream offset: the sum of all levels.
func (p DocPos) Flatten() int {
	n := p.Index
	for inner := p.Inner; inner != nil; inner = inner.Inner {
		n += inner.Index
	}
	return n
}

// Depth is the number of levels, 1 for a flat position.
func (p DocPos) Depth() int {
	d := 1
	for inner := p.Inner; inner != nil; inner = inner.Inner {
		d++
	}
	return d
}

func (p DocPos) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", p.Index)
	for inner := p.Inner; inner != nil; inner = inner.Inner {
		fmt.Fprintf(&b, "/%d", inner.Index)
	}
	return b.String()
}

// MoveRight returns p advanced by n at the outermost level.
func MoveRight(p DocPos, n int) DocPos {
	return MoveDocPos(p, n)
}

// MoveDocPos returns p shifted by delta at the outermost level, clamped at 0.
func MoveDocPos(p DocPos, delta int) DocPos {
	out := p.Clone()
	out.Index += delta
	if out.Index < 0 {
		out.Index = 0
	}
	return out
}

// Transform maps p across change. Every level's absolute offset is transformed
// with the change's position algebra and the nested form is rebuilt from the
// differences, so inner offsets stay relative and never go negative.
func Transform(p DocPos, change delta.Delta, priority bool) DocPos {
	if change.Empty() {
		return p.Clone()
	}
	var cumulative []int
	sum := 0
	for level := &p; level != nil; level = level.Inner {
		sum += level.Index
		cumulative = append(cumulative, change.TransformPosition(sum, priority))
	}
	out := DocPos{Index: cumulative[0]}
	cur := &out
	for i := 1; i < len(cumulative); i++ {
		rel := cumulative[i] - cumulative[i-1]
		if rel < 0 {
			rel = 0
		}
		cur.Inner = &DocPos{Index: rel}
		cur = cur.Inner
	}
	return out
}
