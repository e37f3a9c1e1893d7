package types

import "github.com/bethropolis/scribe/internal/delta"

// Range is a selection between two positions with Start <= End.
// A collapsed range is a cursor.
type Range struct {
	Start DocPos
	End   DocPos
}

// NewRange builds a range, swapping the ends if needed.
func NewRange(a, b DocPos) Range {
	if Compare(a, b) > 0 {
		a, b = b, a
	}
	return Range{Start: a.Clone(), End: b.Clone()}
}

// Span is a flat range over absolute offsets.
func Span(start, end int) Range {
	return NewRange(Pos(start), Pos(end))
}

// Collapsed reports whether the range is a cursor.
func (r Range) Collapsed() bool {
	return Compare(r.Start, r.End) == 0
}

// Offsets returns the flattened start and end.
func (r Range) Offsets() (int, int) {
	return r.Start.Flatten(), r.End.Flatten()
}

// Len is the number of characters covered.
func (r Range) Len() int {
	s, e := r.Offsets()
	return e - s
}

// Transform maps both ends across change. Text inserted at a cursor pushes it
// forward; text inserted at a selection's start stays outside the selection.
func (r Range) Transform(change delta.Delta) Range {
	start := Transform(r.Start, change, !r.Collapsed())
	end := Transform(r.End, change, false)
	return NewRange(start, end)
}

// Rect is an axis-aligned rectangle in layout pixels.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Offset translates r.
func (r Rect) Offset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}
