package frame

import (
	"sort"
	"unicode"

	"github.com/bethropolis/scribe/internal/fragment"
	"github.com/bethropolis/scribe/internal/measure"
	"github.com/bethropolis/scribe/internal/types"
	"github.com/rivo/uniseg"
)

// Piece is the part of one fragment that sits on a line.
type Piece struct {
	Frag       int
	Start, End int
	X, Width   float64
}

// Line is one laid out row of a frame. Start and End are frame positions;
// Y is relative to the frame's top.
type Line struct {
	Pieces     []Piece
	Start, End int
	Y          float64
	Height     float64
	Baseline   float64
	Width      float64
}

// segment is a line-breaking unit: a word with its trailing spaces.
type segment struct {
	start, end int
	trailing   int
	mustBreak  bool
}

// Layout breaks the frame into lines no wider than the width set with
// SetMaxWidth; a non-positive width never wraps. It does nothing while the
// frame is clean.
func (f *Frame) Layout(m measure.Measurer) {
	if !f.needLayout && f.measurer == m {
		return
	}
	maxWidth := f.maxWidth
	f.measurer = m
	for _, c := range f.children {
		c.CalMetrics(m)
	}

	attrs := f.Attributes()
	textIndent, _ := attrs.Number("textIndent")
	spacing, ok := attrs.Number("lineSpacing")
	if !ok || spacing <= 0 {
		spacing = 1
	}
	align := attrs.String("align")

	f.lines = f.lines[:0]
	bodyEnd := f.length - 1
	segs := f.segments()
	lineStart := 0
	x := f.indent + textIndent
	first := true
	flush := func(end int) {
		f.addLine(lineStart, end, first, textIndent)
		first = false
		lineStart = end
		x = f.indent
	}
	for _, s := range segs {
		w := f.width(s.start, s.end)
		trimmed := w
		if s.trailing > 0 {
			trimmed = f.width(s.start, s.end-s.trailing)
		}
		if s.start > lineStart && maxWidth > 0 && x+trimmed > maxWidth {
			flush(s.start)
		}
		x += w
		if s.mustBreak && s.end < bodyEnd {
			flush(s.end)
		}
	}
	f.addLine(lineStart, f.length, first, textIndent)

	runes := []rune(f.Text())
	y := 0.0
	for i := range f.lines {
		l := &f.lines[i]
		f.finishLine(l, runes, align, spacing)
		l.Y = y
		y += l.Height
	}
	f.Height = y
	f.Width = maxWidth
	f.needLayout = false
}

// segments splits the body (terminator excluded) at line break opportunities.
func (f *Frame) segments() []segment {
	runes := make([]rune, 0, f.length)
	for _, c := range f.children[:len(f.children)-1] {
		if t, ok := c.(*fragment.Text); ok {
			runes = append(runes, []rune(t.Content())...)
		} else if c.Len() > 0 {
			runes = append(runes, ObjectReplacement)
		}
	}
	var segs []segment
	rest := string(runes)
	state := -1
	pos := 0
	for rest != "" {
		var seg string
		var mustBreak bool
		seg, rest, mustBreak, state = uniseg.FirstLineSegmentInString(rest, state)
		r := []rune(seg)
		trailing := 0
		for j := len(r) - 1; j >= 0 && unicode.IsSpace(r[j]); j-- {
			trailing++
		}
		segs = append(segs, segment{start: pos, end: pos + len(r), trailing: trailing, mustBreak: mustBreak})
		pos += len(r)
	}
	return segs
}

// width measures frame positions [start, end).
func (f *Frame) width(start, end int) float64 {
	w := 0.0
	acc := 0
	for _, c := range f.children {
		n := c.Len()
		if acc >= end {
			break
		}
		if acc+n > start {
			w += c.MeasureRange(f.measurer, max(start-acc, 0), min(end-acc, n))
		}
		acc += n
	}
	return w
}

func (f *Frame) addLine(start, end int, first bool, textIndent float64) {
	l := Line{Start: start, End: end}
	x := f.indent
	if first {
		x += textIndent
	}
	acc := 0
	for i, c := range f.children {
		n := c.Len()
		if acc < end && acc+n > start {
			ps, pe := max(start-acc, 0), min(end-acc, n)
			w := c.MeasureRange(f.measurer, ps, pe)
			l.Pieces = append(l.Pieces, Piece{Frag: i, Start: ps, End: pe, X: x, Width: w})
			x += w
		}
		acc += n
	}
	f.lines = append(f.lines, l)
}

func (f *Frame) finishLine(l *Line, runes []rune, align string, spacing float64) {
	metrics := f.minMetrics
	width := 0.0
	for _, p := range l.Pieces {
		metrics = metrics.Max(f.children[p.Frag].Metrics())
		width = p.X + p.Width
	}
	// Trailing spaces hang past the edge and do not count for alignment.
	if len(l.Pieces) > 0 {
		width -= f.trailingSpaceWidth(l, runes)
	}
	l.Width = width
	l.Baseline = metrics.Baseline
	l.Height = metrics.Bottom * spacing

	if f.maxWidth <= 0 {
		return
	}
	var shift float64
	switch align {
	case "center":
		shift = (f.maxWidth - width) / 2
	case "right":
		shift = f.maxWidth - width
	}
	if shift > 0 {
		for i := range l.Pieces {
			l.Pieces[i].X += shift
		}
		l.Width += shift
	}
}

func (f *Frame) trailingSpaceWidth(l *Line, runes []rune) float64 {
	body := min(l.End, f.length-1)
	end := body
	for end > l.Start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	if end == body {
		return 0
	}
	return f.width(end, body)
}

// lineAt returns the index of the line holding pos. Positions past the body
// belong to the last line.
func (f *Frame) lineAt(pos int) int {
	i := sort.Search(len(f.lines), func(i int) bool { return f.lines[i].End > pos })
	return min(i, len(f.lines)-1)
}

// xAt is the horizontal offset of pos within line l.
func (f *Frame) xAt(l *Line, pos int) float64 {
	acc := l.Start
	for _, p := range l.Pieces {
		n := p.End - p.Start
		if pos <= acc+n || p.Frag == len(f.children)-1 {
			return p.X + f.children[p.Frag].MeasureRange(f.measurer, p.Start, p.Start+min(pos-acc, n))
		}
		acc += n
	}
	if n := len(l.Pieces); n > 0 {
		last := l.Pieces[n-1]
		return last.X + last.Width
	}
	return f.indent
}

// GetDocumentPos maps a point relative to the frame to a frame position in
// [0, Len()-1].
func (f *Frame) GetDocumentPos(x, y float64) int {
	if len(f.lines) == 0 {
		return 0
	}
	li := sort.Search(len(f.lines), func(i int) bool {
		return f.lines[i].Y+f.lines[i].Height > y
	})
	li = min(li, len(f.lines)-1)
	l := &f.lines[li]
	hi := l.End
	if li < len(f.lines)-1 {
		hi = max(l.Start, l.End-1)
	}
	hi = min(hi, f.length-1)

	best, bestDist := l.Start, -1.0
	for pos := l.Start; pos <= hi; pos++ {
		d := f.xAt(l, pos) - x
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = pos, d
		}
	}
	return best
}

// CaretRect is the caret box at pos, relative to the frame.
func (f *Frame) CaretRect(pos int) types.Rect {
	if len(f.lines) == 0 {
		return types.Rect{}
	}
	pos = clamp(pos, 0, f.length-1)
	l := &f.lines[f.lineAt(pos)]
	return types.Rect{X: f.xAt(l, pos), Y: l.Y, W: 1, H: l.Height}
}

// GetRects returns one box per line covered by [start, end), relative to the
// frame. A range running past the body extends to the line's full width.
func (f *Frame) GetRects(start, end int) []types.Rect {
	var rects []types.Rect
	for i := range f.lines {
		l := &f.lines[i]
		if l.End <= start {
			continue
		}
		if l.Start >= end {
			break
		}
		x0 := f.xAt(l, max(start, l.Start))
		var x1 float64
		if end >= l.End {
			x1 = max(l.Width, f.xAt(l, l.End))
		} else {
			x1 = f.xAt(l, end)
		}
		if x1 > x0 {
			rects = append(rects, types.Rect{X: x0, Y: l.Y, W: x1 - x0, H: l.Height})
		}
	}
	return rects
}
