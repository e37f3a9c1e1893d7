package block

import (
	"strings"

	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/fragment"
	"github.com/bethropolis/scribe/internal/frame"
	"github.com/bethropolis/scribe/internal/measure"
	"github.com/bethropolis/scribe/internal/types"
)

// frameList is a vertical run of frames addressed by one flat offset.
type frameList []*frame.Frame

func (fl frameList) length() int {
	n := 0
	for _, f := range fl {
		n += f.Len()
	}
	return n
}

func (fl frameList) text() string {
	var b strings.Builder
	for _, f := range fl {
		b.WriteString(f.Text())
	}
	return b.String()
}

// locate returns the frame holding pos and the offset into it. Positions
// past the end resolve to the last frame's terminator.
func (fl frameList) locate(pos int) (int, int) {
	acc := 0
	for i, f := range fl {
		if pos < acc+f.Len() {
			return i, max(pos-acc, 0)
		}
		acc += f.Len()
	}
	last := len(fl) - 1
	return last, fl[last].Len() - 1
}

func (fl frameList) startOf(i int) int {
	acc := 0
	for _, f := range fl[:i] {
		acc += f.Len()
	}
	return acc
}

func (fl frameList) insertText(pos int, text string, attrs delta.AttributeMap) {
	i, off := fl.locate(pos)
	fl[i].InsertText(off, text, attrs)
}

func (fl frameList) insertFragment(pos int, frag fragment.Fragment) {
	i, off := fl.locate(pos)
	fl[i].InsertFragment(off, frag)
}

// delete removes [start, end). Terminators between frames inside the range
// are removed by merging the frames; the last terminator is never removed.
// A backspace at the start of a frame other than the first merges it into
// the previous one.
func (fl *frameList) delete(start, end int, forward bool) {
	frames := *fl
	if start == end {
		if !forward {
			return
		}
		i, off := frames.locate(start)
		if off > 0 {
			frames[i].Delete(off, off, true)
			return
		}
		if i == 0 {
			return
		}
		start = start - 1
	}
	end = min(end, frames.length()-1)
	if start >= end {
		return
	}
	for i := len(frames) - 1; i >= 0; i-- {
		fs := frames.startOf(i)
		fe := fs + frames[i].Len()
		if end <= fs || start >= fe {
			continue
		}
		lo, hi := max(start-fs, 0), min(end-fs, frames[i].Len())
		joined := hi == frames[i].Len() && i < len(frames)-1
		frames[i].Delete(lo, hi, false)
		if joined {
			frames[i].Append(frames[i+1])
			frames = append(frames[:i+1], frames[i+2:]...)
		}
	}
	*fl = frames
}

// split breaks the frame at pos in two and returns the index of the new
// downstream frame.
func (fl *frameList) split(pos int) int {
	frames := *fl
	i, off := frames.locate(pos)
	next := frames[i].InsertEnter(off)
	frames = append(frames, nil)
	copy(frames[i+2:], frames[i+1:])
	frames[i+1] = next
	*fl = frames
	return i + 1
}

func (fl frameList) format(start, end int, attrs delta.AttributeMap) {
	acc := 0
	for _, f := range fl {
		n := f.Len()
		if (acc < end && acc+n > start) || (start == end && start >= acc && start < acc+n) {
			f.Format(attrs, max(start-acc, 0), min(end-acc, n))
		}
		acc += n
	}
}

func (fl frameList) collectFormat(start, end int, into map[string][]any) {
	acc := 0
	for _, f := range fl {
		n := f.Len()
		if (acc < end && acc+n > start) || (start == end && start >= acc && start < acc+n) {
			f.CollectFormat(max(start-acc, 0), min(end-acc, n), into)
		}
		acc += n
	}
}

// snap moves both ends onto grapheme boundaries inside the list.
func (fl frameList) snap(start, end int) (int, int) {
	total := fl.length()
	start = max(0, min(start, total))
	end = max(start, min(end, total))
	return fl.snapOne(start), fl.snapOne(end)
}

func (fl frameList) snapOne(pos int) int {
	if pos >= fl.length() {
		return pos
	}
	i, off := fl.locate(pos)
	return fl.startOf(i) + fragment.SnapToGrapheme(fl[i].Text(), off)
}

// layout lays the frames out top to bottom and returns the total height.
func (fl frameList) layout(m measure.Measurer, width, indent float64) float64 {
	y := 0.0
	for _, f := range fl {
		f.SetIndent(indent)
		f.SetMaxWidth(width)
		f.Layout(m)
		f.X = 0
		f.Y = y
		y += f.Height
	}
	return y
}

func (fl frameList) rects(start, end int) []types.Rect {
	var out []types.Rect
	acc := 0
	for _, f := range fl {
		n := f.Len()
		if acc < end && acc+n > start {
			for _, r := range f.GetRects(max(start-acc, 0), min(end-acc, n)) {
				out = append(out, r.Offset(f.X, f.Y))
			}
		}
		acc += n
	}
	return out
}

func (fl frameList) documentPos(x, y float64) int {
	acc := 0
	for i, f := range fl {
		if y < f.Y+f.Height || i == len(fl)-1 {
			return acc + f.GetDocumentPos(x-f.X, y-f.Y)
		}
		acc += f.Len()
	}
	return 0
}

func (fl frameList) caretRect(pos int) types.Rect {
	i, off := fl.locate(pos)
	return fl[i].CaretRect(off).Offset(fl[i].X, fl[i].Y)
}
