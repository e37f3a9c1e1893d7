package document

import (
	"context"
	"sort"

	"github.com/bethropolis/scribe/internal/block"
	"github.com/bethropolis/scribe/internal/event"
	"github.com/bethropolis/scribe/internal/fragment"
	"github.com/bethropolis/scribe/internal/frame"
	"github.com/bethropolis/scribe/internal/logger"
	"github.com/bethropolis/scribe/internal/types"
)

// env returns the layout environment. Idle tasks keep the pointer, so it is
// updated in place and later tasks see the current width and styler.
func (d *Document) env() *block.Env {
	if d.layoutEnv == nil {
		d.layoutEnv = &block.Env{
			Measurer:  d.opts.Measurer,
			Scheduler: d.opts.Scheduler,
			Chain:     d,
			Tokenizer: d.opts.Tokenizer,
			Redraw: func(b block.Block) {
				d.dispatch(event.TypeRedrawRequested, event.RedrawRequestedData{Key: b.Base().Key()})
			},
		}
	}
	d.layoutEnv.Width = d.width
	d.layoutEnv.Styler = d.opts.Styler
	return d.layoutEnv
}

// SetStyler switches the styler for code tokens. Every code block recolors
// on the next Layout.
func (d *Document) SetStyler(name string, s block.Styler) {
	d.opts.Styler = s
	n := 0
	for h := d.head; h != noHandle; h = d.nodes[h].next {
		if c, ok := d.blockOf(h).(*block.Code); ok {
			c.Restyle()
			n++
		}
	}
	if d.layoutEnv != nil {
		d.layoutEnv.Styler = s
	}
	logger.DebugTagf("code", "styler %q, %d code blocks to recolor", name, n)
	d.dispatch(event.TypeThemeChanged, event.ThemeChangedData{Name: name})
}

// SetWidth changes the wrap width. Blocks are laid out again on the next Layout.
func (d *Document) SetWidth(w float64) {
	if w == d.width {
		return
	}
	d.width = w
	for h := d.head; h != noHandle; h = d.nodes[h].next {
		d.blockOf(h).Base().SetMaxWidth(w)
	}
}

// Width is the wrap width.
func (d *Document) Width() float64 { return d.width }

// Layout lays out the blocks that need it and stacks every block
// vertically. It returns the number of blocks laid out; a second call with
// no edit in between lays out none.
func (d *Document) Layout() int {
	env := d.env()
	y := 0.0
	n := 0
	for h := d.head; h != noHandle; h = d.nodes[h].next {
		b := d.blockOf(h)
		if b.NeedLayout() {
			b.Layout(env)
			n++
		}
		base := b.Base()
		base.Y = y
		y += base.Height
	}
	moved := y != d.height
	d.height = y
	if n > 0 || moved {
		logger.DebugTagf("layout", "laid out %d blocks, height %.1f", n, y)
		d.dispatch(event.TypeLayoutChanged, event.LayoutChangedData{Height: y, Blocks: n})
	}
	return n
}

// ContentHeight is the height of all blocks after the last Layout.
func (d *Document) ContentHeight() float64 { return d.height }

// overlapping calls fn for every block overlapping [s, e), or the block
// holding s when the range is collapsed, with the range clipped to it.
func (d *Document) overlapping(s, e int, fn func(b block.Block, lo, hi int)) {
	if s < 0 || s >= d.Length() {
		return
	}
	for h := d.handleAt(s); h != noHandle; h = d.nodes[h].next {
		b := d.blockOf(h)
		start := b.Base().Start()
		if start >= e && !(s == e && start == s) {
			break
		}
		fn(b, max(s-start, 0), min(e-start, b.Base().Len()))
		if s == e {
			return
		}
	}
}

// GetFormat returns every value each attribute takes over r, inline and
// block attributes alike. More than one value means mixed formatting.
func (d *Document) GetFormat(r types.Range) map[string][]any {
	s, e := r.Offsets()
	out := map[string][]any{}
	d.overlapping(s, e, func(b block.Block, lo, hi int) {
		b.CollectFormat(lo, hi, out)
		frame.MergeFormat(out, b.Attributes())
	})
	return out
}

func shift(p types.DocPos, by int) types.DocPos {
	out := p.Clone()
	out.Index += by
	return out
}

// CorrectSelectionPos snaps r to selectable positions. A selection inside a
// table may become several ranges, one per row of the covered cells.
func (d *Document) CorrectSelectionPos(r types.Range) []types.Range {
	s, e := r.Offsets()
	if d.Length() == 0 {
		return nil
	}
	s = max(0, min(s, d.Length()))
	e = max(s, min(e, d.Length()))
	first, fl := d.BlockAt(s)
	last, ll := d.BlockAt(max(e-1, s))
	if first == last {
		var out []types.Range
		for _, c := range first.CorrectSelectionPos(fl, e-first.Base().Start()) {
			start := first.Base().Start()
			out = append(out, types.Range{Start: shift(c.Start, start), End: shift(c.End, start)})
		}
		return out
	}
	head := first.CorrectSelectionPos(fl, fl)
	tail := last.CorrectSelectionPos(ll+1, ll+1)
	return []types.Range{{
		Start: shift(head[0].Start, first.Base().Start()),
		End:   shift(tail[len(tail)-1].End, last.Base().Start()),
	}}
}

// GetSelectionRectangles returns the rectangles covering r in document
// coordinates.
func (d *Document) GetSelectionRectangles(r types.Range) []types.Rect {
	s, e := r.Offsets()
	var out []types.Rect
	if s >= e {
		return out
	}
	d.overlapping(s, e, func(b block.Block, lo, hi int) {
		for _, rect := range b.GetSelectionRectangles(lo, hi) {
			out = append(out, rect.Offset(0, b.Base().Y))
		}
	})
	return out
}

// GetDocumentPos returns the position under (x, y). Points outside the
// content clamp to the nearest block.
func (d *Document) GetDocumentPos(x, y float64) types.DocPos {
	hs := d.handles()
	i := sort.Search(len(hs), func(i int) bool {
		base := d.blockOf(hs[i]).Base()
		return base.Y+base.Height > y
	})
	i = min(i, len(hs)-1)
	b := d.blockOf(hs[i])
	return shift(b.GetDocumentPos(x, y-b.Base().Y), b.Base().Start())
}

// CaretRect is the caret rectangle at pos in document coordinates.
func (d *Document) CaretRect(pos types.DocPos) types.Rect {
	b, local := d.BlockAt(max(0, min(pos.Flatten(), d.Length()-1)))
	return b.CaretRect(local).Offset(0, b.Base().Y)
}

// ScheduleImageLoads starts loading every image that has not been loaded.
// Completions arrive through the scheduler; they mark the owning block for
// layout and request a redraw, and never edit the document.
func (d *Document) ScheduleImageLoads(ctx context.Context, loader fragment.ImageLoader) int {
	if d.opts.Scheduler == nil || loader == nil {
		return 0
	}
	n := 0
	for h := d.head; h != noHandle; h = d.nodes[h].next {
		b := d.blockOf(h)
		key := b.Base().Key()
		for _, f := range b.Frames() {
			for _, c := range f.Children() {
				img, ok := c.(*fragment.Image)
				if !ok {
					continue
				}
				f := f
				started := img.Load(ctx, loader, d.opts.Scheduler, func(img *fragment.Image) {
					f.Invalidate()
					if owner := d.BlockByKey(key); owner != nil {
						owner.Base().MarkDirty()
					}
					d.dispatch(event.TypeImageLoaded, event.ImageLoadedData{Key: key, Src: img.Src(), State: img.State().String()})
					d.dispatch(event.TypeRedrawRequested, event.RedrawRequestedData{Key: key})
				})
				if started {
					n++
				}
			}
		}
	}
	logger.DebugTagf("image", "scheduled %d image loads", n)
	return n
}
