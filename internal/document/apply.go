package document

import (
	"fmt"

	"github.com/bethropolis/scribe/internal/block"
	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/logger"
)

// batch is a contiguous run of blocks, by mirror index, touched by a change.
type batch struct {
	first, last int
	start, end  int
	blocks      []block.Block
}

// ApplyChanges applies a change record of any shape. Only the blocks the
// change touches are rebuilt: each contiguous run of them is serialized,
// composed with its part of the change and parsed again, then spliced in
// place and merged with its neighbours. The document is left untouched
// when an error is returned.
func (d *Document) ApplyChanges(change delta.Delta) (delta.Delta, error) {
	if change.Empty() {
		return change, nil
	}
	if n := change.BaseLength(); n > d.Length() {
		return delta.Delta{}, fmt.Errorf("%w: change covers %d of %d", ErrOutOfRange, n, d.Length())
	}

	batches := d.batches(change)
	hs := append([]Handle(nil), d.handles()...)
	for _, bt := range batches {
		old := delta.New()
		for _, h := range hs[bt.first : bt.last+1] {
			for _, op := range d.blockOf(h).ToOp(true) {
				old.Push(op)
			}
		}
		part := window(change, bt.start, bt.end, bt.last == len(hs)-1)
		blocks, err := parseBlocks(old.Compose(part).Ops)
		if err != nil {
			return delta.Delta{}, fmt.Errorf("apply change to %d..%d: %w", bt.start, bt.end, err)
		}
		bt.blocks = blocks
	}
	remaining := len(hs)
	for _, bt := range batches {
		remaining += len(bt.blocks) - (bt.last - bt.first + 1)
	}
	if remaining == 0 {
		return delta.Delta{}, ErrMissingTerminator
	}

	lists := map[string]bool{}
	collect := func(b block.Block) {
		if li, ok := b.(*block.ListItem); ok {
			lists[li.ListID()] = true
		}
	}
	// Later runs first, so the handles of earlier runs stay valid.
	for i := len(batches) - 1; i >= 0; i-- {
		bt := batches[i]
		firstH, lastH := hs[bt.first], hs[bt.last]
		prev, next := d.nodes[firstH].prev, d.nodes[lastH].next
		for h := firstH; ; {
			after := d.nodes[h].next
			collect(d.blockOf(h))
			d.release(h)
			if h == lastH {
				break
			}
			h = after
		}

		at := prev
		pos := bt.start
		for _, b := range bt.blocks {
			collect(b)
			h := d.alloc(b)
			d.linkAfter(at, h)
			b.Base().SetStart(pos, false, false, false)
			pos += b.Base().Len()
			at = h
		}
		if next != noHandle {
			d.blockOf(next).Base().SetStart(pos, true, true, false)
		}

		d.mergeRun(prev, next)
		logger.DebugTagf("apply", "rebuilt blocks %d..%d as %d blocks", bt.first, bt.last, len(bt.blocks))
	}

	for id := range lists {
		d.markList(id)
	}
	d.mustCheck("ApplyChanges")
	d.changed(change)
	return change, nil
}

// batches groups the blocks change touches into contiguous runs. A block is
// touched by an insert at a position it holds, by a delete or a formatting
// retain overlapping it, and by the deletion of the terminator closing the
// block before it.
func (d *Document) batches(change delta.Delta) []*batch {
	hs := d.handles()
	touched := make([]bool, len(hs))
	// touch marks the blocks overlapping [from, to). With joins, removing a
	// block's closing terminator also touches the block after it.
	touch := func(from, to int, joins bool) {
		for i := d.indexAt(from); i < len(hs); i++ {
			base := d.blockOf(hs[i]).Base()
			if base.Start() >= to {
				break
			}
			touched[i] = true
			if joins && to >= base.End() && i+1 < len(hs) {
				touched[i+1] = true
			}
		}
	}
	pos := 0
	for _, op := range change.Ops {
		switch op.Kind() {
		case delta.KindInsert:
			touched[d.indexAt(pos)] = true
		case delta.KindDelete:
			touch(pos, pos+op.Delete, true)
			pos += op.Delete
		default:
			if len(op.Attributes) > 0 {
				touch(pos, pos+op.Retain, false)
			}
			pos += op.Retain
		}
	}

	// A headless terminator reads as a continuation line of a quote, list
	// item or code block before it, so runs take in that block and any
	// headless paragraphs after them.
	orig := append([]bool(nil), touched...)
	for i := 1; i < len(hs); i++ {
		if orig[i] && continuing(d.blockOf(hs[i-1])) {
			touched[i-1] = true
		}
	}
	for i := 0; i+1 < len(hs); i++ {
		if touched[i] && headless(d.blockOf(hs[i+1])) {
			touched[i+1] = true
		}
	}

	var out []*batch
	for i := 0; i < len(hs); i++ {
		if !touched[i] {
			continue
		}
		j := i
		for j+1 < len(hs) && touched[j+1] {
			j++
		}
		out = append(out, &batch{
			first: i,
			last:  j,
			start: d.blockOf(hs[i]).Base().Start(),
			end:   d.blockOf(hs[j]).Base().End(),
		})
		i = j
	}
	return out
}

func continuing(b block.Block) bool {
	switch b.(type) {
	case *block.Quote, *block.ListItem, *block.Code:
		return true
	}
	return false
}

func headless(b block.Block) bool {
	p, ok := b.(*block.Paragraph)
	return ok && p.Frames()[0].Headless()
}

// window returns the part of change acting on base positions [start, end),
// rebased to start. Inserts at end are included only with includeEnd.
func window(change delta.Delta, start, end int, includeEnd bool) delta.Delta {
	out := delta.New()
	it := delta.NewIterator(change.Ops)
	pos := 0
	for it.HasNext() && pos <= end {
		if it.PeekKind() == delta.KindInsert {
			op := it.Next(0)
			if pos >= start && (pos < end || (includeEnd && pos == end)) {
				out.Push(op)
			}
			continue
		}
		n := it.PeekLength()
		switch {
		case pos < start:
			n = min(n, start-pos)
		case pos < end:
			n = min(n, end-pos)
		}
		op := it.Next(n)
		if pos >= start && pos < end {
			out.Push(op)
		}
		pos += n
	}
	return *out.Chop()
}

// mergeRun merges neighbours from prev through next, both included.
func (d *Document) mergeRun(prev, next Handle) {
	h := prev
	if h == noHandle {
		h = d.head
	}
	stop := noHandle
	if next != noHandle {
		stop = d.nodes[next].next
	}
	for h != noHandle && d.nodes[h].next != stop {
		if !d.tryMerge(h, d.nodes[h].next) {
			h = d.nodes[h].next
		}
	}
}

// tryMerge folds b into a when a accepts it. Incompatible neighbours are
// left alone.
func (d *Document) tryMerge(a, b Handle) bool {
	if a == noHandle || b == noHandle {
		return false
	}
	ba, bb := d.blockOf(a), d.blockOf(b)
	if !ba.CanMerge(bb) {
		return false
	}
	ba.Merge(bb)
	d.release(b)
	logger.DebugTagf("apply", "merged %s block %s into %s", bb.Tag(), bb.Base().Key(), ba.Base().Key())
	return true
}
