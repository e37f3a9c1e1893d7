package document

import (
	"fmt"
	"strings"

	"github.com/bethropolis/scribe/internal/block"
	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/fragment"
	"github.com/bethropolis/scribe/internal/types"
	"github.com/bethropolis/scribe/internal/utils"
	"github.com/google/uuid"
)

// editFunc edits one block with positions local to it. A returned block is
// linked in right after the edited one.
type editFunc func(b block.Block, m *block.Mutation) block.Block

// edit runs fn on the blocks first through last and returns the change, as
// a diff of their ops before and after, shifted to their start.
func (d *Document) edit(op string, first, last Handle, fn editFunc) (delta.Delta, error) {
	start := d.blockOf(first).Base().Start()
	var targets []Handle
	for h := first; ; h = d.nodes[h].next {
		targets = append(targets, h)
		if h == last {
			break
		}
	}
	after := d.nodes[last].next

	before := delta.New()
	for _, h := range targets {
		for _, o := range d.blockOf(h).ToOp(false) {
			before.Push(o)
		}
	}

	m := &block.Mutation{}
	for _, h := range targets {
		if added := fn(d.blockOf(h), m); added != nil {
			nh := d.alloc(added)
			d.linkAfter(h, nh)
		}
	}

	result := delta.New()
	pos := start
	for h := first; h != after; h = d.nodes[h].next {
		b := d.blockOf(h)
		b.Base().SetStart(pos, false, false, false)
		pos += b.Base().Len()
		for _, o := range b.ToOp(false) {
			result.Push(o)
		}
	}
	if after != noHandle {
		d.blockOf(after).Base().SetStart(pos, true, true, false)
	}
	d.consume(m)

	diff, err := before.Diff(*result)
	if err != nil {
		return delta.Delta{}, fmt.Errorf("%s: %w", op, err)
	}
	change := delta.New().Retain(start, nil)
	for _, o := range diff.Ops {
		change.Push(o)
	}
	change.Chop()
	d.mustCheck(op)
	d.changed(*change)
	return *change, nil
}

func (d *Document) editAt(op string, pos int, fn func(b block.Block, m *block.Mutation, local int) block.Block) (delta.Delta, error) {
	h := d.handleAt(pos)
	return d.edit(op, h, h, func(b block.Block, m *block.Mutation) block.Block {
		return fn(b, m, pos-b.Base().Start())
	})
}

// InsertText inserts text at pos. Newlines in text break the block as
// InsertEnter does. Inserting past the last terminator or an empty string
// is a no-op.
func (d *Document) InsertText(pos types.DocPos, text string, attrs delta.AttributeMap) (delta.Delta, error) {
	p := pos.Flatten()
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text == "" || p < 0 || p >= d.Length() {
		return delta.Delta{}, nil
	}
	if strings.Contains(text, "\n") {
		return d.insertLines(p, text, attrs)
	}
	return d.editAt("InsertText", p, func(b block.Block, m *block.Mutation, local int) block.Block {
		b.InsertText(m, local, text, attrs)
		return nil
	})
}

func (d *Document) insertLines(p int, text string, attrs delta.AttributeMap) (delta.Delta, error) {
	total := delta.Delta{}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			c, err := d.InsertText(types.Pos(p), line, attrs)
			if err != nil {
				return total, err
			}
			total = total.Compose(c)
			p += utils.RuneLen(line)
		}
		if i < len(lines)-1 {
			c, err := d.InsertEnter(types.Pos(p))
			if err != nil {
				return total, err
			}
			total = total.Compose(c)
			p++
		}
	}
	return total, nil
}

// InsertEnter breaks the content at pos. Paragraphs and list items split
// into two blocks; quotes, code blocks and table cells gain a line.
func (d *Document) InsertEnter(pos types.DocPos) (delta.Delta, error) {
	p := pos.Flatten()
	if p < 0 || p >= d.Length() {
		return delta.Delta{}, nil
	}
	return d.editAt("InsertEnter", p, func(b block.Block, m *block.Mutation, local int) block.Block {
		return b.InsertEnter(m, local)
	})
}

// InsertFragment inserts an embed such as an image or a date at pos.
func (d *Document) InsertFragment(pos types.DocPos, frag fragment.Fragment) (delta.Delta, error) {
	p := pos.Flatten()
	if frag == nil || p < 0 || p >= d.Length() {
		return delta.Delta{}, nil
	}
	if frag.Kind() == fragment.KindEnd {
		return delta.Delta{}, fmt.Errorf("%w: terminators are inserted with InsertEnter", ErrMalformed)
	}
	return d.editAt("InsertFragment", p, func(b block.Block, m *block.Mutation, local int) block.Block {
		b.InsertFragment(m, local, frag)
		return nil
	})
}

// Delete removes r. A collapsed range with forward set deletes the unit
// before it (backspace); at the start of a block that joins the block into
// the one before, which keeps its format. The final terminator and table
// cell boundaries are never removed.
func (d *Document) Delete(r types.Range, forward bool) (delta.Delta, error) {
	s, e := r.Offsets()
	if s == e {
		if !forward || s <= 0 || s >= d.Length() {
			return delta.Delta{}, nil
		}
		h := d.handleAt(s)
		if local := s - d.blockOf(h).Base().Start(); local > 0 {
			return d.edit("Delete", h, h, func(b block.Block, m *block.Mutation) block.Block {
				b.Delete(m, local, local, true)
				return nil
			})
		}
		return d.joinBackward(h)
	}

	s, e = max(s, 0), min(e, d.Length()-1)
	if s >= e {
		return delta.Delta{}, nil
	}
	h := d.handleAt(s)
	if b := d.blockOf(h); e < b.Base().End() {
		start := b.Base().Start()
		return d.edit("Delete", h, h, func(b block.Block, m *block.Mutation) block.Block {
			b.Delete(m, s-start, e-start, false)
			return nil
		})
	}
	change := d.protectedDelete(s, e)
	if change.Empty() {
		return change, nil
	}
	return d.ApplyChanges(change)
}

// joinBackward removes the terminator before the block at h and gives the
// joined line the format of the line it joined.
func (d *Document) joinBackward(h Handle) (delta.Delta, error) {
	prev := d.nodes[h].prev
	if prev == noHandle {
		return delta.Delta{}, nil
	}
	cur, before := d.blockOf(h), d.blockOf(prev)
	if _, ok := cur.(*block.Table); ok {
		return delta.Delta{}, nil
	}
	if _, ok := before.(*block.Table); ok {
		return delta.Delta{}, nil
	}

	prevOps := before.ToOp(false)
	prevEnd := prevOps[len(prevOps)-1].Attributes
	firstLen := 0
	var curEnd delta.AttributeMap
	for _, op := range cur.ToOp(false) {
		firstLen += op.Len()
		if op.IsTerminator() {
			curEnd = op.Attributes
			break
		}
	}

	pos := cur.Base().Start()
	change := delta.New().Retain(pos-1, nil).Delete(1)
	at := pos
	if diff := delta.DiffAttributes(curEnd, prevEnd); len(diff) > 0 {
		change.Retain(firstLen-1, nil).Retain(1, diff)
		at += firstLen
	}
	d.pinHeader(change, at, pos+firstLen)
	return d.ApplyChanges(*change)
}

// protectedDelete builds the change deleting [s, e) except for positions
// that must survive: the terminators of a table the range only partly
// covers, and the terminator just before such a table.
func (d *Document) protectedDelete(s, e int) delta.Delta {
	keep := map[int]bool{}
	for h := d.handleAt(s); h != noHandle; h = d.nodes[h].next {
		b := d.blockOf(h)
		start, end := b.Base().Start(), b.Base().End()
		if start >= e {
			break
		}
		t, ok := b.(*block.Table)
		if !ok || (s <= start && e >= end) {
			continue
		}
		acc := start
		for _, f := range t.Frames() {
			acc += f.Len()
			keep[acc-1] = true
		}
		keep[start-1] = true
	}

	change := delta.New().Retain(s, nil)
	deleted := false
	for p := s; p < e; p++ {
		if keep[p] {
			change.Retain(1, nil)
		} else {
			change.Delete(1)
			deleted = true
		}
	}
	if deleted {
		d.pinHeader(change, e, e)
	}
	return *change.Chop()
}

// pinHeader extends change, whose base cursor is at cur, so the frame holding
// pos keeps its block: a terminator written without a header continues
// whatever block precedes it, so it gets the header of the block owning it.
func (d *Document) pinHeader(change *delta.Delta, cur, pos int) {
	if pos < cur || pos >= d.Length() {
		return
	}
	b, _ := d.BlockAt(pos)
	switch b.(type) {
	case *block.Paragraph, *block.Quote, *block.Code:
	default:
		return
	}
	acc := b.Base().Start()
	for i, f := range b.Frames() {
		acc += f.Len()
		if pos >= acc {
			continue
		}
		// Quote and code blocks always head their first frame.
		if f.Headless() && (i > 0 || b.Tag() == delta.BlockPara) {
			change.Retain(acc-1-cur, nil).Retain(1, b.Attributes())
		}
		return
	}
}

// Format applies attrs to r. Inline and paragraph attributes format the
// frames in place; block attributes go on the terminators of every line in
// the range, which may change block types. A list format without a listId
// starts a new list.
func (d *Document) Format(r types.Range, attrs delta.AttributeMap) (delta.Delta, error) {
	s, e := r.Offsets()
	if len(attrs) == 0 || s < 0 || s >= d.Length() {
		return delta.Delta{}, nil
	}
	e = min(e, d.Length())

	total := delta.Delta{}
	if inline := attrs.Without(block.Keys...); len(inline) > 0 {
		c, err := d.formatBlocks("Format", s, e, func(b block.Block, m *block.Mutation, lo, hi int) {
			b.Format(m, lo, hi, inline)
		})
		if err != nil {
			return total, err
		}
		total = total.Compose(c)
	}
	if structural := attrs.Only(block.Keys...).Without("key"); len(structural) > 0 {
		c, err := d.formatStructure(s, e, structural)
		if err != nil {
			return total, err
		}
		total = total.Compose(c)
	}
	return total, nil
}

// ClearFormat removes inline and paragraph attributes from r.
func (d *Document) ClearFormat(r types.Range) (delta.Delta, error) {
	s, e := r.Offsets()
	if s < 0 || s >= d.Length() {
		return delta.Delta{}, nil
	}
	return d.formatBlocks("ClearFormat", s, min(e, d.Length()), func(b block.Block, m *block.Mutation, lo, hi int) {
		b.ClearFormat(m, lo, hi)
	})
}

// formatBlocks runs fn on every block overlapping [s, e) with the range
// clipped to it. A collapsed range reaches the block holding s.
func (d *Document) formatBlocks(op string, s, e int, fn func(b block.Block, m *block.Mutation, lo, hi int)) (delta.Delta, error) {
	first := d.handleAt(s)
	last := first
	if e > s {
		last = d.handleAt(e - 1)
	}
	return d.edit(op, first, last, func(b block.Block, m *block.Mutation) block.Block {
		start := b.Base().Start()
		fn(b, m, max(s-start, 0), min(e-start, b.Base().Len()))
		return nil
	})
}

// blockKeys lists the block attributes each block type keeps.
var blockKeys = map[string][]string{
	delta.BlockList: {"list", "listId", "indent"},
	delta.BlockCode: {"lang"},
}

func (d *Document) formatStructure(s, e int, attrs delta.AttributeMap) (delta.Delta, error) {
	attrs = attrs.Clone()
	tag := attrs.String(delta.AttrBlock)
	if tag == delta.BlockList {
		if attrs.String("listId") == "" {
			attrs["listId"] = uuid.NewString()
		}
		if attrs.String("list") == "" {
			attrs["list"] = block.ListDecimal
		}
	}
	if tag == delta.BlockTable {
		return delta.Delta{}, fmt.Errorf("%w: tables are inserted with InsertBlock", ErrMalformed)
	}
	if tag != "" {
		for _, k := range []string{"list", "listId", "indent", "lang"} {
			if _, ok := attrs[k]; !ok {
				attrs[k] = nil
			}
		}
	}

	change := delta.New()
	cur := 0
	hi := max(e, s+1)
	for h := d.handleAt(s); h != noHandle; h = d.nodes[h].next {
		b := d.blockOf(h)
		start := b.Base().Start()
		if start >= hi {
			break
		}
		if _, ok := b.(*block.Table); ok {
			continue
		}
		apply := attrs
		if tag == "" {
			apply = attrs.Only(blockKeys[b.Tag()]...)
			if len(apply) == 0 {
				continue
			}
		}
		acc := start
		for _, f := range b.Frames() {
			fs := acc
			acc += f.Len()
			if acc <= s || fs >= hi {
				continue
			}
			change.Retain(acc-1-cur, nil).Retain(1, apply)
			cur = acc
		}
	}
	if tag != "" && cur > 0 {
		d.pinHeader(change, cur, cur)
	}
	change.Chop()
	if change.Empty() {
		return delta.Delta{}, nil
	}
	return d.ApplyChanges(*change)
}

// InsertBlock inserts b before the block holding pos, or after it when pos
// is inside that block.
func (d *Document) InsertBlock(pos types.DocPos, b block.Block) (delta.Delta, error) {
	p := pos.Flatten()
	if b == nil || p < 0 || p >= d.Length() {
		return delta.Delta{}, nil
	}
	host, local := d.BlockAt(p)
	at := host.Base().Start()
	if local > 0 {
		at = host.Base().End()
	}
	change := delta.New().Retain(at, nil)
	for _, op := range b.ToOp(false) {
		change.Push(op)
	}
	d.pinHeader(change, at, at)
	return d.ApplyChanges(*change)
}

// ResizeTableColumn sets the width of column col of the table holding pos.
func (d *Document) ResizeTableColumn(pos types.DocPos, col int, width float64) (delta.Delta, error) {
	return d.editTable("ResizeTableColumn", pos, func(t *block.Table) { t.SetColumnWidth(col, width) })
}

// ResizeTableRow sets the minimum height of row row of the table holding pos.
func (d *Document) ResizeTableRow(pos types.DocPos, row int, height float64) (delta.Delta, error) {
	return d.editTable("ResizeTableRow", pos, func(t *block.Table) { t.SetRowHeight(row, height) })
}

func (d *Document) editTable(op string, pos types.DocPos, fn func(t *block.Table)) (delta.Delta, error) {
	p := pos.Flatten()
	if p < 0 || p >= d.Length() {
		return delta.Delta{}, nil
	}
	h := d.handleAt(p)
	if _, ok := d.blockOf(h).(*block.Table); !ok {
		return delta.Delta{}, nil
	}
	return d.edit(op, h, h, func(b block.Block, _ *block.Mutation) block.Block {
		fn(b.(*block.Table))
		return nil
	})
}
