// Package document holds an ordered list of blocks and is the only entry
// point for editing them. Every edit returns the change record it made.
package document

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bethropolis/scribe/internal/block"
	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/event"
	"github.com/bethropolis/scribe/internal/logger"
	"github.com/bethropolis/scribe/internal/measure"
	"github.com/google/uuid"
)

var (
	// ErrUnknownBlock is returned when a terminator names an unregistered block type.
	ErrUnknownBlock = block.ErrUnknownBlock
	// ErrMissingTerminator is returned when content is not closed by a terminator.
	ErrMissingTerminator = errors.New("document: content after the last terminator")
	// ErrMalformed is returned for op streams that cannot describe a document.
	ErrMalformed = errors.New("document: malformed change")
	// ErrOutOfRange is returned when a change addresses past the document end.
	ErrOutOfRange = errors.New("document: change exceeds document length")
)

// Handle addresses a block slot in the document arena.
type Handle int

const noHandle Handle = -1

type node struct {
	block      block.Block
	prev, next Handle
}

// Options configures a document. A nil Measurer defaults to a one-pixel cell measurer.
type Options struct {
	Measurer  measure.Measurer
	Scheduler measure.Scheduler
	Tokenizer block.Tokenizer
	Styler    block.Styler
	Events    *event.Manager
	Width     float64
	// Strict checks the offset invariants after every edit and panics when
	// they break.
	Strict bool
}

// Document is an arena of blocks linked in document order, with a mirror
// ordered by start offset for lookups.
type Document struct {
	nodes []node
	free  []Handle
	head  Handle
	tail  Handle
	byKey map[string]Handle

	mirror      []Handle
	mirrorStale bool

	opts      Options
	layoutEnv *block.Env
	width     float64
	height    float64
}

// New returns a document holding one empty paragraph.
func New(opts Options) *Document {
	if opts.Measurer == nil {
		opts.Measurer = measure.NewCellMeasurer(1, 1)
	}
	d := &Document{opts: opts, width: opts.Width}
	d.reset([]block.Block{block.NewParagraph(nil)})
	return d
}

// FromDelta builds a document from a change record of inserts.
func FromDelta(change delta.Delta, opts Options) (*Document, error) {
	d := New(opts)
	if err := d.ReadFromChanges(change); err != nil {
		return nil, err
	}
	return d, nil
}

// ReadFromChanges replaces the content with the blocks change describes.
func (d *Document) ReadFromChanges(change delta.Delta) error {
	if !change.IsDocument() {
		return fmt.Errorf("%w: retain or delete in document content", ErrMalformed)
	}
	blocks, err := parseBlocks(change.Ops)
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		return ErrMissingTerminator
	}
	d.reset(blocks)
	logger.DebugTagf("edit", "read %d blocks, length %d", len(blocks), d.Length())
	return nil
}

func (d *Document) reset(blocks []block.Block) {
	d.nodes = d.nodes[:0]
	d.free = d.free[:0]
	d.head, d.tail = noHandle, noHandle
	d.byKey = make(map[string]Handle, len(blocks))
	start := 0
	for _, b := range blocks {
		h := d.alloc(b)
		d.linkAfter(d.tail, h)
		b.Base().SetStart(start, false, false, false)
		start += b.Base().Len()
	}
	d.mirrorStale = true
}

// alloc stores b in a free slot and links it to the document.
func (d *Document) alloc(b block.Block) Handle {
	base := b.Base()
	if key := base.Key(); key != "" {
		if _, taken := d.byKey[key]; taken {
			base.SetKey(uuid.NewString())
		}
	}
	key := base.EnsureKey()
	base.SetChain(d)
	base.SetMaxWidth(d.width)
	base.MarkDirty()

	var h Handle
	if n := len(d.free); n > 0 {
		h = d.free[n-1]
		d.free = d.free[:n-1]
		d.nodes[h] = node{block: b, prev: noHandle, next: noHandle}
	} else {
		h = Handle(len(d.nodes))
		d.nodes = append(d.nodes, node{block: b, prev: noHandle, next: noHandle})
	}
	d.byKey[key] = h
	return h
}

// release unlinks h and frees its slot.
func (d *Document) release(h Handle) {
	d.unlink(h)
	delete(d.byKey, d.nodes[h].block.Base().Key())
	d.nodes[h] = node{prev: noHandle, next: noHandle}
	d.free = append(d.free, h)
	d.mirrorStale = true
}

// linkAfter inserts h after prev, or at the head when prev is noHandle.
func (d *Document) linkAfter(prev, h Handle) {
	n := &d.nodes[h]
	n.prev = prev
	if prev == noHandle {
		n.next = d.head
		d.head = h
	} else {
		n.next = d.nodes[prev].next
		d.nodes[prev].next = h
	}
	if n.next == noHandle {
		d.tail = h
	} else {
		d.nodes[n.next].prev = h
	}
	d.mirrorStale = true
}

func (d *Document) unlink(h Handle) {
	n := &d.nodes[h]
	if n.prev == noHandle {
		d.head = n.next
	} else {
		d.nodes[n.prev].next = n.next
	}
	if n.next == noHandle {
		d.tail = n.prev
	} else {
		d.nodes[n.next].prev = n.prev
	}
	n.prev, n.next = noHandle, noHandle
	d.mirrorStale = true
}

// Prev returns the block before the one keyed key.
func (d *Document) Prev(key string) block.Block {
	h, ok := d.byKey[key]
	if !ok || d.nodes[h].prev == noHandle {
		return nil
	}
	return d.nodes[d.nodes[h].prev].block
}

// Next returns the block after the one keyed key.
func (d *Document) Next(key string) block.Block {
	h, ok := d.byKey[key]
	if !ok || d.nodes[h].next == noHandle {
		return nil
	}
	return d.nodes[d.nodes[h].next].block
}

// handles returns the start-ordered mirror, rebuilding it after splices.
func (d *Document) handles() []Handle {
	if d.mirrorStale {
		d.mirror = d.mirror[:0]
		for h := d.head; h != noHandle; h = d.nodes[h].next {
			d.mirror = append(d.mirror, h)
		}
		d.mirrorStale = false
	}
	return d.mirror
}

func (d *Document) blockOf(h Handle) block.Block { return d.nodes[h].block }

// indexAt returns the mirror index of the block holding pos. Positions at
// or past the end resolve to the last block.
func (d *Document) indexAt(pos int) int {
	hs := d.handles()
	i := sort.Search(len(hs), func(i int) bool {
		return d.blockOf(hs[i]).Base().End() > pos
	})
	return min(i, len(hs)-1)
}

func (d *Document) handleAt(pos int) Handle {
	return d.handles()[d.indexAt(pos)]
}

// Length is the stream length of the document.
func (d *Document) Length() int {
	if d.tail == noHandle {
		return 0
	}
	return d.blockOf(d.tail).Base().End()
}

// Blocks returns the blocks in document order.
func (d *Document) Blocks() []block.Block {
	hs := d.handles()
	out := make([]block.Block, len(hs))
	for i, h := range hs {
		out[i] = d.blockOf(h)
	}
	return out
}

// BlockAt returns the block holding pos and the offset into it.
func (d *Document) BlockAt(pos int) (block.Block, int) {
	b := d.blockOf(d.handleAt(pos))
	return b, pos - b.Base().Start()
}

// BlockByKey looks a block up by key.
func (d *Document) BlockByKey(key string) block.Block {
	if h, ok := d.byKey[key]; ok {
		return d.blockOf(h)
	}
	return nil
}

// Text is the plain text with one newline per frame.
func (d *Document) Text() string {
	var b strings.Builder
	for h := d.head; h != noHandle; h = d.nodes[h].next {
		b.WriteString(d.blockOf(h).Text())
	}
	return b.String()
}

func (d *Document) toDelta(withKey bool) delta.Delta {
	out := delta.New()
	for h := d.head; h != noHandle; h = d.nodes[h].next {
		for _, op := range d.blockOf(h).ToOp(withKey) {
			out.Push(op)
		}
	}
	return *out
}

// ToDelta serializes the document as a change record of inserts.
func (d *Document) ToDelta() delta.Delta { return d.toDelta(false) }

// ToKeyedDelta is ToDelta with each block's key on its first terminator.
func (d *Document) ToKeyedDelta() delta.Delta { return d.toDelta(true) }

// CheckInvariants verifies the sibling links, the start offset chain and
// the lookup mirror.
func (d *Document) CheckInvariants() error {
	expect := 0
	prev := noHandle
	count := 0
	for h := d.head; h != noHandle; h = d.nodes[h].next {
		n := d.nodes[h]
		if n.prev != prev {
			return fmt.Errorf("document: block %d links back to %d, want %d", h, n.prev, prev)
		}
		base := n.block.Base()
		if base.Start() != expect {
			return fmt.Errorf("document: block %d (%s) starts at %d, want %d", count, n.block.Tag(), base.Start(), expect)
		}
		sum := 0
		for _, f := range n.block.Frames() {
			sum += f.Len()
		}
		if sum != base.Len() {
			return fmt.Errorf("document: block %d (%s) has length %d, frames hold %d", count, n.block.Tag(), base.Len(), sum)
		}
		if got := d.byKey[base.Key()]; got != h {
			return fmt.Errorf("document: key %s maps to %d, want %d", base.Key(), got, h)
		}
		expect += base.Len()
		prev = h
		count++
	}
	if prev != d.tail {
		return fmt.Errorf("document: tail is %d, want %d", d.tail, prev)
	}
	if hs := d.handles(); len(hs) != count {
		return fmt.Errorf("document: mirror holds %d blocks, list %d", len(hs), count)
	}
	if count == 0 {
		return ErrMissingTerminator
	}
	return nil
}

func (d *Document) mustCheck(op string) {
	if !d.opts.Strict {
		return
	}
	if err := d.CheckInvariants(); err != nil {
		panic(fmt.Sprintf("%s broke the document: %v", op, err))
	}
}

func (d *Document) dispatch(t event.Type, data interface{}) {
	d.opts.Events.Dispatch(t, data)
}

func (d *Document) changed(change delta.Delta) {
	if change.Empty() {
		return
	}
	logger.DebugTagf("edit", "change %v", change)
	d.dispatch(event.TypeContentChanged, event.ContentChangedData{Change: change})
}

// markList marks every item of a list for layout, so numbering is redone.
func (d *Document) markList(id string) {
	for h := d.head; h != noHandle; h = d.nodes[h].next {
		if li, ok := d.blockOf(h).(*block.ListItem); ok && li.ListID() == id {
			li.MarkDirty()
		}
	}
}

func (d *Document) consume(m *block.Mutation) {
	for _, id := range m.ListIDs() {
		d.markList(id)
	}
	for _, msg := range m.Messages {
		if r, ok := msg.(block.Redraw); ok {
			d.dispatch(event.TypeRedrawRequested, event.RedrawRequestedData{Key: r.Key})
		}
	}
}
