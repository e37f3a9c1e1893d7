// Package block implements the structural units of a document: paragraphs,
// quotes, list items, tables and code blocks. Blocks own frames and address
// their content with offsets relative to their own start.
package block

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/frame"
	"github.com/bethropolis/scribe/internal/fragment"
	"github.com/bethropolis/scribe/internal/highlighter"
	"github.com/bethropolis/scribe/internal/measure"
	"github.com/bethropolis/scribe/internal/types"
	"github.com/google/uuid"
)

var (
	// ErrUnknownBlock is returned for a header terminator naming an unregistered block type.
	ErrUnknownBlock = errors.New("block: unknown block type")
	// ErrMalformed is returned when ops do not describe a well-formed block.
	ErrMalformed = errors.New("block: malformed ops")
)

// Keys are the terminator attributes that belong to blocks rather than frames.
var Keys = []string{
	delta.AttrBlock, "key",
	"list", "listId", "indent",
	"lang",
	"colWidths", "cell", "cellLine", "row", "rowHeight", "colspan", "rowspan",
}

// IsKey reports whether key is a block attribute.
func IsKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// splitAttrs separates a terminator's attributes into block and frame parts.
func splitAttrs(attrs delta.AttributeMap) (blockAttrs, frameAttrs delta.AttributeMap) {
	for k, v := range attrs {
		if k == delta.AttrFrag {
			continue
		}
		if IsKey(k) {
			if blockAttrs == nil {
				blockAttrs = delta.AttributeMap{}
			}
			blockAttrs[k] = v
		} else {
			if frameAttrs == nil {
				frameAttrs = delta.AttributeMap{}
			}
			frameAttrs[k] = v
		}
	}
	return blockAttrs, frameAttrs
}

// Block is one structural unit. Positions passed to a block are offsets from
// its start; geometry is relative to its top-left corner.
type Block interface {
	Tag() string
	Base() *Common

	ReadFromOps(ops []delta.Op) error
	ToOp(withKey bool) []delta.Op
	Attributes() delta.AttributeMap
	Text() string
	Frames() []*frame.Frame

	InsertText(m *Mutation, pos int, text string, attrs delta.AttributeMap)
	Delete(m *Mutation, start, end int, forward bool)
	// InsertEnter breaks the content at pos. Blocks that split into siblings
	// return the new block, which follows the receiver.
	InsertEnter(m *Mutation, pos int) Block
	InsertFragment(m *Mutation, pos int, frag fragment.Fragment)
	Format(m *Mutation, start, end int, attrs delta.AttributeMap)
	ClearFormat(m *Mutation, start, end int)
	CollectFormat(start, end int, into map[string][]any)

	CorrectSelectionPos(start, end int) []types.Range
	GetSelectionRectangles(start, end int) []types.Rect
	GetDocumentPos(x, y float64) types.DocPos
	CaretRect(pos int) types.Rect

	NeedLayout() bool
	Layout(env *Env)
	CanMerge(other Block) bool
	Merge(other Block)
}

// Chain links sibling blocks by key. The document implements it.
type Chain interface {
	Prev(key string) Block
	Next(key string) Block
}

// Tokenizer splits source code into styled tokens.
type Tokenizer interface {
	Tokenize(ctx context.Context, source []byte, lang string) ([]highlighter.Token, error)
}

// Styler maps a token style name to fragment attributes.
type Styler interface {
	Attributes(name string) delta.AttributeMap
}

// Env carries what layout needs from the document.
type Env struct {
	Measurer  measure.Measurer
	Scheduler measure.Scheduler
	Width     float64
	Chain     Chain
	Tokenizer Tokenizer
	Styler    Styler
	// Redraw is called when deferred work changed what a block displays.
	Redraw func(b Block)
}

func (e *Env) redraw(b Block) {
	if e.Redraw != nil {
		e.Redraw(b)
	}
}

// Constructor returns an empty block of one type.
type Constructor func() Block

var registry = struct {
	sync.RWMutex
	constructors map[string]Constructor
}{constructors: map[string]Constructor{}}

// Register installs the constructor for a block tag.
func Register(tag string, c Constructor) {
	registry.Lock()
	defer registry.Unlock()
	registry.constructors[tag] = c
}

// Lookup returns the constructor for tag.
func Lookup(tag string) (Constructor, bool) {
	registry.RLock()
	defer registry.RUnlock()
	c, ok := registry.constructors[tag]
	return c, ok
}

func init() {
	Register(delta.BlockPara, func() Block { return &Paragraph{} })
	Register(delta.BlockQuote, func() Block { return &Quote{} })
	Register(delta.BlockList, func() Block { return &ListItem{} })
	Register(delta.BlockTable, func() Block { return &Table{} })
	Register(delta.BlockCode, func() Block { return &Code{} })
}

// New builds a block of the given tag from its ops.
func New(tag string, ops []delta.Op) (Block, error) {
	c, ok := Lookup(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlock, tag)
	}
	b := c()
	if err := b.ReadFromOps(ops); err != nil {
		return nil, fmt.Errorf("read %s block: %w", tag, err)
	}
	return b, nil
}

// Common is the state shared by every block variant.
type Common struct {
	frames frameList

	key        string
	start      int
	length     int
	needLayout bool
	width      float64

	Y      float64
	Height float64

	chain Chain
}

// Key identifies the block for its lifetime.
func (b *Common) Key() string { return b.key }

// EnsureKey assigns a fresh key if the block has none.
func (b *Common) EnsureKey() string {
	if b.key == "" {
		b.key = uuid.NewString()
	}
	return b.key
}

// SetKey replaces the block key.
func (b *Common) SetKey(key string) { b.key = key }

// Start is the block's absolute offset in the document.
func (b *Common) Start() int { return b.start }

// Len is the block's stream length, terminators included.
func (b *Common) Len() int { return b.length }

// End is the offset just past the block.
func (b *Common) End() int { return b.start + b.length }

// SetChain links the block to its siblings.
func (b *Common) SetChain(c Chain) { b.chain = c }

// SetStart moves the block to value. With propagate the next sibling shifts
// by the same amount; recursive keeps walking to the last sibling. With
// cascade every shifted sibling is marked for layout.
func (b *Common) SetStart(value int, propagate, recursive, cascade bool) {
	d := value - b.start
	b.start = value
	if !propagate || d == 0 || b.chain == nil {
		return
	}
	for n := b.chain.Next(b.key); n != nil; n = b.chain.Next(n.Base().key) {
		nb := n.Base()
		nb.start += d
		if cascade {
			nb.needLayout = true
		}
		if !recursive {
			return
		}
	}
}

// MarkDirty forces the next layout.
func (b *Common) MarkDirty() { b.needLayout = true }

// SetMaxWidth sets the layout width.
func (b *Common) SetMaxWidth(w float64) {
	if b.width != w {
		b.width = w
		b.needLayout = true
	}
}

// Frames returns the block's frames in order.
func (b *Common) Frames() []*frame.Frame { return b.frames }

func (b *Common) NeedLayout() bool {
	if b.needLayout {
		return true
	}
	for _, f := range b.frames {
		if f.NeedLayout() {
			return true
		}
	}
	return false
}

func (b *Common) Text() string { return b.frames.text() }

func (b *Common) updateLength() { b.length = b.frames.length() }

// changed records a content edit.
func (b *Common) changed() {
	b.updateLength()
	b.needLayout = true
}

func (b *Common) Base() *Common { return b }

func (b *Common) InsertText(_ *Mutation, pos int, text string, attrs delta.AttributeMap) {
	b.frames.insertText(pos, text, attrs)
	b.changed()
}

func (b *Common) Delete(_ *Mutation, start, end int, forward bool) {
	b.frames.delete(start, end, forward)
	b.changed()
}

func (b *Common) InsertFragment(_ *Mutation, pos int, frag fragment.Fragment) {
	b.frames.insertFragment(pos, frag)
	b.changed()
}

func (b *Common) Format(_ *Mutation, start, end int, attrs delta.AttributeMap) {
	b.frames.format(start, end, attrs)
	b.changed()
}

func (b *Common) ClearFormat(m *Mutation, start, end int) {
	b.frames.format(start, end, clearAttrs())
	b.changed()
}

func (b *Common) CollectFormat(start, end int, into map[string][]any) {
	b.frames.collectFormat(start, end, into)
}

func (b *Common) CorrectSelectionPos(start, end int) []types.Range {
	s, e := b.frames.snap(start, end)
	return []types.Range{types.Span(s, e)}
}

func (b *Common) GetSelectionRectangles(start, end int) []types.Rect {
	return b.frames.rects(start, end)
}

func (b *Common) GetDocumentPos(x, y float64) types.DocPos {
	return types.Pos(b.frames.documentPos(x, y))
}

func (b *Common) CaretRect(pos int) types.Rect { return b.frames.caretRect(pos) }

func (b *Common) CanMerge(Block) bool { return false }
func (b *Common) Merge(Block)         {}

// layoutFrames stacks the frames vertically with every line inset by indent.
func (b *Common) layoutFrames(env *Env, indent float64) {
	b.width = env.Width
	b.Height = b.frames.layout(env.Measurer, env.Width, indent)
	b.needLayout = false
}

// readFrames parses ops into frames and returns the block attributes found
// on each terminator.
func readFrames(ops []delta.Op) (frameList, []delta.AttributeMap, error) {
	var frames frameList
	var headers []delta.AttributeMap
	last := 0
	for i, op := range ops {
		if op.Kind() != delta.KindInsert {
			return nil, nil, fmt.Errorf("%w: %s op in document", ErrMalformed, op.Kind())
		}
		if !op.IsTerminator() {
			continue
		}
		blockAttrs, frameAttrs := splitAttrs(op.Attributes)
		group := append([]delta.Op(nil), ops[last:i]...)
		group = append(group, delta.Op{Embed: true, Attributes: delta.ComposeAttributes(
			delta.AttributeMap{delta.AttrFrag: delta.FragEnd}, frameAttrs, false)})
		f, err := frame.FromOps(group)
		if err != nil {
			return nil, nil, err
		}
		f.SetHeadless(blockAttrs.String(delta.AttrBlock) == "")
		frames = append(frames, f)
		headers = append(headers, blockAttrs)
		last = i + 1
	}
	if last != len(ops) || len(frames) == 0 {
		return nil, nil, fmt.Errorf("%w: ops do not end with a terminator", ErrMalformed)
	}
	return frames, headers, nil
}

// withHeader returns ops for frame f with block attributes added to its terminator.
func withHeader(f *frame.Frame, header delta.AttributeMap) []delta.Op {
	ops := f.ToOps()
	if len(header) > 0 {
		last := &ops[len(ops)-1]
		last.Attributes = delta.ComposeAttributes(last.Attributes, header, false)
	}
	return ops
}

func keyed(header delta.AttributeMap, b *Common, withKey bool) delta.AttributeMap {
	if !withKey || b.key == "" {
		return header
	}
	out := header.Clone()
	if out == nil {
		out = delta.AttributeMap{}
	}
	out["key"] = b.key
	return out
}

func clearAttrs() delta.AttributeMap {
	attrs := delta.AttributeMap{}
	for _, k := range fragment.InlineKeys {
		attrs[k] = nil
	}
	for _, k := range fragment.FrameKeys {
		attrs[k] = nil
	}
	return attrs
}
