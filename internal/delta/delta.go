// Package delta implements the change record: a composable, invertible and
// transformable list of retain/insert/delete operations over a flat character
// stream, where embeds (images, dates, paragraph terminators) count as one.
package delta

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/bethropolis/scribe/internal/utils"
)

// Reserved attribute keys.
const (
	AttrFrag  = "frag"  // fragment kind of an embed: FragEnd, FragImage, FragDate
	AttrBlock = "block" // block kind carried by a header terminator
)

// Fragment kinds carried by AttrFrag.
const (
	FragEnd   = "end"
	FragImage = "img"
	FragDate  = "date"
)

// Block kinds carried by AttrBlock.
const (
	BlockPara  = "para"
	BlockQuote = "quote"
	BlockList  = "list"
	BlockTable = "table"
	BlockCode  = "code"
)

var (
	// ErrInvalidOp is returned when decoding an op that is neither insert, retain nor delete.
	ErrInvalidOp = errors.New("delta: invalid op")
	// ErrNotDocument is returned by Diff when a delta contains retain or delete ops.
	ErrNotDocument = errors.New("delta: diff called with non-document")
)

// infinity is the length reported by an exhausted iterator.
const infinity = math.MaxInt

// OpKind classifies an Op.
type OpKind int

const (
	KindRetain OpKind = iota
	KindInsert
	KindDelete
)

func (k OpKind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindDelete:
		return "delete"
	}
	return "retain"
}

// Op is a single operation. Exactly one of Insert/Embed, Retain or Delete is set.
type Op struct {
	Insert     string
	Embed      bool // insert of one atomic unit; Insert is empty
	Retain     int
	Delete     int
	Attributes AttributeMap
}

// Kind returns the operation type.
func (o Op) Kind() OpKind {
	switch {
	case o.Delete > 0:
		return KindDelete
	case o.Embed || o.Insert != "":
		return KindInsert
	}
	return KindRetain
}

// Len is the number of stream positions the op spans.
func (o Op) Len() int {
	switch o.Kind() {
	case KindDelete:
		return o.Delete
	case KindInsert:
		if o.Embed {
			return 1
		}
		return utils.RuneLen(o.Insert)
	}
	return o.Retain
}

// IsTerminator reports whether the op inserts a paragraph terminator.
func (o Op) IsTerminator() bool {
	return o.Embed && o.Attributes.String(AttrFrag) == FragEnd
}

// Equal compares two ops including attributes.
func (o Op) Equal(other Op) bool {
	return o.Insert == other.Insert && o.Embed == other.Embed &&
		o.Retain == other.Retain && o.Delete == other.Delete &&
		o.Attributes.Equal(other.Attributes)
}

func (o Op) String() string {
	var b strings.Builder
	switch o.Kind() {
	case KindDelete:
		fmt.Fprintf(&b, "delete(%d)", o.Delete)
	case KindInsert:
		if o.Embed {
			b.WriteString("insert(1)")
		} else {
			fmt.Fprintf(&b, "insert(%q)", o.Insert)
		}
	default:
		fmt.Fprintf(&b, "retain(%d)", o.Retain)
	}
	if len(o.Attributes) > 0 {
		b.WriteString("{")
		for i, k := range o.Attributes.Keys() {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "%s:%v", k, o.Attributes[k])
		}
		b.WriteString("}")
	}
	return b.String()
}

// Delta is an ordered list of ops.
type Delta struct {
	Ops []Op
}

// New returns a delta holding ops pushed in order.
func New(ops ...Op) *Delta {
	d := &Delta{}
	for _, op := range ops {
		d.Push(op)
	}
	return d
}

// Insert appends a text insert. Empty text is ignored.
func (d *Delta) Insert(text string, attrs AttributeMap) *Delta {
	if text == "" {
		return d
	}
	return d.Push(Op{Insert: text, Attributes: attrs.Clone()})
}

// InsertEmbed appends an atomic insert.
func (d *Delta) InsertEmbed(attrs AttributeMap) *Delta {
	return d.Push(Op{Embed: true, Attributes: attrs.Clone()})
}

// Retain appends a retain. Non-positive lengths are ignored.
func (d *Delta) Retain(n int, attrs AttributeMap) *Delta {
	if n <= 0 {
		return d
	}
	return d.Push(Op{Retain: n, Attributes: attrs.Clone()})
}

// Delete appends a delete. Non-positive lengths are ignored.
func (d *Delta) Delete(n int) *Delta {
	if n <= 0 {
		return d
	}
	return d.Push(Op{Delete: n})
}

// Push appends op, merging it with the last op when possible. An insert is
// always placed before a trailing delete so equal changes have one form.
func (d *Delta) Push(op Op) *Delta {
	if op.Len() == 0 {
		return d
	}
	if len(op.Attributes) == 0 {
		op.Attributes = nil
	}
	index := len(d.Ops)
	if index > 0 {
		last := d.Ops[index-1]
		if op.Kind() == KindDelete && last.Kind() == KindDelete {
			d.Ops[index-1] = Op{Delete: last.Delete + op.Delete}
			return d
		}
		if last.Kind() == KindDelete && op.Kind() == KindInsert {
			index--
			if index == 0 {
				d.Ops = append([]Op{op}, d.Ops...)
				return d
			}
			last = d.Ops[index-1]
		}
		if last.Attributes.Equal(op.Attributes) {
			if op.Kind() == KindInsert && last.Kind() == KindInsert && !op.Embed && !last.Embed {
				d.Ops[index-1] = Op{Insert: last.Insert + op.Insert, Attributes: last.Attributes}
				return d
			}
			if op.Kind() == KindRetain && last.Kind() == KindRetain {
				d.Ops[index-1] = Op{Retain: last.Retain + op.Retain, Attributes: last.Attributes}
				return d
			}
		}
	}
	if index == len(d.Ops) {
		d.Ops = append(d.Ops, op)
		return d
	}
	d.Ops = append(d.Ops, Op{})
	copy(d.Ops[index+1:], d.Ops[index:])
	d.Ops[index] = op
	return d
}

// Chop removes a trailing plain retain.
func (d *Delta) Chop() *Delta {
	if n := len(d.Ops); n > 0 {
		last := d.Ops[n-1]
		if last.Kind() == KindRetain && last.Attributes == nil {
			d.Ops = d.Ops[:n-1]
		}
	}
	return d
}

// Empty reports whether the delta has no ops.
func (d Delta) Empty() bool {
	return len(d.Ops) == 0
}

// Length is the total length of all ops.
func (d Delta) Length() int {
	n := 0
	for _, op := range d.Ops {
		n += op.Len()
	}
	return n
}

// BaseLength is the length of the document the delta applies to.
func (d Delta) BaseLength() int {
	n := 0
	for _, op := range d.Ops {
		if op.Kind() != KindInsert {
			n += op.Len()
		}
	}
	return n
}

// ChangeLength is the net length change applying the delta causes.
func (d Delta) ChangeLength() int {
	n := 0
	for _, op := range d.Ops {
		switch op.Kind() {
		case KindInsert:
			n += op.Len()
		case KindDelete:
			n -= op.Delete
		}
	}
	return n
}

// IsDocument reports whether the delta contains only inserts.
func (d Delta) IsDocument() bool {
	for _, op := range d.Ops {
		if op.Kind() != KindInsert {
			return false
		}
	}
	return true
}

// Equal compares op lists.
func (d Delta) Equal(other Delta) bool {
	if len(d.Ops) != len(other.Ops) {
		return false
	}
	for i := range d.Ops {
		if !d.Ops[i].Equal(other.Ops[i]) {
			return false
		}
	}
	return true
}

// Clone copies the op list and attribute maps.
func (d Delta) Clone() Delta {
	ops := make([]Op, len(d.Ops))
	for i, op := range d.Ops {
		op.Attributes = op.Attributes.Clone()
		ops[i] = op
	}
	return Delta{Ops: ops}
}

// Slice returns the ops covering positions [start, end). end < 0 means the end.
func (d Delta) Slice(start, end int) Delta {
	if end < 0 {
		end = infinity
	}
	out := &Delta{}
	it := NewIterator(d.Ops)
	index := 0
	for index < end && it.HasNext() {
		var next Op
		if index < start {
			next = it.Next(start - index)
		} else {
			next = it.Next(end - index)
			out.Ops = append(out.Ops, next)
		}
		index += next.Len()
	}
	return *out
}

// Concat appends other, merging the seam.
func (d Delta) Concat(other Delta) Delta {
	out := &Delta{Ops: append([]Op(nil), d.Ops...)}
	if len(other.Ops) > 0 {
		out.Push(other.Ops[0])
		out.Ops = append(out.Ops, other.Ops[1:]...)
	}
	return *out
}

// Text returns the inserted text with embeds as U+FFFC and terminators as '\n'.
func (d Delta) Text() string {
	var b strings.Builder
	for _, op := range d.Ops {
		switch {
		case op.IsTerminator():
			b.WriteByte('\n')
		case op.Embed:
			b.WriteRune('￼')
		default:
			b.WriteString(op.Insert)
		}
	}
	return b.String()
}

func (d Delta) String() string {
	parts := make([]string, len(d.Ops))
	for i, op := range d.Ops {
		parts[i] = op.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
