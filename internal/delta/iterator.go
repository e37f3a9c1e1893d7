package delta

import "github.com/bethropolis/scribe/internal/utils"

// Iterator walks a list of ops, handing out pieces of a requested length.
type Iterator struct {
	ops    []Op
	index  int
	offset int
}

// NewIterator returns an iterator positioned at the first op.
func NewIterator(ops []Op) *Iterator {
	return &Iterator{ops: ops}
}

// HasNext reports whether ops remain.
func (it *Iterator) HasNext() bool {
	return it.PeekLength() < infinity
}

// Next returns up to length positions of the current op. A non-positive length
// takes the rest of the op. Past the end it returns an unbounded retain.
func (it *Iterator) Next(length int) Op {
	if length <= 0 {
		length = infinity
	}
	if it.index >= len(it.ops) {
		return Op{Retain: infinity}
	}
	next := it.ops[it.index]
	offset := it.offset
	opLength := next.Len()
	if length >= opLength-offset {
		length = opLength - offset
		it.index++
		it.offset = 0
	} else {
		it.offset += length
	}
	switch next.Kind() {
	case KindDelete:
		return Op{Delete: length}
	case KindRetain:
		return Op{Retain: length, Attributes: next.Attributes}
	}
	if next.Embed {
		return Op{Embed: true, Attributes: next.Attributes}
	}
	return Op{Insert: utils.RuneSlice(next.Insert, offset, offset+length), Attributes: next.Attributes}
}

// Peek returns the current op without consuming it.
func (it *Iterator) Peek() (Op, bool) {
	if it.index >= len(it.ops) {
		return Op{}, false
	}
	return it.ops[it.index], true
}

// PeekLength is the remaining length of the current op.
func (it *Iterator) PeekLength() int {
	if it.index < len(it.ops) {
		return it.ops[it.index].Len() - it.offset
	}
	return infinity
}

// PeekKind is the kind of the current op; retain once exhausted.
func (it *Iterator) PeekKind() OpKind {
	if it.index < len(it.ops) {
		return it.ops[it.index].Kind()
	}
	return KindRetain
}

// Rest returns the unconsumed ops without advancing.
func (it *Iterator) Rest() []Op {
	if !it.HasNext() {
		return nil
	}
	if it.offset == 0 {
		return append([]Op(nil), it.ops[it.index:]...)
	}
	index, offset := it.index, it.offset
	first := it.Next(0)
	rest := append([]Op{first}, it.ops[it.index:]...)
	it.index, it.offset = index, offset
	return rest
}
