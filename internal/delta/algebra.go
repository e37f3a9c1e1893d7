package delta

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/bethropolis/scribe/internal/utils"
)

// Compose returns a delta equivalent to applying d and then other.
func (d Delta) Compose(other Delta) Delta {
	thisIter := NewIterator(d.Ops)
	otherIter := NewIterator(other.Ops)
	out := &Delta{}

	// Fast path: a leading plain retain in other passes d's inserts through untouched.
	if first, ok := otherIter.Peek(); ok && first.Kind() == KindRetain && first.Attributes == nil {
		firstLeft := first.Retain
		for thisIter.PeekKind() == KindInsert && thisIter.PeekLength() <= firstLeft {
			firstLeft -= thisIter.PeekLength()
			out.Ops = append(out.Ops, thisIter.Next(0))
		}
		if first.Retain-firstLeft > 0 {
			otherIter.Next(first.Retain - firstLeft)
		}
	}

	for thisIter.HasNext() || otherIter.HasNext() {
		if otherIter.PeekKind() == KindInsert {
			out.Push(otherIter.Next(0))
			continue
		}
		if thisIter.PeekKind() == KindDelete {
			out.Push(thisIter.Next(0))
			continue
		}
		length := min(thisIter.PeekLength(), otherIter.PeekLength())
		thisOp := thisIter.Next(length)
		otherOp := otherIter.Next(length)
		switch otherOp.Kind() {
		case KindRetain:
			newOp := Op{}
			if thisOp.Kind() == KindRetain {
				newOp.Retain = length
			} else {
				newOp.Insert, newOp.Embed = thisOp.Insert, thisOp.Embed
			}
			newOp.Attributes = ComposeAttributes(thisOp.Attributes, otherOp.Attributes, thisOp.Kind() == KindRetain)
			out.Push(newOp)

			// Other is exhausted and the tail of d is unaffected: append it as is.
			if !otherIter.HasNext() && out.Ops[len(out.Ops)-1].Equal(newOp) {
				rest := Delta{Ops: thisIter.Rest()}
				result := out.Concat(rest)
				return *result.Chop()
			}
		case KindDelete:
			if thisOp.Kind() == KindRetain {
				out.Push(otherOp)
			}
			// Deleting something d inserted cancels both.
		}
	}
	return *out.Chop()
}

// Transform rebases other so it applies after d. With priority, d is
// considered to have happened first and wins insert ties.
func (d Delta) Transform(other Delta, priority bool) Delta {
	thisIter := NewIterator(d.Ops)
	otherIter := NewIterator(other.Ops)
	out := &Delta{}
	for thisIter.HasNext() || otherIter.HasNext() {
		if thisIter.PeekKind() == KindInsert && (priority || otherIter.PeekKind() != KindInsert) {
			out.Retain(thisIter.Next(0).Len(), nil)
			continue
		}
		if otherIter.PeekKind() == KindInsert {
			out.Push(otherIter.Next(0))
			continue
		}
		length := min(thisIter.PeekLength(), otherIter.PeekLength())
		thisOp := thisIter.Next(length)
		otherOp := otherIter.Next(length)
		switch {
		case thisOp.Kind() == KindDelete:
			// Already removed by d.
		case otherOp.Kind() == KindDelete:
			out.Push(otherOp)
		default:
			out.Retain(length, TransformAttributes(thisOp.Attributes, otherOp.Attributes, priority))
		}
	}
	return *out.Chop()
}

// TransformPosition maps index across d. Without priority, an insert exactly
// at index pushes it forward.
func (d Delta) TransformPosition(index int, priority bool) int {
	it := NewIterator(d.Ops)
	offset := 0
	for it.HasNext() && offset <= index {
		length := it.PeekLength()
		kind := it.PeekKind()
		it.Next(0)
		if kind == KindDelete {
			index -= min(length, index-offset)
			continue
		}
		if kind == KindInsert && (offset < index || !priority) {
			index += length
		}
		offset += length
	}
	return index
}

// Invert returns the delta that undoes d when applied after it. base is the
// document d was applied to.
func (d Delta) Invert(base Delta) Delta {
	out := &Delta{}
	baseIndex := 0
	for _, op := range d.Ops {
		switch {
		case op.Kind() == KindInsert:
			out.Delete(op.Len())
		case op.Kind() == KindRetain && op.Attributes == nil:
			out.Retain(op.Retain, nil)
			baseIndex += op.Retain
		default:
			length := op.Len()
			slice := base.Slice(baseIndex, baseIndex+length)
			for _, baseOp := range slice.Ops {
				if op.Kind() == KindDelete {
					out.Push(baseOp)
				} else {
					out.Retain(baseOp.Len(), InvertAttributes(op.Attributes, baseOp.Attributes))
				}
			}
			baseIndex += length
		}
	}
	return *out.Chop()
}

// nullCharacter stands in for every embed when diffing.
const nullCharacter = "\x00"

func (d Delta) diffText() (string, error) {
	var b strings.Builder
	for _, op := range d.Ops {
		if op.Kind() != KindInsert {
			return "", ErrNotDocument
		}
		if op.Embed {
			b.WriteString(nullCharacter)
		} else {
			b.WriteString(op.Insert)
		}
	}
	return b.String(), nil
}

// Diff returns the change turning document d into document other. Both must
// consist of inserts only.
func (d Delta) Diff(other Delta) (Delta, error) {
	if d.Equal(other) {
		return Delta{}, nil
	}
	a, err := d.diffText()
	if err != nil {
		return Delta{}, err
	}
	b, err := other.diffText()
	if err != nil {
		return Delta{}, err
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMainRunes([]rune(a), []rune(b), false)

	out := &Delta{}
	thisIter := NewIterator(d.Ops)
	otherIter := NewIterator(other.Ops)
	for _, component := range diffs {
		length := utils.RuneLen(component.Text)
		for length > 0 {
			var opLength int
			switch component.Type {
			case diffmatchpatch.DiffInsert:
				opLength = min(otherIter.PeekLength(), length)
				out.Push(otherIter.Next(opLength))
			case diffmatchpatch.DiffDelete:
				opLength = min(length, thisIter.PeekLength())
				thisIter.Next(opLength)
				out.Delete(opLength)
			case diffmatchpatch.DiffEqual:
				opLength = min(thisIter.PeekLength(), otherIter.PeekLength(), length)
				thisOp := thisIter.Next(opLength)
				otherOp := otherIter.Next(opLength)
				if thisOp.Embed == otherOp.Embed && thisOp.Insert == otherOp.Insert {
					out.Retain(opLength, DiffAttributes(thisOp.Attributes, otherOp.Attributes))
				} else {
					out.Push(otherOp).Delete(opLength)
				}
			}
			length -= opLength
		}
	}
	return *out.Chop(), nil
}
