package fragment

import (
	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/measure"
)

// End terminates a frame. It is one position long, has no width and carries
// the frame's paragraph attributes plus any block attributes.
type End struct {
	atomic
}

// NewEnd returns a terminator with attrs (frag removed).
func NewEnd(attrs delta.AttributeMap) *End {
	return &End{atomic{attrs: cleanAttrs(attrs)}}
}

func (e *End) Kind() string { return KindEnd }

// Len is always 1; a terminator is never removed by a fragment-level delete.
func (e *End) Len() int { return 1 }

// CalMetrics sizes an empty line from the terminator's own font attributes.
func (e *End) CalMetrics(m measure.Measurer) {
	e.metrics = m.MeasureTextMetrics(measure.StyleFromAttributes(e.attrs))
	e.width = 0
}

// InsertText returns the new run ahead of the terminator.
func (e *End) InsertText(content string, _ int, attrs delta.AttributeMap) []Fragment {
	return splitAround(e, content, 0, attrs)
}

func (e *End) Delete(int, int, bool) bool { return false }

func (e *End) Format(attrs delta.AttributeMap, start, end int) []Fragment {
	if start <= 0 && end >= 1 {
		e.format(attrs, func(k string) bool { return !IsInlineKey(k) || k == "size" || k == "font" })
	}
	return []Fragment{e}
}

// SetAttributes replaces the terminator's attributes.
func (e *End) SetAttributes(attrs delta.AttributeMap) { e.attrs = cleanAttrs(attrs) }

func (e *End) ToOp() delta.Op { return embedOp(KindEnd, e.attrs) }

func (e *End) Clone() Fragment {
	c := *e
	c.attrs = e.attrs.Clone()
	return &c
}
