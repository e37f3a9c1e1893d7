package fragment

import (
	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/measure"
	"github.com/bethropolis/scribe/internal/utils"
)

// Text is a run of characters sharing one attribute set.
type Text struct {
	text    string
	n       int
	attrs   delta.AttributeMap
	metrics measure.Metrics
	width   float64
}

// NewText returns a text run. Nil attribute values are dropped.
func NewText(text string, attrs delta.AttributeMap) *Text {
	t := &Text{attrs: cleanAttrs(attrs)}
	t.setText(text)
	return t
}

func cleanAttrs(attrs delta.AttributeMap) delta.AttributeMap {
	out := delta.AttributeMap{}
	for k, v := range attrs {
		if v != nil && k != delta.AttrFrag {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (t *Text) setText(s string) {
	t.text = s
	t.n = utils.RuneLen(s)
}

func (t *Text) Kind() string                   { return KindText }
func (t *Text) Len() int                       { return t.n }
func (t *Text) Attributes() delta.AttributeMap { return t.attrs }
func (t *Text) Metrics() measure.Metrics       { return t.metrics }
func (t *Text) CalTotalWidth() float64         { return t.width }

// Content returns the run's text.
func (t *Text) Content() string { return t.text }

// Style returns the measurement style of the run.
func (t *Text) Style() measure.Style { return measure.StyleFromAttributes(t.attrs) }

func (t *Text) CalMetrics(m measure.Measurer) {
	style := t.Style()
	t.metrics = m.MeasureTextMetrics(style)
	t.width = m.MeasureTextWidth(t.text, style)
}

func (t *Text) MeasureRange(m measure.Measurer, start, end int) float64 {
	if start <= 0 && end >= t.n {
		return t.width
	}
	return m.MeasureTextWidth(utils.RuneSlice(t.text, start, end), t.Style())
}

func (t *Text) InsertText(content string, pos int, attrs delta.AttributeMap) []Fragment {
	if content == "" {
		return []Fragment{t}
	}
	before, after := utils.SplitAt(t.text, pos)
	if attrs == nil || cleanAttrs(attrs).Equal(t.attrs) {
		t.setText(before + content + after)
		return []Fragment{t}
	}
	var out []Fragment
	tail := t.attrs.Clone()
	if before != "" {
		t.setText(before)
		out = append(out, t)
	}
	out = append(out, NewText(content, attrs))
	if after != "" {
		out = append(out, NewText(after, tail))
	}
	return out
}

func (t *Text) InsertEnter(pos int) Fragment {
	if pos <= 0 || pos >= t.n {
		return nil
	}
	before, after := utils.SplitAt(t.text, pos)
	t.setText(before)
	return NewText(after, t.attrs.Clone())
}

func (t *Text) Delete(start, end int, forward bool) bool {
	if start == end {
		if !forward || start <= 0 {
			return false
		}
		start = PrevGraphemeBoundary(t.text, start)
	}
	start = max(start, 0)
	end = min(end, t.n)
	if start >= end {
		return false
	}
	t.setText(utils.RuneSlice(t.text, 0, start) + utils.RuneSlice(t.text, end, t.n))
	return true
}

func (t *Text) Format(attrs delta.AttributeMap, start, end int) []Fragment {
	inline := delta.AttributeMap{}
	for k, v := range attrs {
		if IsInlineKey(k) {
			inline[k] = v
		}
	}
	if len(inline) == 0 {
		return []Fragment{t}
	}
	start = max(start, 0)
	end = min(end, t.n)
	if start >= end {
		return []Fragment{t}
	}
	composed := delta.ComposeAttributes(t.attrs, inline, false)
	if start == 0 && end == t.n {
		t.attrs = composed
		return []Fragment{t}
	}
	var out []Fragment
	original := t.attrs.Clone()
	head := utils.RuneSlice(t.text, 0, start)
	mid := utils.RuneSlice(t.text, start, end)
	tail := utils.RuneSlice(t.text, end, t.n)
	if head != "" {
		t.setText(head)
		out = append(out, t)
		out = append(out, NewText(mid, composed))
	} else {
		t.setText(mid)
		t.attrs = composed
		out = append(out, t)
	}
	if tail != "" {
		out = append(out, NewText(tail, original))
	}
	return out
}

func (t *Text) Eat(other Fragment) bool {
	o, ok := other.(*Text)
	if !ok || !o.attrs.Equal(t.attrs) {
		return false
	}
	t.setText(t.text + o.text)
	t.width += o.width
	return true
}

func (t *Text) ToOp() delta.Op {
	return delta.Op{Insert: t.text, Attributes: t.attrs.Clone()}
}

func (t *Text) Clone() Fragment {
	c := *t
	c.attrs = t.attrs.Clone()
	return &c
}
