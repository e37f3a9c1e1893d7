package fragment

import (
	"time"

	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/measure"
)

// DateLayout is how a date fragment is displayed.
const DateLayout = "2006-01-02"

// Date is an inline date chip. Its value is an RFC 3339 timestamp in the
// "date" attribute.
type Date struct {
	atomic
}

// NewDate returns a date fragment.
func NewDate(attrs delta.AttributeMap) *Date {
	return &Date{atomic{attrs: cleanAttrs(attrs)}}
}

// NewDateAt returns a date fragment for t.
func NewDateAt(t time.Time, attrs delta.AttributeMap) *Date {
	a := cleanAttrs(attrs).Clone()
	if a == nil {
		a = delta.AttributeMap{}
	}
	a["date"] = t.Format(time.RFC3339)
	return NewDate(a)
}

func (d *Date) Kind() string { return KindDate }

// Time parses the stored timestamp.
func (d *Date) Time() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, d.attrs.String("date"))
	return t, err == nil
}

// Display is the text the chip shows.
func (d *Date) Display() string {
	if t, ok := d.Time(); ok {
		return t.Format(DateLayout)
	}
	if s := d.attrs.String("date"); s != "" {
		return s
	}
	return "----------"
}

func (d *Date) CalMetrics(m measure.Measurer) {
	style := measure.StyleFromAttributes(d.attrs)
	d.metrics = m.MeasureTextMetrics(style)
	d.width = m.MeasureTextWidth(" "+d.Display()+" ", style)
}

func (d *Date) InsertText(content string, pos int, attrs delta.AttributeMap) []Fragment {
	return splitAround(d, content, pos, attrs)
}

func (d *Date) Delete(start, end int, forward bool) bool { return d.delete(start, end, forward) }

func (d *Date) Format(attrs delta.AttributeMap, start, end int) []Fragment {
	if start <= 0 && end >= 1 {
		d.format(attrs, func(k string) bool { return k == "date" || IsInlineKey(k) })
	}
	return []Fragment{d}
}

func (d *Date) ToOp() delta.Op { return embedOp(KindDate, d.attrs) }

func (d *Date) Clone() Fragment {
	c := *d
	c.attrs = d.attrs.Clone()
	return &c
}
