// Package measure defines the text measurement and idle scheduling
// capabilities the layout engine consumes, with font-backed and
// terminal-cell implementations.
package measure

import "github.com/bethropolis/scribe/internal/delta"

// DefaultFontSize is the size in points used when a run sets none.
const DefaultFontSize = 14

// Style is the subset of text attributes that affects measurement.
type Style struct {
	Font   string
	Size   float64
	Bold   bool
	Italic bool
}

// StyleFromAttributes extracts measurement style from fragment attributes.
func StyleFromAttributes(attrs delta.AttributeMap) Style {
	s := Style{Font: attrs.String("font"), Bold: attrs.Bool("bold"), Italic: attrs.Bool("italic")}
	if size, ok := attrs.Number("size"); ok && size > 0 {
		s.Size = size
	} else {
		s.Size = DefaultFontSize
	}
	return s
}

// Metrics are vertical font metrics in pixels, measured from the top of the
// line box: Baseline is the ascent, Bottom the full height, XTop the top of
// lowercase glyphs.
type Metrics struct {
	Baseline float64
	Bottom   float64
	XTop     float64
}

// Descent is the space below the baseline.
func (m Metrics) Descent() float64 {
	return m.Bottom - m.Baseline
}

// Max combines two metrics so both fit on one baseline.
func (m Metrics) Max(o Metrics) Metrics {
	baseline := max(m.Baseline, o.Baseline)
	descent := max(m.Descent(), o.Descent())
	return Metrics{Baseline: baseline, Bottom: baseline + descent, XTop: max(m.XTop, o.XTop)}
}

// Measurer measures text. Implementations must be pure functions of their
// inputs so results can be cached.
type Measurer interface {
	MeasureTextWidth(text string, style Style) float64
	MeasureTextMetrics(style Style) Metrics
	PointsToPixels(size float64) float64
}

// Scheduler runs callbacks in idle time. Completion is never synchronous.
type Scheduler interface {
	RequestIdle(fn func()) int
	CancelIdle(id int)
}
