// Package fragment implements the atomic inline content units of a frame:
// text runs, images, inline dates and the paragraph terminator.
package fragment

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/measure"
)

// Fragment kinds.
const (
	KindText  = "text"
	KindImage = delta.FragImage
	KindDate  = delta.FragDate
	KindEnd   = delta.FragEnd
)

// ErrUnknownFragment is returned for an embed whose frag tag is not registered.
var ErrUnknownFragment = errors.New("fragment: unknown fragment type")

// InlineKeys are the attributes a text run carries.
var InlineKeys = []string{"font", "size", "bold", "italic", "underline", "strike", "color", "background", "link", "composing"}

// FrameKeys are paragraph attributes carried by a terminator.
var FrameKeys = []string{"align", "lineSpacing", "textIndent"}

func isOneOf(key string, keys []string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// IsInlineKey reports whether key formats text runs.
func IsInlineKey(key string) bool { return isOneOf(key, InlineKeys) }

// IsFrameKey reports whether key formats whole paragraphs.
func IsFrameKey(key string) bool { return isOneOf(key, FrameKeys) }

// Fragment is one inline content unit. Fragments are owned by exactly one frame.
type Fragment interface {
	Kind() string
	// Len is the number of stream positions: runes for text, 1 for embeds.
	Len() int
	Attributes() delta.AttributeMap

	// CalMetrics recomputes vertical metrics and width.
	CalMetrics(m measure.Measurer)
	Metrics() measure.Metrics
	// CalTotalWidth is the width used for line wrapping, valid after CalMetrics.
	CalTotalWidth() float64
	// MeasureRange is the width of positions [start, end).
	MeasureRange(m measure.Measurer, start, end int) float64

	// InsertText splices content at pos. It returns the live fragments that
	// replace this one, in order; a distinct attribute run splits it.
	InsertText(content string, pos int, attrs delta.AttributeMap) []Fragment
	// InsertEnter truncates at pos and returns the remainder, or nil.
	InsertEnter(pos int) Fragment
	// Delete removes [start, end). A collapsed range with forward set removes
	// the unit before start. It reports whether anything was removed.
	Delete(start, end int, forward bool) bool
	// Format applies attrs to [start, end) and returns the resulting fragments.
	Format(attrs delta.AttributeMap, start, end int) []Fragment
	// Eat merges an adjacent fragment of the same kind and attributes.
	Eat(other Fragment) bool

	ToOp() delta.Op
	Clone() Fragment
}

// Constructor builds a fragment from an embed's attributes (frag removed).
type Constructor func(attrs delta.AttributeMap) (Fragment, error)

var registry = struct {
	sync.RWMutex
	constructors map[string]Constructor
}{constructors: map[string]Constructor{}}

// Register installs a constructor for an embed tag, replacing any previous one.
func Register(tag string, c Constructor) {
	registry.Lock()
	defer registry.Unlock()
	registry.constructors[tag] = c
}

// Lookup returns the constructor registered for tag.
func Lookup(tag string) (Constructor, bool) {
	registry.RLock()
	defer registry.RUnlock()
	c, ok := registry.constructors[tag]
	return c, ok
}

func init() {
	Register(KindEnd, func(attrs delta.AttributeMap) (Fragment, error) { return NewEnd(attrs), nil })
	Register(KindImage, func(attrs delta.AttributeMap) (Fragment, error) { return NewImage(attrs), nil })
	Register(KindDate, func(attrs delta.AttributeMap) (Fragment, error) { return NewDate(attrs), nil })
}

// FromOp builds the fragment an insert op describes.
func FromOp(op delta.Op) (Fragment, error) {
	if op.Kind() != delta.KindInsert {
		return nil, fmt.Errorf("fragment: cannot build from %s op", op.Kind())
	}
	if !op.Embed {
		return NewText(op.Insert, op.Attributes), nil
	}
	tag := op.Attributes.String(delta.AttrFrag)
	c, ok := Lookup(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFragment, tag)
	}
	return c(op.Attributes.Without(delta.AttrFrag))
}

// atomic holds what image, date and terminator fragments share: a fixed
// length of one and attributes filtered by what the kind accepts.
type atomic struct {
	attrs   delta.AttributeMap
	metrics measure.Metrics
	width   float64
	removed bool
}

func (a *atomic) Len() int {
	if a.removed {
		return 0
	}
	return 1
}

func (a *atomic) Attributes() delta.AttributeMap { return a.attrs }
func (a *atomic) Metrics() measure.Metrics       { return a.metrics }
func (a *atomic) CalTotalWidth() float64         { return a.width }

func (a *atomic) MeasureRange(_ measure.Measurer, start, end int) float64 {
	if start <= 0 && end >= 1 {
		return a.width
	}
	return 0
}

func (a *atomic) InsertEnter(int) Fragment { return nil }

func (a *atomic) Eat(Fragment) bool { return false }

func (a *atomic) delete(start, end int, forward bool) bool {
	if start == end {
		if !forward || start != 1 {
			return false
		}
		start = 0
	}
	if start <= 0 && end >= 1 && !a.removed {
		a.removed = true
		return true
	}
	return false
}

// format composes attrs filtered by accept onto the fragment.
func (a *atomic) format(attrs delta.AttributeMap, accept func(string) bool) {
	filtered := delta.AttributeMap{}
	for k, v := range attrs {
		if accept(k) {
			filtered[k] = v
		}
	}
	if len(filtered) > 0 {
		a.attrs = delta.ComposeAttributes(a.attrs, filtered, false)
	}
}

// splitAround places new text before or after an atomic fragment.
func splitAround(self Fragment, content string, pos int, attrs delta.AttributeMap) []Fragment {
	if content == "" {
		return []Fragment{self}
	}
	text := NewText(content, attrs)
	if pos <= 0 {
		return []Fragment{text, self}
	}
	return []Fragment{self, text}
}

func embedOp(kind string, attrs delta.AttributeMap) delta.Op {
	out := delta.AttributeMap{delta.AttrFrag: kind}
	for k, v := range attrs {
		out[k] = v
	}
	return delta.Op{Embed: true, Attributes: out}
}
