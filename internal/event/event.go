// internal/event/event.go
package event

import (
	"github.com/bethropolis/scribe/internal/delta"
)

// Type identifies the kind of event.
type Type int

const (
	TypeUnknown Type = iota

	// Document events
	TypeContentChanged  // An edit changed the document; Data is ContentChangedData
	TypeLayoutChanged   // Layout moved or resized blocks; Data is LayoutChangedData
	TypeRedrawRequested // A block's display changed without an edit; Data is RedrawRequestedData
	TypeImageLoaded     // An image finished loading or gave up; Data is ImageLoadedData

	TypeThemeChanged // The code theme was switched; Data is ThemeChangedData
)

func (t Type) String() string {
	switch t {
	case TypeContentChanged:
		return "content-changed"
	case TypeLayoutChanged:
		return "layout-changed"
	case TypeRedrawRequested:
		return "redraw-requested"
	case TypeImageLoaded:
		return "image-loaded"
	case TypeThemeChanged:
		return "theme-changed"
	}
	return "unknown"
}

// Event is the structure passed through the event bus.
type Event struct {
	Type Type
	Data interface{}
}

// ContentChangedData carries the change record of an edit.
type ContentChangedData struct {
	Change delta.Delta
}

// LayoutChangedData reports the document height after layout.
type LayoutChangedData struct {
	Height float64
	// Blocks is the number of blocks laid out.
	Blocks int
}

// RedrawRequestedData names the block to repaint.
type RedrawRequestedData struct {
	Key string
}

// ImageLoadedData reports the outcome of an image load.
type ImageLoadedData struct {
	Key   string
	Src   string
	State string
}

// ThemeChangedData names the new theme.
type ThemeChangedData struct {
	Name string
}
