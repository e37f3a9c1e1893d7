package measure

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/bethropolis/scribe/internal/logger"
)

// DPI used when rasterizing sizes given in points.
const DPI = 96

type faceKey struct {
	mono   bool
	size   float64
	bold   bool
	italic bool
}

// FontMeasurer measures text with the Go font family. Faces are cached per
// style; a fixed bitmap face is used if the outlines fail to parse.
type FontMeasurer struct {
	regular    *opentype.Font
	bold       *opentype.Font
	italic     *opentype.Font
	boldItalic *opentype.Font
	mono       *opentype.Font

	mu    sync.Mutex
	cache map[faceKey]font.Face
}

// NewFontMeasurer parses the embedded Go fonts.
func NewFontMeasurer() (*FontMeasurer, error) {
	m := &FontMeasurer{cache: map[faceKey]font.Face{}}
	sources := []struct {
		dst  **opentype.Font
		name string
		ttf  []byte
	}{
		{&m.regular, "regular", goregular.TTF},
		{&m.bold, "bold", gobold.TTF},
		{&m.italic, "italic", goitalic.TTF},
		{&m.boldItalic, "bold italic", gobolditalic.TTF},
		{&m.mono, "mono", gomono.TTF},
	}
	for _, src := range sources {
		f, err := opentype.Parse(src.ttf)
		if err != nil {
			return nil, fmt.Errorf("parse %s font: %w", src.name, err)
		}
		*src.dst = f
	}
	return m, nil
}

func (m *FontMeasurer) face(style Style) font.Face {
	size := style.Size
	if size <= 0 {
		size = DefaultFontSize
	}
	key := faceKey{
		mono:   strings.EqualFold(style.Font, "mono") || strings.EqualFold(style.Font, "monospace"),
		size:   size,
		bold:   style.Bold,
		italic: style.Italic,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.cache[key]; ok {
		return f
	}

	var base *opentype.Font
	switch {
	case key.mono:
		base = m.mono
	case key.bold && key.italic:
		base = m.boldItalic
	case key.bold:
		base = m.bold
	case key.italic:
		base = m.italic
	default:
		base = m.regular
	}
	var f font.Face = basicfont.Face7x13
	if base != nil {
		face, err := opentype.NewFace(base, &opentype.FaceOptions{Size: size, DPI: DPI, Hinting: font.HintingNone})
		if err != nil {
			logger.Warnf("measure: face for %+v unavailable, using bitmap fallback: %v", style, err)
		} else {
			f = face
		}
	}
	m.cache[key] = f
	return f
}

func toFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// MeasureTextWidth returns the advance width of text in pixels.
func (m *FontMeasurer) MeasureTextWidth(text string, style Style) float64 {
	if text == "" {
		return 0
	}
	return toFloat(font.MeasureString(m.face(style), text))
}

// MeasureTextMetrics returns the face's vertical metrics in pixels.
func (m *FontMeasurer) MeasureTextMetrics(style Style) Metrics {
	fm := m.face(style).Metrics()
	ascent := toFloat(fm.Ascent)
	descent := toFloat(fm.Descent)
	xHeight := toFloat(fm.XHeight)
	if xHeight <= 0 {
		xHeight = ascent / 2
	}
	return Metrics{Baseline: ascent, Bottom: ascent + descent, XTop: ascent - xHeight}
}

// PointsToPixels converts a point size at DPI.
func (m *FontMeasurer) PointsToPixels(size float64) float64 {
	return size * DPI / 72
}
