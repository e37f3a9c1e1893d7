package fragment

import (
	"github.com/bethropolis/scribe/internal/delta"
	"github.com/gdamore/tcell/v2"
)

// CellStyle converts inline attributes to a terminal cell style. Colors are
// any form tcell.GetColor accepts: names or "#rrggbb".
func CellStyle(base tcell.Style, attrs delta.AttributeMap) tcell.Style {
	s := base
	if c := attrs.String("color"); c != "" {
		if color := tcell.GetColor(c); color != tcell.ColorDefault {
			s = s.Foreground(color)
		}
	}
	if c := attrs.String("background"); c != "" {
		if color := tcell.GetColor(c); color != tcell.ColorDefault {
			s = s.Background(color)
		}
	}
	if attrs.Bool("bold") {
		s = s.Bold(true)
	}
	if attrs.Bool("italic") {
		s = s.Italic(true)
	}
	if attrs.Bool("underline") || attrs.String("link") != "" {
		s = s.Underline(true)
	}
	if attrs.Bool("strike") {
		s = s.StrikeThrough(true)
	}
	if attrs.Bool("composing") {
		s = s.Dim(true)
	}
	return s
}

// CellStyle is the terminal style of the run.
func (t *Text) CellStyle(base tcell.Style) tcell.Style {
	return CellStyle(base, t.attrs)
}
