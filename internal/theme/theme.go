// Package theme maps highlight style names to terminal styles and to the
// fragment attributes code blocks are colored with.
package theme

import (
	"fmt"
	"strings"

	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/logger"
	"github.com/gdamore/tcell/v2"
)

// Theme is a named set of styles.
type Theme struct {
	Name   string
	IsDark bool
	Styles map[string]tcell.Style
}

// GetStyle returns the style for name, falling back to the part before the
// first dot and then to "Default".
func (t *Theme) GetStyle(name string) tcell.Style {
	if style, ok := t.Styles[name]; ok {
		return style
	}

	if dotIndex := strings.Index(name, "."); dotIndex != -1 {
		if style, ok := t.Styles[name[:dotIndex]]; ok {
			return style
		}
	}

	if defStyle, ok := t.Styles["Default"]; ok {
		return defStyle
	}

	logger.Warnf("Theme '%s': Style '%s' and 'Default' style not found, using tcell default.", t.Name, name)
	return tcell.StyleDefault
}

// Attributes converts the style for name into fragment attributes: color,
// background, bold, italic, underline and strike. Colors that carry no RGB
// value, such as the terminal default, are left out.
func (t *Theme) Attributes(name string) delta.AttributeMap {
	fg, bg, attr := t.GetStyle(name).Decompose()
	attrs := delta.AttributeMap{}
	if hex := colorHex(fg); hex != "" {
		attrs["color"] = hex
	}
	if hex := colorHex(bg); hex != "" {
		attrs["background"] = hex
	}
	if attr&tcell.AttrBold != 0 {
		attrs["bold"] = true
	}
	if attr&tcell.AttrItalic != 0 {
		attrs["italic"] = true
	}
	if attr&tcell.AttrUnderline != 0 {
		attrs["underline"] = true
	}
	if attr&tcell.AttrStrikeThrough != 0 {
		attrs["strike"] = true
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

func colorHex(c tcell.Color) string {
	if c == tcell.ColorDefault || c == tcell.ColorReset {
		return ""
	}
	v := c.Hex()
	if v < 0 {
		return ""
	}
	return fmt.Sprintf("#%06x", v)
}

// ScribeDark is the built-in theme.
var ScribeDark Theme

func init() {
	fg := tcell.NewHexColor(0xc5cdd9)
	comment := tcell.NewHexColor(0x5c6370)
	orange := tcell.NewHexColor(0xd19a66)
	yellow := tcell.NewHexColor(0xe5c07b)
	green := tcell.NewHexColor(0x98c379)
	cyan := tcell.NewHexColor(0x56b6c2)
	blue := tcell.NewHexColor(0x61afef)
	magenta := tcell.NewHexColor(0xc678dd)

	base := tcell.StyleDefault.Background(tcell.ColorReset).Foreground(fg)

	ScribeDark = Theme{
		Name:   "Scribe Dark",
		IsDark: true,
		Styles: map[string]tcell.Style{
			"Default":         base,
			"Selection":       base.Reverse(true),
			"SearchHighlight": tcell.StyleDefault.Background(tcell.ColorOrange).Foreground(tcell.ColorBlack),
			"QuoteBar":        base.Foreground(comment),
			"ListTitle":       base.Foreground(blue),

			"keyword":   base.Foreground(blue).Bold(true),
			"string":    base.Foreground(green),
			"comment":   base.Foreground(comment).Italic(true),
			"number":    base.Foreground(orange),
			"type":      base.Foreground(cyan),
			"function":  base.Foreground(yellow),
			"constant":  base.Foreground(orange),
			"variable":  base.Foreground(fg),
			"namespace": base.Foreground(cyan),
			"property":  base.Foreground(fg),

			"string.regex":     base.Foreground(magenta),
			"type.builtin":     base.Foreground(cyan).Bold(true),
			"function.macro":   base.Foreground(magenta),
			"variable.builtin": base.Foreground(cyan),
		},
	}
}
