package sample

import "strings"

// Run is a span of text with one style.
type Run struct {
	Text  string
	Bold  bool
	Width int
}

// Len counts runes.
func (r *Run) Len() int {
	return len([]rune(r.Text))
}

func join(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

var empty = Run{Text: "", Bold: false, Width: 0}
