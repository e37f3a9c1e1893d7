package fragment

import "github.com/rivo/uniseg"

// PrevGraphemeBoundary returns the rune offset of the grapheme cluster
// boundary closest before pos, so a backspace removes a whole cluster.
func PrevGraphemeBoundary(text string, pos int) int {
	boundary, offset := 0, 0
	state := -1
	rest := text
	for rest != "" && offset < pos {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		boundary = offset
		offset += len([]rune(cluster))
	}
	return boundary
}

// SnapToGrapheme moves offset back to the nearest grapheme cluster boundary
// at or before it.
func SnapToGrapheme(text string, offset int) int {
	boundary, pos := 0, 0
	state := -1
	rest := text
	for rest != "" {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if pos == offset {
			return offset
		}
		if pos > offset {
			return boundary
		}
		boundary = pos
		pos += len([]rune(cluster))
	}
	if offset >= pos {
		return offset
	}
	return boundary
}
