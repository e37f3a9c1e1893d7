package utils

import (
	"strings"
	"unicode/utf8"
)

// RuneOffsets returns, for every byte offset in src (and len(src)), the
// number of runes before it. Offsets inside a multi-byte rune map to that
// rune's index.
func RuneOffsets(src []byte) []int {
	out := make([]int, len(src)+1)
	r := 0
	for i := 0; i < len(src); {
		_, size := utf8.DecodeRune(src[i:])
		for j := 0; j < size; j++ {
			out[i+j] = r
		}
		i += size
		r++
	}
	out[len(src)] = r
	return out
}

// CaptureNameToStyleName maps tree-sitter capture names to theme style names.
func CaptureNameToStyleName(captureName string) string {
	return strings.TrimPrefix(captureName, "@")
}
