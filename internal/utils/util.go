package utils

import (
	"sync"
	"time"
	"unicode/utf8"
)

// RuneIndexToByteOffset converts a rune index to a byte offset in s.
// Returns -1 if runeIndex is out of bounds.
func RuneIndexToByteOffset(s string, runeIndex int) int {
	if runeIndex <= 0 {
		return 0
	}
	currentRune := 0
	for byteOffset := range s {
		if currentRune == runeIndex {
			return byteOffset
		}
		currentRune++
	}
	if currentRune == runeIndex {
		return len(s)
	} // Allow index at the very end
	return -1
}

// ByteOffsetToRuneIndex converts a byte offset in s to a rune index. An
// offset inside a multi-byte rune counts only the runes before it.
func ByteOffsetToRuneIndex(s string, byteOffset int) int {
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset > len(s) {
		byteOffset = len(s)
	}
	runeIndex := 0
	for i := 0; i < byteOffset; {
		_, size := utf8.DecodeRuneInString(s[i:])
		if i+size > byteOffset {
			break
		}
		i += size
		runeIndex++
	}
	return runeIndex
}

// RuneLen is the length of s in runes.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// RuneSlice returns the runes [start, end) of s. Bounds are clamped.
func RuneSlice(s string, start, end int) string {
	n := RuneLen(s)
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start >= end {
		return ""
	}
	from := RuneIndexToByteOffset(s, start)
	to := RuneIndexToByteOffset(s, end)
	return s[from:to]
}

// SplitAt splits s at rune offset pos.
func SplitAt(s string, pos int) (string, string) {
	off := RuneIndexToByteOffset(s, pos)
	if off < 0 {
		return s, ""
	}
	return s[:off], s[off:]
}

// Debouncer provides a way to debounce function calls
type Debouncer struct {
	mutex sync.Mutex
	timer *time.Timer
}

// Debounce calls the provided function after the specified duration,
// canceling any previous pending calls
func (d *Debouncer) Debounce(duration time.Duration, fn func()) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(duration, func() {
		d.mutex.Lock()
		d.timer = nil
		d.mutex.Unlock()
		fn()
	})
}

// Stop cancels a pending call. It reports whether a call was cancelled.
func (d *Debouncer) Stop() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}
