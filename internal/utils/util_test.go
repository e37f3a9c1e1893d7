package utils

import (
	"testing"
	"time"
)

func TestOffsets(t *testing.T) {
	s := "aé😀b"
	tests := []struct {
		byteOffset, runeIndex int
	}{
		{0, 0}, {1, 1}, {2, 1}, {3, 2}, {5, 2}, {7, 3}, {8, 4}, {99, 4},
	}
	for _, tt := range tests {
		if got := ByteOffsetToRuneIndex(s, tt.byteOffset); got != tt.runeIndex {
			t.Errorf("ByteOffsetToRuneIndex(%d) = %d, want %d", tt.byteOffset, got, tt.runeIndex)
		}
	}
	if got := RuneIndexToByteOffset(s, 3); got != 7 {
		t.Errorf("RuneIndexToByteOffset(3) = %d, want 7", got)
	}
	if got := RuneSlice(s, 1, 3); got != "é😀" {
		t.Errorf("RuneSlice(1, 3) = %q", got)
	}
	if got := RuneSlice(s, 3, 1); got != "" {
		t.Errorf("reversed RuneSlice = %q", got)
	}
	if a, b := SplitAt(s, 2); a != "aé" || b != "😀b" {
		t.Errorf("SplitAt(2) = %q, %q", a, b)
	}
}

func TestDebouncer(t *testing.T) {
	var d Debouncer
	fired := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		n := i
		d.Debounce(10*time.Millisecond, func() { fired <- n })
	}
	select {
	case got := <-fired:
		if got != 3 {
			t.Fatalf("fired %d, want only the last call", got)
		}
	case <-time.After(time.Second):
		t.Fatal("debounced call never fired")
	}
	d.Debounce(time.Hour, func() { fired <- 0 })
	if !d.Stop() {
		t.Fatal("Stop should cancel the pending call")
	}
	if d.Stop() {
		t.Fatal("second Stop has nothing to cancel")
	}
}
