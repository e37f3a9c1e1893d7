package measure

import (
	"testing"

	"github.com/bethropolis/scribe/internal/delta"
)

func TestCellMeasurerWidths(t *testing.T) {
	m := NewCellMeasurer(2, 10)
	tests := []struct {
		text string
		want float64
	}{
		{"", 0},
		{"abc", 6},
		{"中文", 8},
	}
	for _, tt := range tests {
		if got := m.MeasureTextWidth(tt.text, Style{}); got != tt.want {
			t.Errorf("MeasureTextWidth(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
	if got, want := m.MeasureTextMetrics(Style{}).Bottom, 10.0; got != want {
		t.Fatalf("Bottom = %v, want %v", got, want)
	}
}

func TestFontMeasurer(t *testing.T) {
	m, err := NewFontMeasurer()
	if err != nil {
		t.Fatalf("NewFontMeasurer: %v", err)
	}
	regular := m.MeasureTextWidth("Hello", Style{Size: 14})
	bold := m.MeasureTextWidth("Hello", Style{Size: 14, Bold: true})
	if regular <= 0 || bold <= regular {
		t.Fatalf("bold width %v should exceed regular width %v", bold, regular)
	}
	if big := m.MeasureTextWidth("Hello", Style{Size: 28}); big <= regular {
		t.Fatalf("larger size should be wider: %v <= %v", big, regular)
	}

	narrow := m.MeasureTextWidth("iii", Style{Font: "mono", Size: 12})
	wide := m.MeasureTextWidth("MMM", Style{Font: "mono", Size: 12})
	if narrow != wide {
		t.Fatalf("mono font should have equal advances, got %v and %v", narrow, wide)
	}

	metrics := m.MeasureTextMetrics(Style{Size: 14})
	if metrics.Baseline <= 0 || metrics.Bottom <= metrics.Baseline || metrics.XTop <= 0 {
		t.Fatalf("implausible metrics %+v", metrics)
	}
}

func TestStyleFromAttributes(t *testing.T) {
	s := StyleFromAttributes(delta.AttributeMap{"bold": true, "size": float64(20), "font": "mono"})
	if !s.Bold || s.Italic || s.Size != 20 || s.Font != "mono" {
		t.Fatalf("unexpected style %+v", s)
	}
	if got := StyleFromAttributes(nil).Size; got != DefaultFontSize {
		t.Fatalf("default size = %v, want %v", got, DefaultFontSize)
	}
}

func TestMetricsMax(t *testing.T) {
	a := Metrics{Baseline: 10, Bottom: 12}
	b := Metrics{Baseline: 8, Bottom: 14}
	got := a.Max(b)
	if got.Baseline != 10 || got.Bottom != 16 {
		t.Fatalf("Max = %+v, want baseline 10 bottom 16", got)
	}
}
