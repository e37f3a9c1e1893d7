package measure

import "github.com/mattn/go-runewidth"

// CellMeasurer measures text in terminal cells: every column is CellWidth
// pixels wide and every line LineHeight tall, whatever the style.
type CellMeasurer struct {
	CellWidth  float64
	LineHeight float64
}

// NewCellMeasurer returns a cell measurer. Non-positive sizes default to 1.
func NewCellMeasurer(cellWidth, lineHeight float64) *CellMeasurer {
	if cellWidth <= 0 {
		cellWidth = 1
	}
	if lineHeight <= 0 {
		lineHeight = 1
	}
	return &CellMeasurer{CellWidth: cellWidth, LineHeight: lineHeight}
}

func (c *CellMeasurer) MeasureTextWidth(text string, _ Style) float64 {
	return float64(runewidth.StringWidth(text)) * c.CellWidth
}

func (c *CellMeasurer) MeasureTextMetrics(_ Style) Metrics {
	return Metrics{Baseline: c.LineHeight * 0.8, Bottom: c.LineHeight, XTop: c.LineHeight * 0.4}
}

func (c *CellMeasurer) PointsToPixels(size float64) float64 {
	return size
}
