package block

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/fragment"
	"github.com/bethropolis/scribe/internal/frame"
	"github.com/bethropolis/scribe/internal/logger"
	"github.com/bethropolis/scribe/internal/types"
)

// CellPadding insets cell content from the cell border.
const CellPadding = 1

// Cell is one table cell: a run of frames placed on the grid.
type Cell struct {
	frames frameList

	Row, Col         int
	RowSpan, ColSpan int

	start      int
	needLayout bool

	// Box relative to the table.
	X, Y, Width, Height float64
	contentHeight       float64
}

// Frames returns the cell's frames.
func (c *Cell) Frames() []*frame.Frame { return c.frames }

// Start is the cell's offset from the table start.
func (c *Cell) Start() int { return c.start }

// Len is the cell's stream length.
func (c *Cell) Len() int { return c.frames.length() }

// Text is the cell content with a newline per frame.
func (c *Cell) Text() string { return c.frames.text() }

func (c *Cell) coversCol(col int) bool { return col >= c.Col && col < c.Col+c.ColSpan }
func (c *Cell) coversRow(row int) bool { return row >= c.Row && row < c.Row+c.RowSpan }

// Row is one table row.
type Row struct {
	Cells []*Cell
	// MinHeight is the row height set by the user; content may make it taller.
	MinHeight float64
	Y         float64
	Height    float64
}

// Table is a grid of cells. Each cell's last frame terminator carries
// "cell", the last cell of a row also "row"; other frames inside a cell are
// marked "cellLine". The first terminator carries the table header.
type Table struct {
	Common
	rows      []*Row
	colWidths []float64
	colX      []float64
	ncols     int

	relaidOut int
}

var _ Block = (*Table)(nil)

func (t *Table) Tag() string { return delta.BlockTable }

// Rows returns the table rows.
func (t *Table) Rows() []*Row { return t.rows }

// Columns is the number of grid columns.
func (t *Table) Columns() int { return t.ncols }

// ColumnWidths returns the explicit column widths, or nil.
func (t *Table) ColumnWidths() []float64 { return t.colWidths }

func (t *Table) Attributes() delta.AttributeMap {
	attrs := delta.AttributeMap{delta.AttrBlock: delta.BlockTable}
	if len(t.colWidths) > 0 {
		attrs["colWidths"] = formatWidths(t.colWidths)
	}
	return attrs
}

func formatWidths(ws []float64) string {
	parts := make([]string, len(ws))
	for i, w := range ws {
		parts[i] = strconv.FormatFloat(w, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func parseWidths(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ws := make([]float64, len(parts))
	for i, p := range parts {
		w, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column width %q", ErrMalformed, p)
		}
		ws[i] = w
	}
	return ws, nil
}

func span(attrs delta.AttributeMap, key string) int {
	if n, ok := attrs.Number(key); ok && n > 1 {
		return int(n)
	}
	return 1
}

func (t *Table) ReadFromOps(ops []delta.Op) error {
	frames, headers, err := readFrames(ops)
	if err != nil {
		return err
	}
	widths, err := parseWidths(headers[0].String("colWidths"))
	if err != nil {
		return err
	}
	var rows []*Row
	var row *Row
	var cell *Cell
	for i, f := range frames {
		h := headers[i]
		if cell == nil {
			cell = &Cell{needLayout: true}
		}
		cell.frames = append(cell.frames, f)
		if !h.Bool("cell") {
			continue
		}
		cell.RowSpan, cell.ColSpan = span(h, "rowspan"), span(h, "colspan")
		if row == nil {
			row = &Row{}
		}
		row.Cells = append(row.Cells, cell)
		cell = nil
		if h.Bool("row") {
			row.MinHeight, _ = h.Number("rowHeight")
			rows = append(rows, row)
			row = nil
		}
	}
	if cell != nil || row != nil || len(rows) == 0 {
		return fmt.Errorf("%w: table does not end with a closed row", ErrMalformed)
	}
	t.rows = rows
	t.colWidths = widths
	if key := headers[0].String("key"); key != "" {
		t.key = key
	}
	t.reindex()
	return nil
}

func (t *Table) ToOp(withKey bool) []delta.Op {
	var ops []delta.Op
	first := true
	for _, row := range t.rows {
		for ci, cell := range row.Cells {
			for fi, f := range cell.frames {
				header := delta.AttributeMap{}
				if first {
					header = keyed(t.Attributes(), &t.Common, withKey)
					first = false
				}
				if fi < len(cell.frames)-1 {
					header["cellLine"] = true
				} else {
					header["cell"] = true
					if cell.ColSpan > 1 {
						header["colspan"] = cell.ColSpan
					}
					if cell.RowSpan > 1 {
						header["rowspan"] = cell.RowSpan
					}
					if ci == len(row.Cells)-1 {
						header["row"] = true
						if row.MinHeight > 0 {
							header["rowHeight"] = row.MinHeight
						}
					}
				}
				ops = append(ops, withHeader(f, header)...)
			}
		}
	}
	return ops
}

// reindex recomputes cell offsets, grid positions and the flattened frame list.
func (t *Table) reindex() {
	var all frameList
	occupied := map[[2]int]bool{}
	start := 0
	t.ncols = 0
	for r, row := range t.rows {
		c := 0
		for _, cell := range row.Cells {
			for occupied[[2]int{r, c}] {
				c++
			}
			cell.Row, cell.Col = r, c
			for dr := 0; dr < cell.RowSpan; dr++ {
				for dc := 0; dc < cell.ColSpan; dc++ {
					occupied[[2]int{r + dr, c + dc}] = true
				}
			}
			c += cell.ColSpan
			t.ncols = max(t.ncols, c)
			cell.start = start
			start += cell.Len()
			all = append(all, cell.frames...)
		}
	}
	t.frames = all
	t.changed()
}

// Cells returns every cell in stream order.
func (t *Table) Cells() []*Cell {
	var out []*Cell
	for _, row := range t.rows {
		out = append(out, row.Cells...)
	}
	return out
}

// CellAt returns the cell covering grid position (row, col).
func (t *Table) CellAt(row, col int) *Cell {
	for _, cell := range t.Cells() {
		if cell.coversRow(row) && cell.coversCol(col) {
			return cell
		}
	}
	return nil
}

// cellAt returns the cell holding table offset pos and the offset into it.
func (t *Table) cellAt(pos int) (*Cell, int) {
	cells := t.Cells()
	for _, cell := range cells {
		if pos < cell.start+cell.Len() {
			return cell, max(pos-cell.start, 0)
		}
	}
	last := cells[len(cells)-1]
	return last, last.Len() - 1
}

func (t *Table) edited(cell *Cell) {
	cell.needLayout = true
	t.reindex()
}

func (t *Table) InsertText(_ *Mutation, pos int, text string, attrs delta.AttributeMap) {
	cell, off := t.cellAt(pos)
	cell.frames.insertText(off, text, attrs)
	t.edited(cell)
}

func (t *Table) InsertFragment(_ *Mutation, pos int, frag fragment.Fragment) {
	cell, off := t.cellAt(pos)
	cell.frames.insertFragment(off, frag)
	t.edited(cell)
}

// InsertEnter adds a line inside the cell at pos.
func (t *Table) InsertEnter(_ *Mutation, pos int) Block {
	cell, off := t.cellAt(pos)
	cell.frames.split(off)
	t.edited(cell)
	return nil
}

// Delete removes content cell by cell. Cell boundaries are never removed:
// a backspace at the start of a cell does nothing.
func (t *Table) Delete(_ *Mutation, start, end int, forward bool) {
	if start == end {
		cell, off := t.cellAt(start)
		if off == 0 {
			return
		}
		cell.frames.delete(off, off, forward)
		t.edited(cell)
		return
	}
	for _, cell := range t.Cells() {
		cs, ce := cell.start, cell.start+cell.Len()
		if end <= cs || start >= ce {
			continue
		}
		cell.frames.delete(max(start-cs, 0), min(end-cs, cell.Len()), false)
		cell.needLayout = true
	}
	t.reindex()
}

func (t *Table) eachCell(start, end int, fn func(c *Cell, lo, hi int)) {
	for _, cell := range t.Cells() {
		cs, ce := cell.start, cell.start+cell.Len()
		if (end > cs && start < ce) || (start == end && start >= cs && start < ce) {
			fn(cell, max(start-cs, 0), min(end-cs, cell.Len()))
		}
	}
}

func (t *Table) Format(_ *Mutation, start, end int, attrs delta.AttributeMap) {
	t.eachCell(start, end, func(c *Cell, lo, hi int) {
		c.frames.format(lo, hi, attrs)
		c.needLayout = true
	})
	t.reindex()
}

func (t *Table) ClearFormat(m *Mutation, start, end int) {
	t.Format(m, start, end, clearAttrs())
}

func (t *Table) CollectFormat(start, end int, into map[string][]any) {
	t.eachCell(start, end, func(c *Cell, lo, hi int) {
		c.frames.collectFormat(lo, hi, into)
	})
}

// CorrectSelectionPos keeps a selection inside one cell as is. A selection
// across cells becomes the rectangle of cells both ends span, one range per
// row, each excluding the closing terminator of its last cell.
func (t *Table) CorrectSelectionPos(start, end int) []types.Range {
	a, aoff := t.cellAt(start)
	b, boff := t.cellAt(end)
	if a == b {
		s, e := a.frames.snap(aoff, boff)
		return []types.Range{{Start: types.Nested(0, a.start+s), End: types.Nested(0, a.start+e)}}
	}
	r0, r1 := min(a.Row, b.Row), max(a.Row+a.RowSpan, b.Row+b.RowSpan)-1
	c0, c1 := min(a.Col, b.Col), max(a.Col+a.ColSpan, b.Col+b.ColSpan)-1
	var out []types.Range
	for r := r0; r <= r1; r++ {
		var first, last *Cell
		for _, cell := range t.rows[r].Cells {
			if cell.Col+cell.ColSpan-1 < c0 || cell.Col > c1 {
				continue
			}
			if first == nil {
				first = cell
			}
			last = cell
		}
		if first == nil {
			continue
		}
		out = append(out, types.Range{
			Start: types.Nested(0, first.start),
			End:   types.Nested(0, last.start+last.Len()-1),
		})
	}
	return out
}

func (t *Table) GetSelectionRectangles(start, end int) []types.Rect {
	var out []types.Rect
	t.eachCell(start, end, func(c *Cell, lo, hi int) {
		out = append(out, c.frames.rects(lo, hi)...)
	})
	return out
}

func (t *Table) GetDocumentPos(x, y float64) types.DocPos {
	var best *Cell
	for _, cell := range t.Cells() {
		if (types.Rect{X: cell.X, Y: cell.Y, W: cell.Width, H: cell.Height}).Contains(x, y) {
			best = cell
			break
		}
	}
	if best == nil {
		row := len(t.rows) - 1
		for i, r := range t.rows {
			if y < r.Y+r.Height {
				row = i
				break
			}
		}
		col := t.ncols - 1
		for i := 0; i < t.ncols && i < len(t.colX); i++ {
			if x < t.colX[i] {
				col = max(i-1, 0)
				break
			}
		}
		best = t.CellAt(row, col)
		if best == nil {
			best = t.rows[row].Cells[0]
		}
	}
	return types.Nested(0, best.start+best.frames.documentPos(x, y))
}

func (t *Table) CaretRect(pos int) types.Rect {
	cell, off := t.cellAt(pos)
	return cell.frames.caretRect(off)
}

// columnWidths returns the width of every column for a table width.
func (t *Table) columnWidths(width float64) []float64 {
	if len(t.colWidths) == t.ncols && t.ncols > 0 {
		return t.colWidths
	}
	ws := make([]float64, t.ncols)
	for i := range ws {
		if i < len(t.colWidths) {
			ws[i] = t.colWidths[i]
		} else {
			ws[i] = width / float64(max(t.ncols, 1))
		}
	}
	return ws
}

// SetColumnWidth sets one column's width. Only cells spanning that column
// are laid out again.
func (t *Table) SetColumnWidth(col int, w float64) {
	if col < 0 || col >= t.ncols {
		return
	}
	t.colWidths = append([]float64(nil), t.columnWidths(t.width)...)
	t.colWidths[col] = w
	for _, cell := range t.Cells() {
		if cell.coversCol(col) {
			cell.needLayout = true
		}
	}
	t.needLayout = true
}

// SetRowHeight sets one row's minimum height and marks the cells in it.
func (t *Table) SetRowHeight(row int, h float64) {
	if row < 0 || row >= len(t.rows) {
		return
	}
	t.rows[row].MinHeight = h
	for _, cell := range t.Cells() {
		if cell.coversRow(row) {
			cell.needLayout = true
		}
	}
	t.needLayout = true
}

func (t *Table) NeedLayout() bool {
	if t.Common.NeedLayout() {
		return true
	}
	for _, cell := range t.Cells() {
		if cell.needLayout {
			return true
		}
	}
	return false
}

// Layout sizes columns and rows and places every cell. Frames of cells
// not marked dirty keep their lines.
func (t *Table) Layout(env *Env) {
	if t.width != env.Width {
		for _, cell := range t.Cells() {
			cell.needLayout = true
		}
	}
	t.width = env.Width
	cols := t.columnWidths(env.Width)
	t.colX = make([]float64, len(cols)+1)
	for i, w := range cols {
		t.colX[i+1] = t.colX[i] + w
	}

	t.relaidOut = 0
	cells := t.Cells()
	for _, cell := range cells {
		cw := t.colX[min(cell.Col+cell.ColSpan, len(cols))] - t.colX[cell.Col]
		if cell.needLayout || cell.Width != cw {
			cell.Width = cw
			cell.contentHeight = cell.frames.layout(env.Measurer, cw-2*CellPadding, 0) + 2*CellPadding
			cell.needLayout = false
			t.relaidOut++
		}
	}

	heights := make([]float64, len(t.rows))
	for r, row := range t.rows {
		heights[r] = row.MinHeight
		for _, cell := range row.Cells {
			if cell.RowSpan == 1 {
				heights[r] = max(heights[r], cell.contentHeight)
			}
		}
	}
	for _, cell := range cells {
		if cell.RowSpan > 1 {
			last := min(cell.Row+cell.RowSpan, len(t.rows)) - 1
			sum := 0.0
			for r := cell.Row; r <= last; r++ {
				sum += heights[r]
			}
			if cell.contentHeight > sum {
				heights[last] += cell.contentHeight - sum
			}
		}
	}

	y := 0.0
	for r, row := range t.rows {
		row.Y, row.Height = y, heights[r]
		y += heights[r]
	}
	for _, cell := range cells {
		cell.X = t.colX[cell.Col]
		cell.Y = t.rows[cell.Row].Y
		last := min(cell.Row+cell.RowSpan, len(t.rows)) - 1
		cell.Height = t.rows[last].Y + t.rows[last].Height - cell.Y
		fy := cell.Y + CellPadding
		for _, f := range cell.frames {
			f.X = cell.X + CellPadding
			f.Y = fy
			fy += f.Height
		}
	}
	t.Height = y
	t.needLayout = false
	logger.DebugTagf("layout", "table %s: %d of %d cells laid out", t.key, t.relaidOut, len(cells))
}
