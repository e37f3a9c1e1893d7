package block

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/fragment"
	"github.com/bethropolis/scribe/internal/frame"
	"github.com/bethropolis/scribe/internal/logger"
	"github.com/bethropolis/scribe/internal/measure"
)

// List types.
const (
	ListDecimal      = "ol1"
	ListCJK          = "ol2"
	ListMultiDecimal = "ol3"
	ListBullet       = "ul1"
	ListCircle       = "ul2"
	ListSquare       = "ul3"
)

var bullets = []string{"•", "◦", "▪"}

// ListItem is one item of a list. Items sharing a listId are numbered
// together; the number is derived from the preceding items at layout time.
type ListItem struct {
	Common

	listType string
	listID   string
	indent   int

	index       int
	parentTitle string
	title       string
	titleX      float64
	titleWidth  float64
}

var _ Block = (*ListItem)(nil)

// NewListItem returns an empty item.
func NewListItem(listType, listID string, indent int) *ListItem {
	li := &ListItem{listType: listType, listID: listID, indent: indent}
	li.frames = frameList{frame.New()}
	li.changed()
	return li
}

func (l *ListItem) Tag() string { return delta.BlockList }

// ListID groups the items numbered together.
func (l *ListItem) ListID() string { return l.listID }

// ListType is the marker style.
func (l *ListItem) ListType() string { return l.listType }

// Indent is the nesting level.
func (l *ListItem) Indent() int { return l.indent }

// Index is the item's number within its level, from 1.
func (l *ListItem) Index() int { return l.index }

// ParentTitle is the numbering prefix inherited from enclosing items.
func (l *ListItem) ParentTitle() string { return l.parentTitle }

// Title is the marker text drawn before the item.
func (l *ListItem) Title() string { return l.title }

// TitleX is the marker's offset from the block's left edge.
func (l *ListItem) TitleX() float64 { return l.titleX }

func (l *ListItem) Attributes() delta.AttributeMap {
	attrs := delta.AttributeMap{delta.AttrBlock: delta.BlockList, "list": l.listType}
	if l.listID != "" {
		attrs["listId"] = l.listID
	}
	if l.indent > 0 {
		attrs["indent"] = l.indent
	}
	return attrs
}

func (l *ListItem) ReadFromOps(ops []delta.Op) error {
	frames, headers, err := readFrames(ops)
	if err != nil {
		return err
	}
	h := headers[0]
	l.frames = frames
	l.listType = h.String("list")
	if l.listType == "" {
		l.listType = ListDecimal
	}
	l.listID = h.String("listId")
	if n, ok := h.Number("indent"); ok && n > 0 {
		l.indent = int(n)
	}
	if key := h.String("key"); key != "" {
		l.key = key
	}
	l.changed()
	return nil
}

// ToOp puts the list header on the first frame; following frames are
// continuation lines of the same item.
func (l *ListItem) ToOp(withKey bool) []delta.Op {
	var ops []delta.Op
	for i, f := range l.frames {
		var header delta.AttributeMap
		if i == 0 {
			header = keyed(l.Attributes(), &l.Common, withKey)
		}
		ops = append(ops, withHeader(f, header)...)
	}
	return ops
}

func (l *ListItem) listChanged(m *Mutation) {
	m.Push(ListChanged{ListID: l.listID})
}

// InsertEnter starts a new item of the same list holding the content after pos.
func (l *ListItem) InsertEnter(m *Mutation, pos int) Block {
	i := l.frames.split(pos)
	next := &ListItem{listType: l.listType, listID: l.listID, indent: l.indent}
	next.frames = append(frameList(nil), l.frames[i:]...)
	l.frames = l.frames[:i]
	l.changed()
	next.changed()
	l.listChanged(m)
	return next
}

func (l *ListItem) Delete(m *Mutation, start, end int, forward bool) {
	l.Common.Delete(m, start, end, forward)
	l.listChanged(m)
}

// Renumber recomputes the item's index from the items before it: the
// nearest earlier item of the same list at the same indent continues its
// numbering, a shallower one makes this item the first child of it, and
// deeper ones are skipped.
func (l *ListItem) Renumber(chain Chain) {
	index, parent := 1, ""
	if chain != nil {
		for p := chain.Prev(l.key); p != nil; p = chain.Prev(p.Base().key) {
			prev, ok := p.(*ListItem)
			if !ok || prev.listID != l.listID {
				continue
			}
			if prev.indent == l.indent {
				index, parent = prev.index+1, prev.parentTitle
				break
			}
			if prev.indent < l.indent {
				parent = prev.parentTitle + strconv.Itoa(prev.index) + "."
				break
			}
		}
	}
	if index != l.index || parent != l.parentTitle {
		logger.DebugTagf("list", "item %s of %s: %d -> %d", l.key, l.listID, l.index, index)
	}
	l.index, l.parentTitle = index, parent
	l.title = listTitle(l.listType, l.indent, l.index, l.parentTitle)
}

func listTitle(listType string, indent, index int, parent string) string {
	switch listType {
	case ListCJK:
		return cjkNumber(index) + "、"
	case ListMultiDecimal:
		return parent + strconv.Itoa(index) + "."
	case ListBullet, ListCircle, ListSquare:
		base := int(listType[len(listType)-1] - '1')
		return bullets[(base+indent)%len(bullets)]
	}
	return strconv.Itoa(index) + "."
}

var cjkDigits = []string{"零", "一", "二", "三", "四", "五", "六", "七", "八", "九"}

// cjkNumber writes n in Chinese numerals; values past 99 fall back to digits.
func cjkNumber(n int) string {
	switch {
	case n < 0 || n > 99:
		return strconv.Itoa(n)
	case n < 10:
		return cjkDigits[n]
	}
	var b strings.Builder
	if tens := n / 10; tens > 1 {
		b.WriteString(cjkDigits[tens])
	}
	b.WriteString("十")
	if ones := n % 10; ones > 0 {
		b.WriteString(cjkDigits[ones])
	}
	return b.String()
}

func (l *ListItem) titleStyle() measure.Style {
	for _, c := range l.frames[0].Children() {
		if c.Kind() == fragment.KindText {
			return measure.StyleFromAttributes(c.Attributes())
		}
	}
	return measure.StyleFromAttributes(l.frames[0].Attributes())
}

// Layout renumbers the item, then lays its frames out behind a gutter wide
// enough for the marker at its indent level.
func (l *ListItem) Layout(env *Env) {
	l.Renumber(env.Chain)
	m := env.Measurer
	style := l.titleStyle()
	unit := m.MeasureTextWidth("    ", style)
	space := m.MeasureTextWidth(" ", style)
	l.titleWidth = m.MeasureTextWidth(l.title, style)
	gutter := max(float64(l.indent+1)*unit, float64(l.indent)*unit+l.titleWidth+space)
	l.titleX = gutter - l.titleWidth - space

	titleMetrics := m.MeasureTextMetrics(style)
	for i, f := range l.frames {
		if i == 0 {
			f.SetMinMetrics(titleMetrics)
		} else {
			f.SetMinMetrics(measure.Metrics{})
		}
	}
	l.layoutFrames(env, gutter)
}

// String describes the item for debugging.
func (l *ListItem) String() string {
	return fmt.Sprintf("%s %q (list %s, indent %d)", l.title, l.Text(), l.listID, l.indent)
}
