package block

import (
	"context"
	"testing"

	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/fragment"
	"github.com/bethropolis/scribe/internal/highlighter"
	"github.com/bethropolis/scribe/internal/idle"
	"github.com/bethropolis/scribe/internal/measure"
)

func txt(s string) delta.Op { return delta.Op{Insert: s} }

func end(attrs delta.AttributeMap) delta.Op {
	a := delta.AttributeMap{delta.AttrFrag: delta.FragEnd}
	for k, v := range attrs {
		a[k] = v
	}
	return delta.Op{Embed: true, Attributes: a}
}

func sameOps(t *testing.T, got, want []delta.Op) {
	t.Helper()
	if !delta.New(got...).Equal(*delta.New(want...)) {
		t.Fatalf("ops = %v\nwant  %v", got, want)
	}
}

func mustNew(t *testing.T, tag string, ops ...delta.Op) Block {
	t.Helper()
	b, err := New(tag, ops)
	if err != nil {
		t.Fatalf("New(%s): %v", tag, err)
	}
	return b
}

// sliceChain links blocks in slice order.
type sliceChain []Block

func (c sliceChain) find(key string) int {
	for i, b := range c {
		if b.Base().Key() == key {
			return i
		}
	}
	return -1
}

func (c sliceChain) Prev(key string) Block {
	if i := c.find(key); i > 0 {
		return c[i-1]
	}
	return nil
}

func (c sliceChain) Next(key string) Block {
	if i := c.find(key); i >= 0 && i < len(c)-1 {
		return c[i+1]
	}
	return nil
}

func cellEnv(width float64) *Env {
	return &Env{Measurer: measure.NewCellMeasurer(1, 1), Width: width}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		ops  []delta.Op
	}{
		{"paragraph", delta.BlockPara, []delta.Op{txt("A"), end(delta.AttributeMap{"block": "para"})}},
		{"headless paragraph", delta.BlockPara, []delta.Op{txt("A"), end(delta.AttributeMap{"align": "right"})}},
		{"quote with headless line", delta.BlockQuote, []delta.Op{
			txt("A"), end(delta.AttributeMap{"block": "quote"}),
			txt("B"), end(nil),
			txt("C"), end(delta.AttributeMap{"block": "quote"}),
		}},
		{"code with headless line", delta.BlockCode, []delta.Op{
			txt("a := 1"), end(delta.AttributeMap{"block": "code", "lang": "go"}),
			txt("b := 2"), end(nil),
		}},
		{"quote", delta.BlockQuote, []delta.Op{
			txt("to be"), end(delta.AttributeMap{"block": "quote"}),
			txt("or not"), end(delta.AttributeMap{"block": "quote", "align": "center"}),
		}},
		{"list", delta.BlockList, []delta.Op{
			txt("one"), end(delta.AttributeMap{"block": "list", "list": "ol1", "listId": "L"}),
			txt("more"), end(nil),
		}},
		{"code", delta.BlockCode, []delta.Op{
			txt("a := 1"), end(delta.AttributeMap{"block": "code", "lang": "go"}),
			txt("b := 2"), end(delta.AttributeMap{"block": "code", "lang": "go"}),
		}},
		{"table", delta.BlockTable, []delta.Op{
			txt("a"), end(delta.AttributeMap{"block": "table", "colWidths": "5,7", "cell": true}),
			txt("b"), end(delta.AttributeMap{"cell": true, "row": true, "rowHeight": 4.0}),
			txt("c"), end(delta.AttributeMap{"cellLine": true}),
			txt("c2"), end(delta.AttributeMap{"cell": true}),
			txt("d"), end(delta.AttributeMap{"cell": true, "row": true}),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustNew(t, tt.tag, tt.ops...)
			if b.Tag() != tt.tag {
				t.Fatalf("Tag() = %q, want %q", b.Tag(), tt.tag)
			}
			sameOps(t, b.ToOp(false), tt.ops)
			if got, want := b.Base().Len(), delta.New(tt.ops...).Length(); got != want {
				t.Fatalf("Len() = %d, want %d", got, want)
			}
		})
	}
}

func TestRegisteredVariants(t *testing.T) {
	for _, tag := range []string{delta.BlockPara, delta.BlockQuote, delta.BlockList, delta.BlockTable, delta.BlockCode} {
		c, ok := Lookup(tag)
		if !ok {
			t.Fatalf("no constructor for %q", tag)
		}
		b := c()
		if b.Tag() != tag {
			t.Errorf("constructor for %q built %q", tag, b.Tag())
		}
		if b.Base() == nil {
			t.Errorf("%s: Base() is nil", tag)
		}
	}
}

func TestToOpWithKey(t *testing.T) {
	b := mustNew(t, delta.BlockQuote,
		txt("a"), end(delta.AttributeMap{"block": "quote", "key": "k1"}),
		txt("b"), end(delta.AttributeMap{"block": "quote"}))
	if b.Base().Key() != "k1" {
		t.Fatalf("Key() = %q, want k1", b.Base().Key())
	}
	ops := b.ToOp(true)
	if ops[1].Attributes.String("key") != "k1" || ops[3].Attributes.String("key") != "" {
		t.Fatalf("key should be on the first terminator only: %v", ops)
	}
}

func TestReadErrors(t *testing.T) {
	if _, err := New("nope", []delta.Op{end(nil)}); err == nil {
		t.Fatalf("unknown tag should fail")
	}
	if _, err := New(delta.BlockPara, []delta.Op{txt("A")}); err == nil {
		t.Fatalf("missing terminator should fail")
	}
	if _, err := New(delta.BlockPara, []delta.Op{txt("A"), end(nil), txt("B"), end(nil)}); err == nil {
		t.Fatalf("two-frame paragraph should fail")
	}
	if _, err := New(delta.BlockTable, []delta.Op{txt("A"), end(delta.AttributeMap{"block": "table", "cell": true})}); err == nil {
		t.Fatalf("unclosed row should fail")
	}
}

func TestParagraphInsertEnter(t *testing.T) {
	p := NewParagraph(nil)
	p.InsertText(nil, 0, "hello", nil)
	next := p.InsertEnter(nil, 2)
	if p.Text() != "he\n" || next.Text() != "llo\n" {
		t.Fatalf("split into %q + %q", p.Text(), next.Text())
	}
	if p.Len() != 3 || next.Base().Len() != 4 {
		t.Fatalf("lengths %d + %d, want 3 + 4", p.Len(), next.Base().Len())
	}
}

func TestQuoteDeleteTerminatorMergesFrames(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		forward    bool
	}{
		{"range", 2, 3, false},
		{"backspace", 3, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := mustNew(t, delta.BlockQuote,
				txt("ab"), end(delta.AttributeMap{"block": "quote"}),
				txt("cd"), end(delta.AttributeMap{"block": "quote"}))
			q.Delete(nil, tt.start, tt.end, tt.forward)
			if got := len(q.Frames()); got != 1 {
				t.Fatalf("frames = %d, want 1", got)
			}
			if q.Text() != "abcd\n" || q.Base().Len() != 5 {
				t.Fatalf("text %q len %d", q.Text(), q.Base().Len())
			}
		})
	}
}

func TestQuoteInsertEnterAndMerge(t *testing.T) {
	q := mustNew(t, delta.BlockQuote, txt("abcd"), end(delta.AttributeMap{"block": "quote"})).(*Quote)
	if next := q.InsertEnter(nil, 2); next != nil {
		t.Fatalf("quote enter should stay in one block")
	}
	if len(q.Frames()) != 2 {
		t.Fatalf("frames = %d, want 2", len(q.Frames()))
	}
	other := mustNew(t, delta.BlockQuote, txt("e"), end(delta.AttributeMap{"block": "quote"}))
	if !q.CanMerge(other) || q.CanMerge(NewParagraph(nil)) {
		t.Fatalf("quotes merge only with quotes")
	}
	q.Merge(other)
	if q.Text() != "ab\ncd\ne\n" {
		t.Fatalf("merged text %q", q.Text())
	}
}

func TestHeadlessLinesSurviveSplitAndMerge(t *testing.T) {
	quote := delta.AttributeMap{"block": "quote"}
	q := mustNew(t, delta.BlockQuote, txt("a"), end(quote), txt("bc"), end(nil)).(*Quote)
	q.InsertEnter(nil, 3)
	sameOps(t, q.ToOp(false), []delta.Op{txt("a"), end(quote), txt("b"), end(nil), txt("c"), end(nil)})

	// Splitting a headed line keeps both halves headed.
	q.InsertEnter(nil, 0)
	sameOps(t, q.ToOp(false), []delta.Op{end(quote), txt("a"), end(quote), txt("b"), end(nil), txt("c"), end(nil)})

	other := mustNew(t, delta.BlockQuote, txt("x"), end(quote), txt("y"), end(nil))
	q.Merge(other)
	sameOps(t, q.ToOp(false), []delta.Op{
		end(quote), txt("a"), end(quote), txt("b"), end(nil), txt("c"), end(nil),
		txt("x"), end(quote), txt("y"), end(nil),
	})

	// Joining two lines keeps the form of the surviving terminator; the
	// first line is always headed.
	q.Delete(nil, 1, 1, true)
	q.Delete(nil, 3, 4, false)
	sameOps(t, q.ToOp(false), []delta.Op{
		txt("a"), end(quote), txt("bc"), end(nil),
		txt("x"), end(quote), txt("y"), end(nil),
	})

	code := delta.AttributeMap{"block": "code", "lang": "go"}
	c := mustNew(t, delta.BlockCode, txt("ab"), end(code), txt("cd"), end(nil))
	c.InsertEnter(nil, 4)
	sameOps(t, c.ToOp(false), []delta.Op{txt("ab"), end(code), txt("c"), end(nil), txt("d"), end(nil)})
}

func newItem(listType, id string, indent int) *ListItem {
	li := NewListItem(listType, id, indent)
	li.EnsureKey()
	return li
}

func renumber(blocks ...Block) {
	c := sliceChain(blocks)
	for _, b := range blocks {
		if li, ok := b.(*ListItem); ok {
			li.Renumber(c)
		}
	}
}

func TestListNumbering(t *testing.T) {
	items := []*ListItem{
		newItem(ListMultiDecimal, "L", 0),
		newItem(ListMultiDecimal, "L", 1),
		newItem(ListMultiDecimal, "M", 0),
		newItem(ListMultiDecimal, "L", 1),
		newItem(ListMultiDecimal, "L", 2),
		newItem(ListMultiDecimal, "L", 0),
	}
	para := NewParagraph(nil)
	para.EnsureKey()
	blocks := []Block{items[0], items[1], items[2], para, items[3], items[4], items[5]}
	renumber(blocks...)

	want := []string{"1.", "1.1.", "1.", "1.2.", "1.2.1.", "2."}
	for i, li := range items {
		if li.Title() != want[i] {
			t.Errorf("item %d title = %q, want %q", i, li.Title(), want[i])
		}
	}
	if items[5].Index() != 2 || items[5].ParentTitle() != "" {
		t.Errorf("shallower item after deeper ones: index %d parent %q", items[5].Index(), items[5].ParentTitle())
	}
}

func TestListTitles(t *testing.T) {
	tests := []struct {
		listType string
		indent   int
		index    int
		want     string
	}{
		{ListDecimal, 0, 3, "3."},
		{ListCJK, 0, 1, "一、"},
		{ListCJK, 0, 10, "十、"},
		{ListCJK, 0, 21, "二十一、"},
		{ListCJK, 0, 100, "100、"},
		{ListBullet, 0, 1, "•"},
		{ListBullet, 1, 1, "◦"},
		{ListCircle, 0, 1, "◦"},
		{ListSquare, 1, 1, "•"},
	}
	for _, tt := range tests {
		if got := listTitle(tt.listType, tt.indent, tt.index, ""); got != tt.want {
			t.Errorf("listTitle(%s, %d, %d) = %q, want %q", tt.listType, tt.indent, tt.index, got, tt.want)
		}
	}
}

func TestListInsertEnterReportsList(t *testing.T) {
	li := newItem(ListDecimal, "L", 1)
	li.InsertText(nil, 0, "ab", nil)
	m := &Mutation{}
	next, ok := li.InsertEnter(m, 1).(*ListItem)
	if !ok {
		t.Fatalf("enter in a list item should return a new item")
	}
	if li.Text() != "a\n" || next.Text() != "b\n" {
		t.Fatalf("split into %q + %q", li.Text(), next.Text())
	}
	if next.ListID() != "L" || next.Indent() != 1 || next.ListType() != ListDecimal {
		t.Fatalf("new item lost list attributes: %v", next.Attributes())
	}
	if ids := m.ListIDs(); len(ids) != 1 || ids[0] != "L" {
		t.Fatalf("ListIDs() = %v, want [L]", ids)
	}
	li.Delete(m, 0, 1, false)
	if ids := m.ListIDs(); len(ids) != 1 {
		t.Fatalf("duplicate messages should collapse, got %v", ids)
	}
}

func TestListLayoutGutter(t *testing.T) {
	li := newItem(ListDecimal, "L", 0)
	li.InsertText(nil, 0, "item", nil)
	env := cellEnv(40)
	env.Chain = sliceChain{li}
	li.Layout(env)
	// "1." is 2 cells, the indent unit 4, a space 1.
	if got, want := li.TitleX(), 1.0; got != want {
		t.Fatalf("TitleX() = %v, want %v", got, want)
	}
	if got, want := li.Frames()[0].Indent(), 4.0; got != want {
		t.Fatalf("frame indent = %v, want %v", got, want)
	}
	if li.NeedLayout() {
		t.Fatalf("layout should leave the item clean")
	}
}

type fakeTokenizer struct {
	sources []string
}

func (f *fakeTokenizer) Tokenize(_ context.Context, source []byte, _ string) ([]highlighter.Token, error) {
	f.sources = append(f.sources, string(source))
	return []highlighter.Token{{Start: 0, End: 4, Style: "keyword"}}, nil
}

type fakeStyler struct{}

func (fakeStyler) Attributes(name string) delta.AttributeMap {
	if name == "keyword" {
		return delta.AttributeMap{"color": "#ff0000"}
	}
	return nil
}

func TestCodeRecolorsInIdleTime(t *testing.T) {
	q := idle.NewQueue()
	tok := &fakeTokenizer{}
	redraws := 0
	env := cellEnv(80)
	env.Scheduler, env.Tokenizer, env.Styler = q, tok, fakeStyler{}
	env.Redraw = func(Block) { redraws++ }

	c := mustNew(t, delta.BlockCode, txt("func x"), end(delta.AttributeMap{"block": "code", "lang": "go"})).(*Code)
	c.Layout(env)
	if c.Colored() || q.Pending() != 1 {
		t.Fatalf("recolor should wait for idle time (pending %d)", q.Pending())
	}
	c.Layout(env)
	if q.Pending() != 1 {
		t.Fatalf("a second layout should not queue another recolor")
	}

	q.RunPending(context.Background())
	if !c.Colored() || redraws != 1 {
		t.Fatalf("colored %v, redraws %d", c.Colored(), redraws)
	}
	kw, ok := c.DisplayFrames()[0].Children()[0].(*fragment.Text)
	if !ok || kw.Content() != "func" {
		t.Fatalf("first colored run = %v", c.DisplayFrames()[0].Children()[0])
	}
	if kw.Attributes().String("color") != "#ff0000" || kw.Attributes().String("font") != MonoFont {
		t.Fatalf("keyword attributes = %v", kw.Attributes())
	}
	sameOps(t, c.ToOp(false), []delta.Op{txt("func x"), end(delta.AttributeMap{"block": "code", "lang": "go"})})
}

func TestCodeStaleRecolorReschedules(t *testing.T) {
	q := idle.NewQueue()
	tok := &fakeTokenizer{}
	env := cellEnv(80)
	env.Scheduler, env.Tokenizer, env.Styler = q, tok, fakeStyler{}

	c := mustNew(t, delta.BlockCode, txt("func x"), end(delta.AttributeMap{"block": "code"})).(*Code)
	c.Layout(env)
	c.InsertText(nil, 6, "y", nil)

	q.RunPending(context.Background())
	if c.Colored() || len(tok.sources) != 0 {
		t.Fatalf("stale task should not tokenize")
	}
	if q.Pending() != 1 {
		t.Fatalf("stale task should reschedule, pending %d", q.Pending())
	}
	q.RunPending(context.Background())
	if !c.Colored() || len(tok.sources) != 1 || tok.sources[0] != "func xy" {
		t.Fatalf("colored %v, tokenized %q", c.Colored(), tok.sources)
	}
}

func TestCodeMerge(t *testing.T) {
	a := mustNew(t, delta.BlockCode, txt("a"), end(delta.AttributeMap{"block": "code", "lang": "go"}))
	b := mustNew(t, delta.BlockCode, txt("b"), end(delta.AttributeMap{"block": "code", "lang": "go"}))
	py := mustNew(t, delta.BlockCode, txt("c"), end(delta.AttributeMap{"block": "code", "lang": "python"}))
	if !a.CanMerge(b) || a.CanMerge(py) {
		t.Fatalf("code merges only within one language")
	}
	a.Merge(b)
	if a.Text() != "a\nb\n" {
		t.Fatalf("merged text %q", a.Text())
	}
}

func grid(t *testing.T) *Table {
	t.Helper()
	return mustNew(t, delta.BlockTable,
		txt("a"), end(delta.AttributeMap{"block": "table", "cell": true}),
		txt("b"), end(delta.AttributeMap{"cell": true, "row": true}),
		txt("c"), end(delta.AttributeMap{"cell": true}),
		txt("d"), end(delta.AttributeMap{"cell": true, "row": true}),
	).(*Table)
}

func TestTableGrid(t *testing.T) {
	tb := grid(t)
	if tb.Columns() != 2 || len(tb.Rows()) != 2 {
		t.Fatalf("grid %dx%d, want 2x2", len(tb.Rows()), tb.Columns())
	}
	if got := tb.CellAt(1, 0).Text(); got != "c\n" {
		t.Fatalf("CellAt(1, 0) = %q", got)
	}
	if got := tb.CellAt(1, 1).Start(); got != 6 {
		t.Fatalf("CellAt(1, 1).Start() = %d, want 6", got)
	}

	span := mustNew(t, delta.BlockTable,
		txt("x"), end(delta.AttributeMap{"block": "table", "cell": true, "colspan": 2, "row": true}),
		txt("c"), end(delta.AttributeMap{"cell": true}),
		txt("d"), end(delta.AttributeMap{"cell": true, "row": true}),
	).(*Table)
	if span.CellAt(0, 1) != span.CellAt(0, 0) {
		t.Fatalf("spanning cell should cover both columns")
	}
	if got := span.CellAt(1, 1).Text(); got != "d\n" {
		t.Fatalf("CellAt(1, 1) = %q", got)
	}
}

func TestTableSelection(t *testing.T) {
	tb := grid(t)
	tests := []struct {
		name       string
		start, end int
		want       [][2]int
	}{
		{"inside one cell", 0, 1, [][2]int{{0, 1}}},
		{"corner to corner", 0, 7, [][2]int{{0, 3}, {4, 7}}},
		{"diagonal expands to rectangle", 2, 4, [][2]int{{0, 3}, {4, 7}}},
		{"one column", 0, 4, [][2]int{{0, 1}, {4, 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tb.CorrectSelectionPos(tt.start, tt.end)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d ranges %v, want %v", len(got), got, tt.want)
			}
			for i, r := range got {
				if r.Start.Depth() != 2 {
					t.Fatalf("table ranges should be nested, got %v", r.Start)
				}
				if s, e := r.Offsets(); s != tt.want[i][0] || e != tt.want[i][1] {
					t.Fatalf("range %d = %d..%d, want %v", i, s, e, tt.want[i])
				}
			}
		})
	}
}

func TestTableEditsStayInCells(t *testing.T) {
	tb := grid(t)
	tb.Delete(nil, 2, 2, true)
	if tb.Text() != "a\nb\nc\nd\n" {
		t.Fatalf("backspace at a cell start changed %q", tb.Text())
	}
	tb.Delete(nil, 1, 5, false)
	if tb.Text() != "a\n\n\nd\n" || len(tb.Cells()) != 4 || tb.Len() != 6 {
		t.Fatalf("delete across cells left %q (%d cells)", tb.Text(), len(tb.Cells()))
	}
	tb.InsertText(nil, 2, "z", nil)
	if got := tb.CellAt(0, 1).Text(); got != "z\n" {
		t.Fatalf("cell (0, 1) = %q", got)
	}
	if next := tb.InsertEnter(nil, 1); next != nil {
		t.Fatalf("enter in a table stays in the cell")
	}
	if got := len(tb.CellAt(0, 0).Frames()); got != 2 {
		t.Fatalf("cell (0, 0) frames = %d, want 2", got)
	}
	ops := tb.ToOp(false)
	if !ops[1].Attributes.Bool("cellLine") || ops[1].Attributes.String("block") != "table" {
		t.Fatalf("first terminator = %v", ops[1])
	}
}

func TestTableLayoutRelaysOnlyTouchedCells(t *testing.T) {
	tb := grid(t)
	env := cellEnv(20)
	tb.Layout(env)
	if tb.relaidOut != 4 || tb.Height != 6 {
		t.Fatalf("first layout: %d cells, height %v", tb.relaidOut, tb.Height)
	}
	if tb.NeedLayout() {
		t.Fatalf("table should be clean after layout")
	}

	tb.SetColumnWidth(1, 6)
	tb.Layout(env)
	if tb.relaidOut != 2 {
		t.Fatalf("column resize relaid %d cells, want 2", tb.relaidOut)
	}
	if got := tb.Attributes().String("colWidths"); got != "10,6" {
		t.Fatalf("colWidths = %q", got)
	}

	tb.SetRowHeight(0, 5)
	tb.Layout(env)
	if tb.relaidOut != 2 || tb.Rows()[0].Height != 5 || tb.Height != 8 {
		t.Fatalf("row resize: %d cells, row height %v, table %v", tb.relaidOut, tb.Rows()[0].Height, tb.Height)
	}

	pos := tb.GetDocumentPos(11, 6)
	if pos.Flatten() != 6 {
		t.Fatalf("GetDocumentPos in cell d = %v", pos)
	}
}
