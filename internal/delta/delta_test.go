package delta

import (
	"errors"
	"testing"
)

var bold = AttributeMap{"bold": true}

func endAttrs() AttributeMap {
	return AttributeMap{AttrFrag: FragEnd, AttrBlock: BlockPara}
}

func TestPushMerges(t *testing.T) {
	tests := []struct {
		name string
		got  *Delta
		want []Op
	}{
		{"inserts merge", New().Insert("ab", nil).Insert("c", nil), []Op{{Insert: "abc"}}},
		{"different attributes stay apart", New().Insert("ab", nil).Insert("c", bold), []Op{{Insert: "ab"}, {Insert: "c", Attributes: bold}}},
		{"retains merge", New().Retain(2, nil).Retain(3, nil), []Op{{Retain: 5}}},
		{"deletes merge", New().Delete(2).Delete(3), []Op{{Delete: 5}}},
		{"insert moves before delete", New().Retain(1, nil).Delete(1).Insert("x", nil), []Op{{Retain: 1}, {Insert: "x"}, {Delete: 1}}},
		{"insert before leading delete", New().Delete(1).Insert("x", nil), []Op{{Insert: "x"}, {Delete: 1}}},
		{"embeds never merge", New().InsertEmbed(endAttrs()).InsertEmbed(endAttrs()), []Op{{Embed: true, Attributes: endAttrs()}, {Embed: true, Attributes: endAttrs()}}},
		{"zero length ignored", New().Retain(0, nil).Insert("", nil).Delete(0), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.got.Equal(Delta{Ops: tt.want}) {
				t.Fatalf("got %v, want %v", tt.got, Delta{Ops: tt.want})
			}
		})
	}
}

func TestLengths(t *testing.T) {
	d := New().Retain(3, nil).Insert("héllo", nil).InsertEmbed(endAttrs()).Delete(2)
	if got, want := d.Length(), 3+5+1+2; got != want {
		t.Fatalf("Length() = %d, want %d", got, want)
	}
	if got, want := d.ChangeLength(), 4; got != want {
		t.Fatalf("ChangeLength() = %d, want %d", got, want)
	}
	if got, want := d.BaseLength(), 5; got != want {
		t.Fatalf("BaseLength() = %d, want %d", got, want)
	}
}

func TestChop(t *testing.T) {
	d := New().Insert("a", nil).Retain(4, nil)
	if got, want := len(d.Chop().Ops), 1; got != want {
		t.Fatalf("plain retain should be chopped, have %d ops", got)
	}
	d = New().Insert("a", nil).Retain(4, bold)
	if got, want := len(d.Chop().Ops), 2; got != want {
		t.Fatalf("formatting retain must survive chop, have %d ops", got)
	}
}

func TestSlice(t *testing.T) {
	d := New().Insert("ab", nil).Insert("cd", bold).InsertEmbed(endAttrs())
	got := d.Slice(1, 3)
	want := New().Insert("b", nil).Insert("c", bold)
	if !got.Equal(*want) {
		t.Fatalf("Slice(1,3) = %v, want %v", got, want)
	}
	if got := d.Slice(4, -1); len(got.Ops) != 1 || !got.Ops[0].IsTerminator() {
		t.Fatalf("Slice(4,-1) = %v, want the terminator", got)
	}
}

func TestConcatMergesSeam(t *testing.T) {
	a := New().Insert("ab", nil)
	b := New().Insert("cd", nil).Insert("e", bold)
	got := a.Concat(*b)
	want := New().Insert("abcd", nil).Insert("e", bold)
	if !got.Equal(*want) {
		t.Fatalf("Concat = %v, want %v", got, want)
	}
}

func TestCompose(t *testing.T) {
	tests := []struct {
		name string
		a, b *Delta
		want *Delta
	}{
		{"insert then append", New().Insert("Hello", nil), New().Retain(5, nil).Insert(" World", nil), New().Insert("Hello World", nil)},
		{"insert then delete", New().Insert("abc", nil), New().Retain(1, nil).Delete(1), New().Insert("ac", nil)},
		{"insert then format", New().Insert("abc", nil), New().Retain(3, bold), New().Insert("abc", bold)},
		{"format removal", New().Insert("abc", bold), New().Retain(3, AttributeMap{"bold": nil}), New().Insert("abc", nil)},
		{"retain keeps null", New().Retain(2, bold), New().Retain(2, AttributeMap{"bold": nil}), New().Retain(2, AttributeMap{"bold": nil})},
		{"delete then insert", New().Delete(1), New().Insert("x", nil), New().Insert("x", nil).Delete(1)},
		{"embed survives", New().InsertEmbed(endAttrs()), New().Retain(1, AttributeMap{"align": "center"}),
			New().InsertEmbed(AttributeMap{AttrFrag: FragEnd, AttrBlock: BlockPara, "align": "center"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Compose(*tt.b)
			if !got.Equal(*tt.want) {
				t.Fatalf("Compose = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComposeAssociative(t *testing.T) {
	doc := New().Insert("Hello World", nil).InsertEmbed(endAttrs())
	a := New().Retain(5, nil).Insert("!", nil)
	b := New().Retain(2, nil).Delete(4).Retain(2, bold)
	left := doc.Compose(*a).Compose(*b)
	right := doc.Compose(a.Compose(*b))
	if !left.Equal(right) {
		t.Fatalf("(doc∘a)∘b = %v, doc∘(a∘b) = %v", left, right)
	}
}

func TestTransformConverges(t *testing.T) {
	doc := New().Insert("Hello World", nil).InsertEmbed(endAttrs())
	cases := []struct {
		name string
		a, b *Delta
	}{
		{"concurrent inserts", New().Retain(5, nil).Insert("!", nil), New().Retain(5, nil).Insert("?", nil)},
		{"insert vs delete", New().Retain(5, nil).Insert("!", nil), New().Retain(3, nil).Delete(5)},
		{"overlapping deletes", New().Retain(1, nil).Delete(4), New().Retain(3, nil).Delete(5)},
		{"format vs format", New().Retain(5, bold), New().Retain(3, AttributeMap{"bold": nil, "italic": true})},
		{"format vs delete", New().Retain(11, bold), New().Retain(6, nil).Delete(5).Insert("there", nil)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			left := doc.Compose(*tc.a).Compose(tc.a.Transform(*tc.b, true))
			right := doc.Compose(*tc.b).Compose(tc.b.Transform(*tc.a, false))
			if !left.Equal(right) {
				t.Fatalf("diverged: %v vs %v", left, right)
			}
		})
	}
}

func TestTransformInsertTie(t *testing.T) {
	a := New().Insert("A", nil)
	b := New().Insert("B", nil)
	if got, want := a.Transform(*b, true), New().Retain(1, nil).Insert("B", nil); !got.Equal(*want) {
		t.Fatalf("with priority got %v, want %v", got, want)
	}
	if got, want := a.Transform(*b, false), New().Insert("B", nil); !got.Equal(*want) {
		t.Fatalf("without priority got %v, want %v", got, want)
	}
}

func TestTransformPosition(t *testing.T) {
	insert := New().Retain(2, nil).Insert("xx", nil)
	remove := New().Retain(1, nil).Delete(3)
	tests := []struct {
		name     string
		d        *Delta
		index    int
		priority bool
		want     int
	}{
		{"insert before", insert, 5, false, 7},
		{"insert at, no priority", insert, 2, false, 4},
		{"insert at, priority", insert, 2, true, 2},
		{"insert after", insert, 1, false, 1},
		{"delete spanning", remove, 2, false, 1},
		{"delete before", remove, 5, false, 2},
		{"delete after", remove, 0, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.TransformPosition(tt.index, tt.priority); got != tt.want {
				t.Fatalf("TransformPosition(%d) = %d, want %d", tt.index, got, tt.want)
			}
		})
	}
}

func TestInvertRestoresBase(t *testing.T) {
	base := New().Insert("Hello", nil).Insert(" World", bold).InsertEmbed(endAttrs())
	changes := []*Delta{
		New().Retain(1, nil).Delete(2).Insert("X", nil),
		New().Retain(3, nil).Retain(5, AttributeMap{"italic": true, "bold": nil}),
		New().Retain(11, nil).Retain(1, AttributeMap{"align": "right"}),
		New().Delete(12).Insert("gone", nil),
	}
	for i, change := range changes {
		applied := base.Compose(*change)
		inverse := change.Invert(*base)
		if got := applied.Compose(inverse); !got.Equal(*base) {
			t.Fatalf("case %d: inverse of %v gave %v, want %v", i, change, got, base)
		}
	}
}

func TestDiff(t *testing.T) {
	red := AttributeMap{"color": "red"}
	before := New().Insert("hello", red).Insert(" ", nil).Insert("world", red).InsertEmbed(endAttrs())
	after := New().Insert("helloworld", red).InsertEmbed(endAttrs())
	got, err := before.Diff(*after)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if want := New().Retain(5, nil).Delete(1); !got.Equal(*want) {
		t.Fatalf("Diff = %v, want %v", got, want)
	}

	pairs := [][2]*Delta{
		{New().Insert("abc", nil), New().Insert("abc", bold)},
		{New().Insert("hello world", nil), New().Insert("hello there", nil)},
		{New().Insert("a", nil).InsertEmbed(endAttrs()), New().Insert("a", nil).InsertEmbed(endAttrs()).InsertEmbed(endAttrs())},
		{New().InsertEmbed(AttributeMap{AttrFrag: FragImage, "src": "a.png"}), New().InsertEmbed(AttributeMap{AttrFrag: FragImage, "src": "b.png"})},
	}
	for i, p := range pairs {
		diff, err := p[0].Diff(*p[1])
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if got := p[0].Compose(diff); !got.Equal(*p[1]) {
			t.Fatalf("case %d: a∘diff = %v, want %v", i, got, p[1])
		}
	}
}

func TestDiffRejectsChanges(t *testing.T) {
	_, err := New().Retain(1, nil).Diff(*New().Insert("a", nil))
	if !errors.Is(err, ErrNotDocument) {
		t.Fatalf("Diff on a change should fail with ErrNotDocument, got %v", err)
	}
}

func TestAttributeNumbersCompareByValue(t *testing.T) {
	a := AttributeMap{"indent": 1}
	b := AttributeMap{"indent": float64(1)}
	if !a.Equal(b) {
		t.Fatalf("int and float64 values should compare equal")
	}
	if DiffAttributes(a, b) != nil {
		t.Fatalf("no diff expected between numerically equal attributes")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	src := `[{"insert":"A"},{"insert":1,"attributes":{"frag":"end","block":"para"}}]`
	d, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, want := len(d.Ops), 2; got != want {
		t.Fatalf("len(ops) = %d, want %d", got, want)
	}
	if !d.Ops[1].IsTerminator() || d.Ops[1].Attributes.String(AttrBlock) != BlockPara {
		t.Fatalf("second op should be a para terminator, got %v", d.Ops[1])
	}
	out, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if got, want := string(out), `{"ops":[{"insert":"A"},{"insert":1,"attributes":{"block":"para","frag":"end"}}]}`; got != want {
		t.Fatalf("MarshalJSON = %s, want %s", got, want)
	}
}

func TestJSONRejectsBadOps(t *testing.T) {
	for _, src := range []string{`[{"insert":2}]`, `[{"insert":{"image":"x"}}]`, `[{}]`} {
		if _, err := Parse([]byte(src)); err == nil {
			t.Errorf("Parse(%s) should fail", src)
		}
	}
}
