package block

import (
	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/measure"
)

// QuoteBar is drawn left of every quoted line.
const QuoteBar = "▍ "

// Quote is a run of quoted frames. Every frame's terminator carries the
// block header, so adjacent quotes merge without changing the stream.
type Quote struct {
	Common
	barWidth float64
}

var _ Block = (*Quote)(nil)

func (q *Quote) Tag() string { return delta.BlockQuote }

func (q *Quote) Attributes() delta.AttributeMap {
	return delta.AttributeMap{delta.AttrBlock: delta.BlockQuote}
}

func (q *Quote) ReadFromOps(ops []delta.Op) error {
	frames, headers, err := readFrames(ops)
	if err != nil {
		return err
	}
	q.frames = frames
	if key := headers[0].String("key"); key != "" {
		q.key = key
	}
	q.changed()
	return nil
}

func (q *Quote) ToOp(withKey bool) []delta.Op {
	var ops []delta.Op
	for i, f := range q.frames {
		header := q.Attributes()
		switch {
		case i == 0:
			header = keyed(header, &q.Common, withKey)
		case f.Headless():
			header = nil
		}
		ops = append(ops, withHeader(f, header)...)
	}
	return ops
}

// InsertEnter adds a quoted line; the quote stays one block.
func (q *Quote) InsertEnter(_ *Mutation, pos int) Block {
	q.frames.split(pos)
	q.changed()
	return nil
}

// BarWidth is the inset of the quoted text after layout.
func (q *Quote) BarWidth() float64 { return q.barWidth }

func (q *Quote) Layout(env *Env) {
	q.barWidth = env.Measurer.MeasureTextWidth(QuoteBar, measure.Style{Size: measure.DefaultFontSize})
	q.layoutFrames(env, q.barWidth)
}

func (q *Quote) CanMerge(other Block) bool {
	_, ok := other.(*Quote)
	return ok
}

func (q *Quote) Merge(other Block) {
	o := other.(*Quote)
	q.frames = append(q.frames, o.frames...)
	o.frames = nil
	q.changed()
}
