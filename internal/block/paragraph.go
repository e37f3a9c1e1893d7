package block

import (
	"fmt"

	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/frame"
)

// Paragraph is a block of exactly one frame.
type Paragraph struct {
	Common
}

var _ Block = (*Paragraph)(nil)

// NewParagraph returns a paragraph holding f, or an empty one if f is nil.
func NewParagraph(f *frame.Frame) *Paragraph {
	if f == nil {
		f = frame.New()
	}
	p := &Paragraph{}
	p.frames = frameList{f}
	p.changed()
	return p
}

func (p *Paragraph) Tag() string { return delta.BlockPara }

func (p *Paragraph) Attributes() delta.AttributeMap {
	return delta.AttributeMap{delta.AttrBlock: delta.BlockPara}
}

func (p *Paragraph) ReadFromOps(ops []delta.Op) error {
	frames, headers, err := readFrames(ops)
	if err != nil {
		return err
	}
	if len(frames) != 1 {
		return fmt.Errorf("%w: paragraph with %d frames", ErrMalformed, len(frames))
	}
	p.frames = frames
	if key := headers[0].String("key"); key != "" {
		p.key = key
	}
	p.changed()
	return nil
}

func (p *Paragraph) ToOp(withKey bool) []delta.Op {
	header := p.Attributes()
	if p.frames[0].Headless() {
		header = nil
	}
	return withHeader(p.frames[0], keyed(header, &p.Common, withKey))
}

func (p *Paragraph) InsertEnter(_ *Mutation, pos int) Block {
	i, off := p.frames.locate(pos)
	next := NewParagraph(p.frames[i].InsertEnter(off))
	p.changed()
	return next
}

func (p *Paragraph) Layout(env *Env) {
	p.layoutFrames(env, 0)
}
