package block

import (
	"context"

	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/fragment"
	"github.com/bethropolis/scribe/internal/frame"
	"github.com/bethropolis/scribe/internal/highlighter"
	"github.com/bethropolis/scribe/internal/logger"
	"github.com/bethropolis/scribe/internal/utils"
)

// MonoFont is the font family code is displayed in.
const MonoFont = "mono"

// Code is a block of source code. Its frames hold the plain text; a colored
// copy is built in idle time and used for display only.
type Code struct {
	Common
	lang string

	generation int
	colored    frameList
	coloredGen int
	pending    bool
}

var _ Block = (*Code)(nil)

func (c *Code) Tag() string { return delta.BlockCode }

// Lang is the code's language name.
func (c *Code) Lang() string { return c.lang }

// Generation counts content changes; colored output of an older generation is stale.
func (c *Code) Generation() int { return c.generation }

func (c *Code) Attributes() delta.AttributeMap {
	attrs := delta.AttributeMap{delta.AttrBlock: delta.BlockCode}
	if c.lang != "" {
		attrs["lang"] = c.lang
	}
	return attrs
}

func (c *Code) ReadFromOps(ops []delta.Op) error {
	frames, headers, err := readFrames(ops)
	if err != nil {
		return err
	}
	c.frames = frames
	c.lang = headers[0].String("lang")
	if key := headers[0].String("key"); key != "" {
		c.key = key
	}
	c.changed()
	return nil
}

// ToOp emits the plain frames. The first carries the code header, later
// frames only when they were read with one.
func (c *Code) ToOp(withKey bool) []delta.Op {
	var ops []delta.Op
	for i, f := range c.frames {
		header := c.Attributes()
		switch {
		case i == 0:
			header = keyed(header, &c.Common, withKey)
		case f.Headless():
			header = nil
		}
		ops = append(ops, withHeader(f, header)...)
	}
	return ops
}

func (c *Code) changed() {
	c.Common.changed()
	c.generation++
}

func (c *Code) InsertText(_ *Mutation, pos int, text string, attrs delta.AttributeMap) {
	c.frames.insertText(pos, text, attrs)
	c.changed()
}

func (c *Code) Delete(_ *Mutation, start, end int, forward bool) {
	c.frames.delete(start, end, forward)
	c.changed()
}

func (c *Code) InsertFragment(_ *Mutation, pos int, frag fragment.Fragment) {
	c.frames.insertFragment(pos, frag)
	c.changed()
}

func (c *Code) Format(_ *Mutation, start, end int, attrs delta.AttributeMap) {
	c.frames.format(start, end, attrs)
	c.changed()
}

func (c *Code) ClearFormat(_ *Mutation, start, end int) {
	c.frames.format(start, end, clearAttrs())
	c.changed()
}

// InsertEnter adds a line to the code block.
func (c *Code) InsertEnter(_ *Mutation, pos int) Block {
	c.frames.split(pos)
	c.changed()
	return nil
}

// Restyle drops the colored copy so the next Layout colors the code again.
func (c *Code) Restyle() {
	c.generation++
	c.colored = nil
	c.MarkDirty()
}

// DisplayFrames returns the colored frames when they match the current
// content, else the plain ones.
func (c *Code) DisplayFrames() []*frame.Frame {
	if c.colored != nil && c.coloredGen == c.generation {
		return c.colored
	}
	return c.frames
}

// Colored reports whether the displayed frames are highlighted.
func (c *Code) Colored() bool {
	return c.colored != nil && c.coloredGen == c.generation
}

// Layout lays the plain text out and, unless the colored copy is current,
// schedules a recolor in idle time.
func (c *Code) Layout(env *Env) {
	c.layoutFrames(env, 0)
	if c.Colored() {
		c.colored.layout(env.Measurer, env.Width, 0)
		return
	}
	if env.Tokenizer == nil || env.Scheduler == nil || c.pending {
		return
	}
	c.pending = true
	gen := c.generation
	env.Scheduler.RequestIdle(func() { c.recolor(env, gen) })
}

// recolor rebuilds the colored frames from the current content. A task
// scheduled for an older generation reschedules itself for the current one.
func (c *Code) recolor(env *Env, gen int) {
	c.pending = false
	if gen != c.generation {
		logger.DebugTagf("code", "recolor of %s superseded (%d < %d)", c.key, gen, c.generation)
		c.pending = true
		current := c.generation
		env.Scheduler.RequestIdle(func() { c.recolor(env, current) })
		return
	}

	source := c.sourceText()
	tokens, err := env.Tokenizer.Tokenize(context.Background(), []byte(source), c.lang)
	if err != nil {
		// Plain frames stay on display.
		logger.DebugTagf("code", "no highlighting for %s: %v", c.key, err)
		return
	}
	c.colored = c.buildColored(tokens, env.Styler)
	c.coloredGen = gen
	c.colored.layout(env.Measurer, env.Width, 0)
	env.redraw(c)
}

// sourceText is the code with frames joined by newlines. Embeds stay as
// U+FFFC so token offsets line up with frame positions.
func (c *Code) sourceText() string {
	text := c.frames.text()
	return text[:len(text)-1]
}

func (c *Code) buildColored(tokens []highlighter.Token, styler Styler) frameList {
	var out frameList
	offset := 0
	ti := 0
	for _, f := range c.frames {
		var children []fragment.Fragment
		line := f.Text()
		body := []rune(line[:len(line)-1])
		pos := 0
		for pos < len(body) {
			abs := offset + pos
			for ti < len(tokens) && tokens[ti].End <= abs {
				ti++
			}
			var style string
			next := len(body)
			if ti < len(tokens) && tokens[ti].Start <= abs {
				style = tokens[ti].Style
				next = min(next, tokens[ti].End-offset)
			} else if ti < len(tokens) {
				next = min(next, tokens[ti].Start-offset)
			}
			attrs := delta.AttributeMap{"font": MonoFont}
			if style != "" && styler != nil {
				attrs = delta.ComposeAttributes(attrs, styler.Attributes(style), false)
			}
			children = append(children, fragment.NewText(string(body[pos:next]), attrs))
			pos = next
		}
		children = append(children, f.End().Clone())
		out = append(out, frame.New(children...))
		offset += utils.RuneLen(line)
	}
	return out
}

func (c *Code) CanMerge(other Block) bool {
	o, ok := other.(*Code)
	return ok && o.lang == c.lang
}

func (c *Code) Merge(other Block) {
	o := other.(*Code)
	c.frames = append(c.frames, o.frames...)
	o.frames = nil
	c.changed()
}
