package document

import (
	"fmt"

	"github.com/bethropolis/scribe/internal/block"
	"github.com/bethropolis/scribe/internal/delta"
)

type group struct {
	tag  string
	lang string
	ops  []delta.Op
}

// continues reports whether a terminator without a block header extends g.
func (g *group) continues(header delta.AttributeMap) bool {
	switch g.tag {
	case delta.BlockTable:
		return header.Bool("cell") || header.Bool("cellLine")
	case delta.BlockQuote, delta.BlockList, delta.BlockCode:
		return true
	}
	return false
}

// joins reports whether a frame headed tag extends g. Quote frames always
// join, code frames join within one language.
func (g *group) joins(tag string, header delta.AttributeMap) bool {
	if tag != g.tag || header.String("key") != "" {
		return false
	}
	switch tag {
	case delta.BlockQuote:
		return true
	case delta.BlockCode:
		return header.String("lang") == g.lang
	}
	return false
}

// parseBlocks splits ops on terminators and builds a block per group. A
// terminator without a block header continues the block before it when that
// block takes continuation lines, and starts a paragraph otherwise.
func parseBlocks(ops []delta.Op) ([]block.Block, error) {
	var groups []*group
	last := 0
	for i, op := range ops {
		if op.Kind() != delta.KindInsert {
			return nil, fmt.Errorf("%w: %s op in document content", ErrMalformed, op.Kind())
		}
		if !op.IsTerminator() {
			continue
		}
		frame := ops[last : i+1]
		last = i + 1
		header := op.Attributes
		tag := header.String(delta.AttrBlock)

		var g *group
		if n := len(groups); n > 0 {
			g = groups[n-1]
		}
		if g != nil && ((tag == "" && g.continues(header)) || (tag != "" && g.joins(tag, header))) {
			g.ops = append(g.ops, frame...)
			continue
		}
		if tag == "" {
			tag = delta.BlockPara
		}
		groups = append(groups, &group{
			tag:  tag,
			lang: header.String("lang"),
			ops:  append([]delta.Op(nil), frame...),
		})
	}
	if last != len(ops) {
		return nil, ErrMissingTerminator
	}

	blocks := make([]block.Block, 0, len(groups))
	for _, g := range groups {
		b, err := block.New(g.tag, g.ops)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
