// Package highlighter turns source code into styled token spans using
// tree-sitter grammars and highlight queries.
package highlighter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bethropolis/scribe/internal/highlighter/lang"
	"github.com/bethropolis/scribe/internal/highlighter/utils"
	"github.com/bethropolis/scribe/internal/logger"
	sitter "github.com/smacker/go-tree-sitter"
)

// ErrUnknownLanguage is returned when no grammar is registered for a language.
var ErrUnknownLanguage = errors.New("highlighter: unknown language")

// Token is a styled span of source, in rune offsets.
type Token struct {
	Start int
	End   int
	Style string
}

// Highlighter parses and queries source code. It is safe for concurrent use.
type Highlighter struct {
	mu      sync.Mutex
	parser  *sitter.Parser
	queries map[string]*sitter.Query
}

// NewHighlighter creates a highlighter with the built-in languages registered.
func NewHighlighter() *Highlighter {
	RegisterLanguages()
	return &Highlighter{
		parser:  sitter.NewParser(),
		queries: make(map[string]*sitter.Query),
	}
}

// query returns the compiled highlight query for l, compiling it once.
func (h *Highlighter) query(l *lang.Language) (*sitter.Query, error) {
	if q, ok := h.queries[l.Name]; ok {
		return q, nil
	}
	src := l.GetQuery()
	if src == nil {
		return nil, fmt.Errorf("no highlight query for %s", l.Name)
	}
	q, err := sitter.NewQuery(src, l.TreeSitterLang)
	if err != nil {
		return nil, fmt.Errorf("compile %s query: %w", l.Name, err)
	}
	h.queries[l.Name] = q
	return q, nil
}

// Tokenize parses source as language name (or alias) and returns styled
// tokens in order. Where captures overlap the first one reported wins.
func (h *Highlighter) Tokenize(ctx context.Context, source []byte, name string) ([]Token, error) {
	l := lang.Get(name)
	if l == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	q, err := h.query(l)
	if err != nil {
		return nil, err
	}
	h.parser.SetLanguage(l.TreeSitterLang)
	tree, err := h.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", l.Name, err)
	}
	defer tree.Close()

	runeAt := utils.RuneOffsets(source)
	styles := make([]string, runeAt[len(source)])

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())
	captures := 0
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range match.Captures {
			style := utils.CaptureNameToStyleName(q.CaptureNameForId(c.Index))
			start := runeAt[min(int(c.Node.StartByte()), len(source))]
			end := runeAt[min(int(c.Node.EndByte()), len(source))]
			for i := start; i < end; i++ {
				if styles[i] == "" {
					styles[i] = style
				}
			}
			captures++
		}
	}
	tokens := collapse(styles)
	logger.DebugTagf("code", "tokenized %d runes of %s: %d captures, %d tokens", len(styles), l.Name, captures, len(tokens))
	return tokens, nil
}

// collapse turns a per-rune style table into runs.
func collapse(styles []string) []Token {
	var tokens []Token
	for i := 0; i < len(styles); {
		j := i + 1
		for j < len(styles) && styles[j] == styles[i] {
			j++
		}
		if styles[i] != "" {
			tokens = append(tokens, Token{Start: i, End: j, Style: styles[i]})
		}
		i = j
	}
	return tokens
}

// Close releases the parser and cached queries.
func (h *Highlighter) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name, q := range h.queries {
		q.Close()
		delete(h.queries, name)
	}
	h.parser.Close()
}
