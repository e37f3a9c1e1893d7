package lang

import (
	"fmt"
	"io/fs"

	"github.com/bethropolis/scribe/internal/logger"
	sitter "github.com/smacker/go-tree-sitter"
)

// QueryFS holds the highlight queries, laid out as queries/<path>/highlights.scm.
var QueryFS fs.FS

// Language is a grammar with its highlight query.
type Language struct {
	// Name is the display name, also accepted as a code block language.
	Name string

	// Aliases are further names a code block may use.
	Aliases []string

	TreeSitterLang *sitter.Language

	Extensions []string

	// QueryPath is the directory under queries/ holding the query.
	QueryPath string
}

// GetQuery loads the highlight query, or returns nil if there is none.
func (l *Language) GetQuery() []byte {
	if QueryFS == nil {
		logger.Warnf("QueryFS not set - cannot load queries")
		return nil
	}
	if l.QueryPath == "" {
		logger.Warnf("No query path defined for language %s", l.Name)
		return nil
	}

	queryPath := fmt.Sprintf("queries/%s/highlights.scm", l.QueryPath)
	query, err := fs.ReadFile(QueryFS, queryPath)
	if err != nil {
		logger.Warnf("Failed to load query for language %s: %v", l.Name, err)
		return nil
	}
	logger.DebugTagf("code", "loaded query from %s for %s (%d bytes)", queryPath, l.Name, len(query))
	return query
}
