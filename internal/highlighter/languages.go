package highlighter

import (
	"embed"
	"sync"

	"github.com/bethropolis/scribe/internal/highlighter/lang"
	"github.com/bethropolis/scribe/internal/logger"

	gosrc "github.com/smacker/go-tree-sitter/golang"
	jssrc "github.com/smacker/go-tree-sitter/javascript"
	pythonsrc "github.com/smacker/go-tree-sitter/python"
	rustsrc "github.com/smacker/go-tree-sitter/rust"
)

//go:embed queries/*/*.scm
var embeddedQueries embed.FS

var registerOnce sync.Once

// RegisterLanguages registers the built-in grammars. It is safe to call
// more than once.
func RegisterLanguages() {
	registerOnce.Do(func() {
		if lang.QueryFS == nil {
			lang.QueryFS = embeddedQueries
		}

		lang.Register(&lang.Language{
			Name:           "Go",
			Aliases:        []string{"golang"},
			TreeSitterLang: gosrc.GetLanguage(),
			Extensions:     []string{".go"},
			QueryPath:      "go",
		})
		lang.Register(&lang.Language{
			Name:           "Python",
			Aliases:        []string{"py"},
			TreeSitterLang: pythonsrc.GetLanguage(),
			Extensions:     []string{".py", ".pyw"},
			QueryPath:      "python",
		})
		lang.Register(&lang.Language{
			Name:           "JavaScript",
			Aliases:        []string{"js"},
			TreeSitterLang: jssrc.GetLanguage(),
			Extensions:     []string{".js", ".mjs", ".cjs"},
			QueryPath:      "javascript",
		})
		// JSON parses as a JavaScript expression.
		lang.Register(&lang.Language{
			Name:           "JSON",
			TreeSitterLang: jssrc.GetLanguage(),
			Extensions:     []string{".json"},
			QueryPath:      "json",
		})
		lang.Register(&lang.Language{
			Name:           "Rust",
			Aliases:        []string{"rs"},
			TreeSitterLang: rustsrc.GetLanguage(),
			Extensions:     []string{".rs"},
			QueryPath:      "rust",
		})

		logger.DebugTagf("code", "registered %d languages", len(lang.GetAll()))
	})
}
