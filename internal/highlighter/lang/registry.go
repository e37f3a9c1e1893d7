package lang

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/bethropolis/scribe/internal/logger"
)

var registry = struct {
	sync.RWMutex
	languages     []*Language
	byName        map[string]*Language
	extToLanguage map[string]*Language
}{
	byName:        make(map[string]*Language),
	extToLanguage: make(map[string]*Language),
}

// Register adds a language under its name, aliases and extensions. Later
// registrations win.
func Register(lang *Language) {
	registry.Lock()
	defer registry.Unlock()

	registry.languages = append(registry.languages, lang)
	for _, name := range append([]string{lang.Name}, lang.Aliases...) {
		registry.byName[strings.ToLower(name)] = lang
	}
	for _, ext := range lang.Extensions {
		lowerExt := strings.ToLower(ext)
		if existing, ok := registry.extToLanguage[lowerExt]; ok {
			logger.Warnf("Extension %s already registered to %s, overriding with %s",
				lowerExt, existing.Name, lang.Name)
		}
		registry.extToLanguage[lowerExt] = lang
	}
}

// Get returns the language with the given name or alias, ignoring case.
func Get(name string) *Language {
	registry.RLock()
	defer registry.RUnlock()
	return registry.byName[strings.ToLower(strings.TrimSpace(name))]
}

// GetForFile returns the language for a file path by extension.
func GetForFile(filePath string) *Language {
	registry.RLock()
	defer registry.RUnlock()
	return registry.extToLanguage[strings.ToLower(filepath.Ext(filePath))]
}

// GetAll returns all registered languages.
func GetAll() []*Language {
	registry.RLock()
	defer registry.RUnlock()
	result := make([]*Language, len(registry.languages))
	copy(result, registry.languages)
	return result
}
