package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bethropolis/scribe/internal/logger"
)

// Manager holds loaded themes and the active one.
type Manager struct {
	themes      map[string]*Theme
	activeTheme *Theme
	mutex       sync.RWMutex
}

// NewManager returns a manager holding the built-in theme, active.
func NewManager() *Manager {
	mgr := &Manager{themes: make(map[string]*Theme)}
	mgr.themes[strings.ToLower(ScribeDark.Name)] = &ScribeDark
	mgr.activeTheme = &ScribeDark
	return mgr
}

// Add registers a theme, replacing one with the same name.
func (m *Manager) Add(theme *Theme) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	key := strings.ToLower(theme.Name)
	if existing, ok := m.themes[key]; ok {
		logger.Warnf("Theme '%s' overrides existing theme '%s'", theme.Name, existing.Name)
	}
	m.themes[key] = theme
}

// LoadFile loads a theme file, registers it and makes it active.
func (m *Manager) LoadFile(path string) (*Theme, error) {
	theme, err := LoadThemeFromFile(path)
	if err != nil {
		return nil, err
	}
	m.Add(theme)
	if err := m.SetTheme(theme.Name); err != nil {
		return nil, err
	}
	return theme, nil
}

// LoadThemesFromDir loads every .toml file in dir. A missing directory is
// not an error.
func (m *Manager) LoadThemesFromDir(dir string) (int, error) {
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		logger.Infof("Theme directory '%s' does not exist. No custom themes loaded.", dir)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read theme directory '%s': %w", dir, err)
	}

	loaded := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(strings.ToLower(file.Name()), ".toml") {
			continue
		}
		path := filepath.Join(dir, file.Name())
		theme, err := LoadThemeFromFile(path)
		if err != nil {
			logger.Warnf("Failed to load theme from '%s': %v", path, err)
			continue
		}
		m.Add(theme)
		loaded++
	}
	logger.Infof("Loaded %d custom themes.", loaded)
	return loaded, nil
}

// Current returns the active theme.
func (m *Manager) Current() *Theme {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.activeTheme
}

// SetTheme activates a theme by name, ignoring case.
func (m *Manager) SetTheme(name string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	theme, ok := m.themes[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("theme '%s' not found", name)
	}
	if m.activeTheme != theme {
		m.activeTheme = theme
		logger.Infof("Active theme set to: %s", theme.Name)
	}
	return nil
}

// ListThemes returns the names of all loaded themes, sorted.
func (m *Manager) ListThemes() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	names := make([]string, 0, len(m.themes))
	for _, theme := range m.themes {
		names = append(names, theme.Name)
	}
	sort.Strings(names)
	return names
}
