// Package config loads scribe's settings from defaults, a TOML file and
// command-line flags, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bethropolis/scribe/internal/logger"
)

// Config holds the application's combined configuration.
type Config struct {
	Logger   logger.Config  `toml:"logger"`
	Document DocumentConfig `toml:"document"`
	Layout   LayoutConfig   `toml:"layout"`
	Code     CodeConfig     `toml:"code"`
	Images   ImagesConfig   `toml:"images"`
}

// DocumentConfig holds editing settings.
type DocumentConfig struct {
	Strict         bool `toml:"strict"`           // Panic on a broken offset chain
	HistorySize    int  `toml:"history_size"`     // Undo steps kept
	HistoryDelayMs int  `toml:"history_delay_ms"` // Edits closer than this undo together
}

// LayoutConfig holds measurement and wrapping settings.
type LayoutConfig struct {
	PageWidth  float64 `toml:"page_width"`
	Measurer   string  `toml:"measurer"` // "cells" or "font"
	CellWidth  float64 `toml:"cell_width"`
	LineHeight float64 `toml:"line_height"`
}

// CodeConfig holds code block settings.
type CodeConfig struct {
	Theme    string `toml:"theme"`     // Theme name
	ThemeDir string `toml:"theme_dir"` // Extra theme files, *.toml
}

// ImagesConfig holds image loading settings.
type ImagesConfig struct {
	BaseDir   string `toml:"base_dir"` // Relative sources resolve here; empty means the document's directory
	MaxBytes  int64  `toml:"max_bytes"`
	TimeoutMs int    `toml:"timeout_ms"`
}

// HistoryDelay is the undo grouping window.
func (c DocumentConfig) HistoryDelay() time.Duration {
	return time.Duration(c.HistoryDelayMs) * time.Millisecond
}

// Timeout is the fetch timeout for remote images.
func (c ImagesConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

var (
	loadedConfig *Config
	loadOnce     sync.Once
	loadErr      error
)

// NewDefaultConfig creates a Config struct with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Logger: logger.Config{
			LogLevel:    "info",
			LogFilePath: "",
		},
		Document: DocumentConfig{
			HistorySize:    DefaultHistorySize,
			HistoryDelayMs: int(DefaultHistoryDelay / time.Millisecond),
		},
		Layout: LayoutConfig{
			PageWidth:  DefaultPageWidth,
			Measurer:   DefaultMeasurer,
			CellWidth:  DefaultCellWidth,
			LineHeight: DefaultLineHeight,
		},
		Code: CodeConfig{
			Theme: DefaultCodeTheme,
		},
		Images: ImagesConfig{
			MaxBytes:  DefaultImageMaxBytes,
			TimeoutMs: int(DefaultImageTimeout / time.Millisecond),
		},
	}
}

// loadFromFile decodes filePath over cfg. A missing file is not an error.
func loadFromFile(filePath string, cfg *Config) error {
	_, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error checking config file '%s': %w", filePath, err)
	}
	metadata, err := toml.DecodeFile(filePath, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse config file '%s': %w", filePath, err)
	}
	if undecoded := metadata.Undecoded(); len(undecoded) > 0 {
		logger.Warnf("Config file '%s': Unrecognized keys: %v", filePath, undecoded)
	}
	return nil
}

// validate checks config values and resets invalid ones to defaults.
func (c *Config) validate() {
	defaults := NewDefaultConfig()

	if c.Logger.LogLevel == "" {
		c.Logger.LogLevel = defaults.Logger.LogLevel
	}
	if c.Document.HistorySize <= 0 {
		c.Document.HistorySize = defaults.Document.HistorySize
	}
	if c.Document.HistoryDelayMs < 0 { // Allow 0
		c.Document.HistoryDelayMs = defaults.Document.HistoryDelayMs
	}
	if c.Layout.PageWidth < 0 { // 0 never wraps
		c.Layout.PageWidth = defaults.Layout.PageWidth
	}
	if c.Layout.Measurer != MeasurerCells && c.Layout.Measurer != MeasurerFont {
		c.Layout.Measurer = defaults.Layout.Measurer
	}
	if c.Layout.CellWidth <= 0 {
		c.Layout.CellWidth = defaults.Layout.CellWidth
	}
	if c.Layout.LineHeight <= 0 {
		c.Layout.LineHeight = defaults.Layout.LineHeight
	}
	if c.Code.Theme == "" {
		c.Code.Theme = defaults.Code.Theme
	}
	if c.Images.MaxBytes <= 0 {
		c.Images.MaxBytes = defaults.Images.MaxBytes
	}
	if c.Images.TimeoutMs <= 0 {
		c.Images.TimeoutMs = defaults.Images.TimeoutMs
	}
}

// DefaultPath is the config file used when none is given.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, AppName, DefaultConfigFileName)
}

// Load merges defaults, the file at path and flag overrides, then validates.
func Load(path string, flags *Flags) (*Config, error) {
	cfg := NewDefaultConfig()
	var err error
	if path != "" {
		err = loadFromFile(path, cfg)
	}
	if flags != nil {
		flags.ApplyOverrides(cfg)
	}
	cfg.validate()
	return cfg, err
}

// LoadConfig loads the configuration once; later calls return the first
// result. It should be called from main before Get.
func LoadConfig(configFilePath string, flags *Flags) (*Config, error) {
	loadOnce.Do(func() {
		path := configFilePath
		if path == "" {
			path = DefaultPath()
		}
		loadedConfig, loadErr = Load(path, flags)
	})
	return loadedConfig, loadErr
}

// Get returns the loaded application configuration. Panics if LoadConfig wasn't called.
func Get() *Config {
	if loadedConfig == nil {
		panic("config.Get() called before config.LoadConfig()")
	}
	return loadedConfig
}
