package config

import "time"

// Base application details
const AppName = "scribe"
const ThemesDirName = "themes"
const DefaultConfigFileName = "config.toml" // Main config file
const DefaultLogFileName = "scribe.log"

// Measurer backends
const (
	MeasurerCells = "cells"
	MeasurerFont  = "font"
)

// Document defaults
const DefaultPageWidth = 80
const DefaultMeasurer = MeasurerCells
const DefaultHistorySize = 100
const DefaultHistoryDelay = time.Second

// Cell measurer defaults
const DefaultCellWidth = 1.0
const DefaultLineHeight = 1.0

// Code blocks
const DefaultCodeTheme = "Scribe Dark"

// Images
const DefaultImageMaxBytes = 16 << 20
const DefaultImageTimeout = 10 * time.Second
