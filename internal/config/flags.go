package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/bethropolis/scribe/internal/logger"
)

// Flags holds values parsed from command-line flags.
// Use pointers to distinguish between unset flags and zero-value flags.
type Flags struct {
	fs *flag.FlagSet

	ConfigFilePath *string
	Version        *bool
	LogLevel       *string
	LogFilePath    *string
	EnableTags     *string
	DisableTags    *string
	EnablePkgs     *string
	DisablePkgs    *string
	EnableFiles    *string
	DisableFiles   *string
	DebugLog       *bool

	Width    *float64
	Measurer *string
	Strict   *bool
	Theme    *string
	ImageDir *string

	// Actions of the scribe command.
	Find *string
	Copy *string
	Dump *bool
	Runs *bool
}

// DefineFlags sets up the command-line flags on fs, or on the process flag
// set when fs is nil.
func (f *Flags) DefineFlags(fs *flag.FlagSet) {
	if fs == nil {
		fs = flag.CommandLine
	}
	f.fs = fs
	f.ConfigFilePath = fs.String("config", "", fmt.Sprintf("Path to TOML configuration file (default ~/.config/%s/%s)", AppName, DefaultConfigFileName))
	f.Version = fs.Bool("version", false, "Show version information and exit")
	f.LogLevel = fs.String("loglevel", "", "Log level (debug, info, warn, error) - Overrides config file")
	f.LogFilePath = fs.String("logfile", "", "Path to write log file (use '-' for stderr) - Overrides config file")
	f.EnableTags = fs.String("log-tags", "", "Comma-separated list of tags to enable - Overrides config file")
	f.DisableTags = fs.String("log-disable-tags", "", "Comma-separated list of tags to disable - Overrides config file")
	f.EnablePkgs = fs.String("log-packages", "", "Comma-separated list of packages to enable - Overrides config file")
	f.DisablePkgs = fs.String("log-disable-packages", "", "Comma-separated list of packages to disable - Overrides config file")
	f.EnableFiles = fs.String("log-files", "", "Comma-separated list of files to enable - Overrides config file")
	f.DisableFiles = fs.String("log-disable-files", "", "Comma-separated list of files to disable - Overrides config file")
	f.DebugLog = fs.Bool("debug-log", false, "Enable verbose debug logging for the logger filtering system")

	f.Width = fs.Float64("width", -1, "Page width to wrap at, 0 never wraps - Overrides config file")
	f.Measurer = fs.String("measurer", "", "Measurement backend (cells, font) - Overrides config file")
	f.Strict = fs.Bool("strict", false, "Panic when an edit breaks the document's offsets")
	f.Theme = fs.String("theme", "", "Code highlighting theme - Overrides config file")
	f.ImageDir = fs.String("image-dir", "", "Directory relative image sources resolve against")

	f.Find = fs.String("find", "", "Print the matches of a search term")
	f.Copy = fs.String("copy", "", "Copy the range start:end to the system clipboard")
	f.Dump = fs.Bool("dump", false, "Print the document as a keyed JSON delta")
	f.Runs = fs.Bool("runs", false, "Print the styled text runs of each block")
}

// ParseFlags defines the flags on the process flag set, parses them and
// returns the remaining non-flag arguments (e.g., the file path).
func (f *Flags) ParseFlags() []string {
	f.DefineFlags(nil)
	flag.Parse()
	return flag.Args()
}

// ApplyOverrides updates the Config struct with values from flags *if* they were set.
func (f *Flags) ApplyOverrides(cfg *Config) {
	if f.fs == nil {
		return
	}
	// Visit only processes flags that were actually set
	f.fs.Visit(func(fl *flag.Flag) {
		logger.DebugTagf("config", "Applying flag override: %s", fl.Name)
		switch fl.Name {
		case "loglevel":
			if *f.LogLevel != "" {
				cfg.Logger.LogLevel = *f.LogLevel
			}
		case "logfile":
			cfg.Logger.LogFilePath = *f.LogFilePath // Empty string is valid
		case "log-tags":
			cfg.Logger.EnabledTags = splitCommaList(*f.EnableTags)
		case "log-disable-tags":
			cfg.Logger.DisabledTags = splitCommaList(*f.DisableTags)
		case "log-packages":
			cfg.Logger.EnabledPackages = splitCommaList(*f.EnablePkgs)
		case "log-disable-packages":
			cfg.Logger.DisabledPackages = splitCommaList(*f.DisablePkgs)
		case "log-files":
			cfg.Logger.EnabledFiles = splitCommaList(*f.EnableFiles)
		case "log-disable-files":
			cfg.Logger.DisabledFiles = splitCommaList(*f.DisableFiles)
		case "width":
			if *f.Width >= 0 {
				cfg.Layout.PageWidth = *f.Width
			}
		case "measurer":
			cfg.Layout.Measurer = *f.Measurer
		case "strict":
			cfg.Document.Strict = *f.Strict
		case "theme":
			if *f.Theme != "" {
				cfg.Code.Theme = *f.Theme
			}
		case "image-dir":
			cfg.Images.BaseDir = *f.ImageDir
		}
	})
}

// splitCommaList splits a comma-separated list, dropping empty items.
func splitCommaList(list string) []string {
	if list == "" {
		return nil
	}
	items := strings.Split(list, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
