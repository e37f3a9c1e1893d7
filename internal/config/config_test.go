package config

import (
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadMergesFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[logger]
log_level = "debug"
enabled_tags = ["layout", "edit"]

[document]
history_size = 20
history_delay_ms = 0

[layout]
page_width = 60
measurer = "font"

[images]
max_bytes = 1024
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var f Flags
	fs := flag.NewFlagSet("scribe", flag.ContinueOnError)
	f.DefineFlags(fs)
	if err := fs.Parse([]string{"-width", "40", "-log-disable-tags", "image, ,find", "-strict"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, &f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Logger.LogLevel != "debug" {
		t.Errorf("log level %q", cfg.Logger.LogLevel)
	}
	if !reflect.DeepEqual(cfg.Logger.EnabledTags, []string{"layout", "edit"}) {
		t.Errorf("enabled tags %v", cfg.Logger.EnabledTags)
	}
	if !reflect.DeepEqual(cfg.Logger.DisabledTags, []string{"image", "find"}) {
		t.Errorf("disabled tags %v", cfg.Logger.DisabledTags)
	}
	if cfg.Layout.PageWidth != 40 || cfg.Layout.Measurer != MeasurerFont {
		t.Errorf("layout %+v", cfg.Layout)
	}
	if !cfg.Document.Strict || cfg.Document.HistorySize != 20 || cfg.Document.HistoryDelay() != 0 {
		t.Errorf("document %+v", cfg.Document)
	}
	if cfg.Images.MaxBytes != 1024 || cfg.Images.Timeout() != DefaultImageTimeout {
		t.Errorf("images %+v", cfg.Images)
	}
	if cfg.Code.Theme != DefaultCodeTheme {
		t.Errorf("code theme %q", cfg.Code.Theme)
	}
}

func TestValidateResetsInvalidValues(t *testing.T) {
	cfg := &Config{
		Document: DocumentConfig{HistorySize: -1, HistoryDelayMs: -5},
		Layout:   LayoutConfig{PageWidth: -3, Measurer: "pixels"},
	}
	cfg.validate()
	want := NewDefaultConfig()
	if cfg.Document != want.Document {
		t.Errorf("document %+v, want %+v", cfg.Document, want.Document)
	}
	if cfg.Layout != want.Layout {
		t.Errorf("layout %+v, want %+v", cfg.Layout, want.Layout)
	}
	if cfg.Images != want.Images || cfg.Logger.LogLevel != "info" {
		t.Errorf("images %+v, log level %q", cfg.Images, cfg.Logger.LogLevel)
	}
	if got := want.Document.HistoryDelay(); got != time.Second {
		t.Errorf("default history delay %v", got)
	}
}

func TestLoadMissingAndBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "none.toml"), nil)
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if !reflect.DeepEqual(cfg, NewDefaultConfig()) {
		t.Fatalf("missing file should give the defaults, got %+v", cfg)
	}

	broken := filepath.Join(dir, "broken.toml")
	os.WriteFile(broken, []byte("[layout\npage_width ="), 0o644)
	if _, err := Load(broken, nil); err == nil {
		t.Fatalf("expected a parse error")
	}
}

func TestSplitCommaList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a , b ,,c ", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		if got := splitCommaList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitCommaList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
