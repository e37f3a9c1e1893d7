package logger

import (
	"bytes"
	"context"
	"log/slog"
	"runtime"
	"strings"
	"testing"
	"time"
)

func newTestHandler(cfg Config) (*filteringHandler, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg.process()
	base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return newFilteringHandler(base, &cfg), &buf
}

func record(msg, tag string) slog.Record {
	var pcs [1]uintptr
	runtime.Callers(2, pcs[:])
	r := slog.NewRecord(time.Now(), slog.LevelInfo, msg, pcs[0])
	if tag != "" {
		r.AddAttrs(slog.String(tagKey, tag))
	}
	return r
}

func TestFilteringHandlerTags(t *testing.T) {
	cfg := NewConfig()
	cfg.EnabledTags = []string{"Layout"}
	h, buf := newTestHandler(cfg)

	_ = h.Handle(context.Background(), record("kept", "layout"))
	_ = h.Handle(context.Background(), record("other tag", "edit"))
	_ = h.Handle(context.Background(), record("untagged", ""))

	out := buf.String()
	if !strings.Contains(out, "kept") {
		t.Fatalf("expected tagged record in output, got %q", out)
	}
	if strings.Contains(out, "other tag") || strings.Contains(out, "untagged") {
		t.Fatalf("unexpected records in output: %q", out)
	}
}

func TestFilteringHandlerDisabledWins(t *testing.T) {
	cfg := NewConfig()
	cfg.EnabledTags = []string{"apply"}
	cfg.DisabledTags = []string{"apply"}
	h, buf := newTestHandler(cfg)

	_ = h.Handle(context.Background(), record("dropped", "apply"))
	if buf.Len() != 0 {
		t.Fatalf("disabled tag should win, got %q", buf.String())
	}
}

func TestFilteringHandlerPackages(t *testing.T) {
	cfg := NewConfig()
	cfg.DisabledPackages = []string{"logger"}
	h, buf := newTestHandler(cfg)

	_ = h.Handle(context.Background(), record("from this package", ""))
	if buf.Len() != 0 {
		t.Fatalf("records from a disabled package must be dropped, got %q", buf.String())
	}

	cfg = NewConfig()
	cfg.EnabledFiles = []string{"handler_test.go"}
	h, buf = newTestHandler(cfg)
	_ = h.Handle(context.Background(), record("from this file", ""))
	if !strings.Contains(buf.String(), "from this file") {
		t.Fatalf("records from an enabled file must pass, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARNING", slog.LevelWarn},
		{"err", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
