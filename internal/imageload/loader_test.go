package imageload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const svgSource = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 20 10" width="20" height="10"><rect width="20" height="10" fill="red"/></svg>`

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoadSources(t *testing.T) {
	raw := pngBytes(t, 8, 4)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.png"), raw, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.svg"), []byte(svgSource), 0o644); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/a.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(raw)
	}))
	defer srv.Close()

	l := &Loader{BaseDir: dir}
	tests := []struct {
		name   string
		src    string
		format string
		w, h   int
	}{
		{"relative file", "a.png", "png", 8, 4},
		{"absolute file", filepath.Join(dir, "a.png"), "png", 8, 4},
		{"file url", "file://" + filepath.Join(dir, "a.png"), "png", 8, 4},
		{"svg file", "b.svg", "svg", 20, 10},
		{"base64 data uri", "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw), "png", 8, 4},
		{"text data uri", "data:image/svg+xml," + svgSource, "svg", 20, 10},
		{"http", srv.URL + "/a.png", "png", 8, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := l.Load(context.Background(), tt.src)
			if err != nil {
				t.Fatal(err)
			}
			if info.Format != tt.format || info.Width != tt.w || info.Height != tt.h || info.Image == nil {
				t.Fatalf("got %s %dx%d, want %s %dx%d", info.Format, info.Width, info.Height, tt.format, tt.w, tt.h)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	l := &Loader{BaseDir: t.TempDir(), MaxBytes: 64}

	if _, err := l.Load(context.Background(), "data:text/plain,hello"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("plain text: err = %v, want ErrUnsupported", err)
	}
	big := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 64, 64))
	if _, err := (&Loader{MaxBytes: 16}).Load(context.Background(), srv.URL); err == nil {
		t.Errorf("404 should fail")
	}
	if _, err := l.Load(context.Background(), "missing.png"); err == nil {
		t.Errorf("missing file should fail")
	}
	if _, err := l.Load(context.Background(), "data:image/png;base64,@@@"); err == nil {
		t.Errorf("bad base64 should fail")
	}
	if err := os.WriteFile(filepath.Join(l.BaseDir, "big.png"), pngBytes(t, 256, 256), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Load(context.Background(), "big.png"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("big file: err = %v, want ErrTooLarge", err)
	}
	if _, err := l.LoadImage(context.Background(), big); err != nil {
		t.Errorf("data uris are not size limited: %v", err)
	}
}
