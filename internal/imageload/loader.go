// Package imageload fetches image sources for image fragments: file paths,
// data URIs and http(s) URLs. SVG sources are rasterized.
package imageload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bethropolis/scribe/internal/logger"
	isSvg "github.com/h2non/go-is-svg"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

var (
	// ErrUnsupported is returned for sources whose format cannot be decoded.
	ErrUnsupported = errors.New("imageload: unsupported image format")
	// ErrTooLarge is returned when a source exceeds the loader's size limit.
	ErrTooLarge = errors.New("imageload: image too large")
)

const (
	DefaultMaxBytes = 16 << 20
	DefaultTimeout  = 10 * time.Second
	// defaultSVGSize is used when an SVG has no view box.
	defaultSVGSize = 512
)

// Info describes a decoded image.
type Info struct {
	Width  int
	Height int
	Format string // "png", "jpeg", "gif" or "svg"
	Image  image.Image
}

// Loader resolves image sources. The zero value reads files relative to the
// working directory with the default limits.
type Loader struct {
	BaseDir  string
	MaxBytes int64
	Timeout  time.Duration
	Client   *http.Client
}

// LoadImage implements fragment.ImageLoader.
func (l *Loader) LoadImage(ctx context.Context, src string) (image.Image, error) {
	info, err := l.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return info.Image, nil
}

// Load fetches and decodes src.
func (l *Loader) Load(ctx context.Context, src string) (Info, error) {
	data, err := l.read(ctx, src)
	if err != nil {
		return Info{}, err
	}
	info, err := Decode(data)
	if err != nil {
		return Info{}, fmt.Errorf("decode %s: %w", shorten(src), err)
	}
	logger.DebugTagf("image", "decoded %s: %s %dx%d", shorten(src), info.Format, info.Width, info.Height)
	return info, nil
}

func (l *Loader) maxBytes() int64 {
	if l.MaxBytes > 0 {
		return l.MaxBytes
	}
	return DefaultMaxBytes
}

func (l *Loader) read(ctx context.Context, src string) ([]byte, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		return decodeDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return l.fetch(ctx, src)
	case strings.HasPrefix(src, "file://"):
		u, err := url.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("invalid file url %q: %w", src, err)
		}
		return l.readFile(u.Path)
	}
	return l.readFile(src)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	if !filepath.IsAbs(path) && l.BaseDir != "" {
		path = filepath.Join(l.BaseDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image '%s': %w", path, err)
	}
	defer f.Close()
	return l.readLimited(f)
}

func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	limit := l.maxBytes()
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

func (l *Loader) fetch(ctx context.Context, src string) ([]byte, error) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image url %q: %w", src, err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", src, resp.Status)
	}
	return l.readLimited(resp.Body)
}

// decodeDataURI returns the payload of a data: URI, base64 or percent encoded.
func decodeDataURI(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri %q", shorten(src))
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("malformed data uri payload: %w", err)
		}
		return data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("malformed data uri payload: %w", err)
	}
	return []byte(text), nil
}

// Decode sniffs the format of data and decodes it.
func Decode(data []byte) (Info, error) {
	if isSvg.Is(data) {
		img, err := rasterizeSVG(data)
		if err != nil {
			return Info{}, err
		}
		b := img.Bounds()
		return Info{Width: b.Dx(), Height: b.Dy(), Format: "svg", Image: img}, nil
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Info{}, ErrUnsupported
		}
		return Info{}, err
	}
	b := img.Bounds()
	return Info{Width: b.Dx(), Height: b.Dy(), Format: format, Image: img}, nil
}

func rasterizeSVG(data []byte) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read svg: %w", err)
	}
	w, h := int(icon.ViewBox.W), int(icon.ViewBox.H)
	if w <= 0 {
		w = defaultSVGSize
	}
	if h <= 0 {
		h = defaultSVGSize
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)
	icon.SetTarget(0, 0, float64(w), float64(h))
	icon.Draw(raster, 1.0)
	return img, nil
}

func shorten(src string) string {
	if len(src) > 48 {
		return src[:45] + "..."
	}
	return src
}
