package fragment

import (
	"context"
	"image"
	"sync"

	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/logger"
	"github.com/bethropolis/scribe/internal/measure"
)

// MaxLoadAttempts bounds how often a failing image source is retried.
const MaxLoadAttempts = 3

// PlaceholderSize is the edge of the box drawn for an image with no known size.
const PlaceholderSize = 16

// ImageState tracks an image fragment's bitmap.
type ImageState int

const (
	ImageIdle ImageState = iota
	ImageLoading
	ImageLoaded
	ImageFailed
)

func (s ImageState) String() string {
	switch s {
	case ImageLoading:
		return "loading"
	case ImageLoaded:
		return "loaded"
	case ImageFailed:
		return "failed"
	}
	return "idle"
}

// ImageLoader fetches and decodes an image source.
type ImageLoader interface {
	LoadImage(ctx context.Context, src string) (image.Image, error)
}

// Image is an inline picture. Attributes: src, width, height and the
// source's originWidth/originHeight once known.
type Image struct {
	atomic

	mu       sync.Mutex
	state    ImageState
	attempts int
	bitmap   image.Image
	err      error
}

// NewImage returns an unloaded image fragment.
func NewImage(attrs delta.AttributeMap) *Image {
	return &Image{atomic: atomic{attrs: cleanAttrs(attrs)}}
}

func (i *Image) Kind() string { return KindImage }

// Src is the image source.
func (i *Image) Src() string { return i.attrs.String("src") }

// State returns the load state.
func (i *Image) State() ImageState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Attempts is how many loads were tried.
func (i *Image) Attempts() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.attempts
}

// Bitmap returns the decoded image, or nil until loaded.
func (i *Image) Bitmap() image.Image {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != ImageLoaded {
		return nil
	}
	return i.bitmap
}

// Size returns the display size: explicit attributes first, then the
// original size, then a placeholder.
func (i *Image) Size() (w, h float64) {
	ow, _ := i.attrs.Number("originWidth")
	oh, _ := i.attrs.Number("originHeight")
	i.mu.Lock()
	if i.bitmap != nil && (ow <= 0 || oh <= 0) {
		b := i.bitmap.Bounds()
		ow, oh = float64(b.Dx()), float64(b.Dy())
	}
	i.mu.Unlock()

	w, hasW := i.attrs.Number("width")
	h, hasH := i.attrs.Number("height")
	switch {
	case hasW && hasH:
	case hasW && ow > 0:
		h = w * oh / ow
	case hasH && oh > 0:
		w = h * ow / oh
	case ow > 0 && oh > 0:
		w, h = ow, oh
	default:
		w, h = PlaceholderSize, PlaceholderSize
	}
	return w, h
}

// ResizeAttributes returns the attributes that scale the image to width,
// keeping its aspect ratio when the original size is known.
func (i *Image) ResizeAttributes(width float64) delta.AttributeMap {
	w, h := i.Size()
	out := delta.AttributeMap{"width": width}
	if w > 0 {
		out["height"] = width * h / w
	}
	return out
}

func (i *Image) CalMetrics(m measure.Measurer) {
	w, h := i.Size()
	i.width = m.PointsToPixels(w)
	ph := m.PointsToPixels(h)
	i.metrics = measure.Metrics{Baseline: ph, Bottom: ph}
}

// Load starts fetching the bitmap unless a load already ran. The fetch runs
// on its own goroutine; completion is posted through sched, where the state
// changes and onDone runs.
func (i *Image) Load(ctx context.Context, loader ImageLoader, sched measure.Scheduler, onDone func(*Image)) bool {
	i.mu.Lock()
	if i.state != ImageIdle {
		i.mu.Unlock()
		return false
	}
	i.state = ImageLoading
	i.mu.Unlock()

	src := i.Src()
	go func() {
		img, attempts, err := LoadWithRetry(ctx, loader, src, MaxLoadAttempts)
		sched.RequestIdle(func() {
			i.finish(img, attempts, err)
			if onDone != nil {
				onDone(i)
			}
		})
	}()
	return true
}

func (i *Image) finish(img image.Image, attempts int, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.attempts = attempts
	if err != nil {
		i.state = ImageFailed
		i.err = err
		logger.WarnTagf("image", "giving up on %q after %d attempts: %v", i.attrs.String("src"), attempts, err)
		return
	}
	i.state = ImageLoaded
	i.bitmap = img
	logger.DebugTagf("image", "loaded %q (%v)", i.attrs.String("src"), img.Bounds())
}

// Err is the last load error of a failed image.
func (i *Image) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.err
}

// LoadWithRetry calls loader up to attempts times and returns the image, how
// many attempts ran and the final error.
func LoadWithRetry(ctx context.Context, loader ImageLoader, src string, attempts int) (image.Image, int, error) {
	var err error
	n := 0
	for n < attempts {
		n++
		var img image.Image
		img, err = loader.LoadImage(ctx, src)
		if err == nil {
			return img, n, nil
		}
		logger.DebugTagf("image", "attempt %d for %q failed: %v", n, src, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, n, err
}

func (i *Image) InsertText(content string, pos int, attrs delta.AttributeMap) []Fragment {
	return splitAround(i, content, pos, attrs)
}

func (i *Image) Delete(start, end int, forward bool) bool { return i.delete(start, end, forward) }

func (i *Image) Format(attrs delta.AttributeMap, start, end int) []Fragment {
	if start <= 0 && end >= 1 {
		i.format(attrs, func(k string) bool {
			switch k {
			case "src", "width", "height", "originWidth", "originHeight", "link":
				return true
			}
			return false
		})
	}
	return []Fragment{i}
}

func (i *Image) ToOp() delta.Op { return embedOp(KindImage, i.attrs) }

// Clone copies the attributes; the copy starts unloaded.
func (i *Image) Clone() Fragment {
	return NewImage(i.attrs.Clone())
}
