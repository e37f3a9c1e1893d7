// cmd/scribe/main.go
package main

import (
	"context"
	"fmt"
	"io"
	stlog "log" // Standard log for errors before the logger is ready
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bethropolis/scribe/internal/block"
	"github.com/bethropolis/scribe/internal/config"
	"github.com/bethropolis/scribe/internal/core/clipboard"
	"github.com/bethropolis/scribe/internal/core/find"
	"github.com/bethropolis/scribe/internal/delta"
	"github.com/bethropolis/scribe/internal/document"
	"github.com/bethropolis/scribe/internal/event"
	"github.com/bethropolis/scribe/internal/fragment"
	"github.com/bethropolis/scribe/internal/highlighter"
	"github.com/bethropolis/scribe/internal/idle"
	"github.com/bethropolis/scribe/internal/imageload"
	"github.com/bethropolis/scribe/internal/logger"
	"github.com/bethropolis/scribe/internal/measure"
	"github.com/bethropolis/scribe/internal/theme"
	"github.com/bethropolis/scribe/internal/types"
	"github.com/gdamore/tcell/v2"
)

const version = "0.1.0"

// idleBudget bounds how long deferred work (recoloring, image loads) may run.
const idleBudget = 30 * time.Second

func main() {
	flags := &config.Flags{}
	args := flags.ParseFlags()
	if *flags.Version {
		fmt.Printf("%s %s\n", config.AppName, version)
		return
	}

	cfg, err := config.LoadConfig(*flags.ConfigFilePath, flags)
	if err != nil {
		stlog.Printf("Warning: %v", err)
	}
	logger.SetDebugFilter(*flags.DebugLog)
	closer, err := logger.InitWithConfig(cfg.Logger)
	if err != nil {
		stlog.Fatalf("Failed to initialize logger: %v", err)
	}
	defer closer.Close()

	filePath := ""
	if len(args) > 0 {
		filePath = args[0]
	}
	if err := run(cfg, flags, filePath, os.Stdout); err != nil {
		logger.Errorf("scribe: %v", err)
		closer.Close()
		os.Exit(1)
	}
}

func readInput(filePath string) (delta.Delta, error) {
	var data []byte
	var err error
	if filePath == "" || filePath == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(filePath)
	}
	if err != nil {
		return delta.Delta{}, fmt.Errorf("read document: %w", err)
	}
	return delta.Parse(data)
}

func newMeasurer(cfg *config.Config) (measure.Measurer, error) {
	if cfg.Layout.Measurer == config.MeasurerFont {
		return measure.NewFontMeasurer()
	}
	return measure.NewCellMeasurer(cfg.Layout.CellWidth, cfg.Layout.LineHeight), nil
}

func loadTheme(cfg *config.Config) *theme.Theme {
	themes := theme.NewManager()
	if cfg.Code.ThemeDir != "" {
		if _, err := themes.LoadThemesFromDir(cfg.Code.ThemeDir); err != nil {
			logger.Warnf("Loading themes from '%s': %v", cfg.Code.ThemeDir, err)
		}
	}
	if err := themes.SetTheme(cfg.Code.Theme); err != nil {
		logger.Warnf("%v, using %s", err, themes.Current().Name)
	}
	return themes.Current()
}

func run(cfg *config.Config, flags *config.Flags, filePath string, out io.Writer) error {
	change, err := readInput(filePath)
	if err != nil {
		return err
	}
	m, err := newMeasurer(cfg)
	if err != nil {
		return err
	}

	events := event.NewManager()
	queue := idle.NewQueue()
	doc, err := document.FromDelta(change, document.Options{
		Measurer:  m,
		Scheduler: queue,
		Tokenizer: highlighter.NewHighlighter(),
		Styler:    loadTheme(cfg),
		Events:    events,
		Width:     cfg.Layout.PageWidth,
		Strict:    cfg.Document.Strict,
	})
	if err != nil {
		return err
	}

	loaded := 0
	events.Subscribe(event.TypeImageLoaded, func(e event.Event) bool {
		data := e.Data.(event.ImageLoadedData)
		logger.Infof("image %s: %s", data.Src, data.State)
		loaded++
		return false
	})

	baseDir := cfg.Images.BaseDir
	if baseDir == "" && filePath != "" && filePath != "-" {
		baseDir = filepath.Dir(filePath)
	}
	loader := &imageload.Loader{BaseDir: baseDir, MaxBytes: cfg.Images.MaxBytes, Timeout: cfg.Images.Timeout()}

	ctx, cancel := context.WithTimeout(context.Background(), idleBudget)
	defer cancel()
	doc.Layout()
	images := doc.ScheduleImageLoads(ctx, loader)
	settle(ctx, doc, queue, func() bool { return loaded >= images })

	printBlocks(out, doc, *flags.Runs)

	if term := *flags.Find; term != "" {
		results, err := find.NewManager(doc).Search(term, find.Options{})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d matches for %q\n", len(results), term)
		for _, r := range results {
			s, e := r.DocRange().Offsets()
			fmt.Fprintf(out, "  %d:%d in %s block\n", s, e, r.Block.Tag())
		}
	}
	if arg := *flags.Copy; arg != "" {
		r, err := parseRange(arg)
		if err != nil {
			return err
		}
		text, err := clipboard.NewSystemManager(doc).Copy(r)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "copied %d characters\n", len([]rune(text)))
	}
	if *flags.Dump {
		data, err := doc.ToKeyedDelta().MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", data)
	}
	return nil
}

// settle runs idle tasks and lays out again until nothing is pending and
// done reports true, or ctx expires.
func settle(ctx context.Context, doc *document.Document, queue *idle.Queue, done func() bool) {
	for ctx.Err() == nil {
		ran := queue.Drain(ctx)
		relaid := doc.Layout()
		if ran == 0 && relaid == 0 && queue.Pending() == 0 {
			if done() {
				return
			}
			if err := queue.Wait(ctx); err != nil {
				break
			}
		}
	}
	logger.Warnf("Gave up waiting for background work: %v", ctx.Err())
}

func printBlocks(out io.Writer, doc *document.Document, runs bool) {
	for i, b := range doc.Blocks() {
		lines := 0
		for _, f := range b.Frames() {
			lines += len(f.Lines())
		}
		base := b.Base()
		label := b.Tag()
		if li, ok := b.(*block.ListItem); ok {
			label = fmt.Sprintf("list %s", li.Title())
		}
		fmt.Fprintf(out, "%3d %-12s @%-5d len %-4d lines %-3d y %.1f  %q\n",
			i, label, base.Start(), base.Len(), lines, base.Y, preview(b.Text()))
		if runs {
			printRuns(out, b)
		}
	}
	fmt.Fprintf(out, "height %.1f\n", doc.ContentHeight())
}

// printRuns lists the text runs of b that render with a non-default
// terminal style.
func printRuns(out io.Writer, b block.Block) {
	for _, f := range b.Frames() {
		for _, c := range f.Children() {
			t, ok := c.(*fragment.Text)
			if !ok {
				continue
			}
			if style := t.CellStyle(tcell.StyleDefault); style != tcell.StyleDefault {
				fmt.Fprintf(out, "      %q %s\n", preview(t.Content()), describeStyle(style))
			}
		}
	}
}

var styleNames = []struct {
	mask tcell.AttrMask
	name string
}{
	{tcell.AttrBold, "bold"},
	{tcell.AttrItalic, "italic"},
	{tcell.AttrUnderline, "underline"},
	{tcell.AttrStrikeThrough, "strike"},
	{tcell.AttrDim, "dim"},
}

func describeStyle(s tcell.Style) string {
	fg, bg, attrs := s.Decompose()
	var parts []string
	if fg != tcell.ColorDefault {
		parts = append(parts, "fg "+fg.String())
	}
	if bg != tcell.ColorDefault {
		parts = append(parts, "bg "+bg.String())
	}
	for _, n := range styleNames {
		if attrs&n.mask != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, " ")
}

func preview(text string) string {
	text = strings.TrimSuffix(text, "\n")
	if r := []rune(text); len(r) > 40 {
		return string(r[:37]) + "..."
	}
	return text
}

func parseRange(s string) (types.Range, error) {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return types.Range{}, fmt.Errorf("invalid range %q, want start:end", s)
	}
	start, err := strconv.Atoi(a)
	if err != nil {
		return types.Range{}, fmt.Errorf("invalid range start %q: %w", a, err)
	}
	end, err := strconv.Atoi(b)
	if err != nil {
		return types.Range{}, fmt.Errorf("invalid range end %q: %w", b, err)
	}
	return types.Span(start, end), nil
}
