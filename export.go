package sprite

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	spriteimage "github.com/gogpu/sprite/internal/image"
)

// ExportOptions selects what to render when exporting a row.
type ExportOptions struct {
	Grid       Grid
	Row        int
	Params     RenderParams
	Background Background

	// Loops is the number of times the row is played. Values below 1 are
	// treated as 1.
	Loops int
}

// DefaultExportOptions returns options that export one loop of the idle
// row with default appearance on a checkerboard.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Grid:       DefaultGrid(),
		Row:        int(RowIdle),
		Params:     DefaultRenderParams(),
		Background: BackgroundCheckerboard,
		Loops:      1,
	}
}

// RenderFrames plays one row of sheet on a headless Player and returns
// every drawn frame, flattened over the background. Timestamps are
// synthetic, so the result does not depend on wall-clock time.
func RenderFrames(sheet *Sheet, opts ExportOptions) ([]*image.RGBA, error) {
	if sheet == nil || sheet.Image == nil {
		return nil, ErrNoSheet
	}
	grid := opts.Grid.Normalize()
	params := opts.Params.Normalize()
	loops := max(opts.Loops, 1)

	p := NewPlayer(
		WithGrid(grid),
		WithRenderParams(params),
		WithWorkers(1),
		WithStatusOverlay(false),
		WithInspection(false),
	)
	defer p.Close()

	p.SetRow(opts.Row)
	p.SetSheet(sheet)

	var (
		start    = time.Unix(0, 0)
		interval = params.FrameInterval()
		n        = grid.Columns * loops
		frames   = make([]*image.RGBA, 0, n)
		raw      *image.RGBA
	)
	for i := range n {
		if !p.Tick(start.Add(time.Duration(i) * interval)) {
			return nil, fmt.Errorf("sprite: export: frame %d was not drawn", i)
		}
		raw = p.SnapshotInto(raw)
		out := image.NewRGBA(raw.Rect)
		Flatten(out, raw, opts.Background)
		frames = append(frames, out)
	}
	return frames, nil
}

// ExportGIF encodes one row of sheet as an animated GIF that loops
// forever. The frame delay is 1/FPS rounded to the GIF resolution of 10ms.
func ExportGIF(w io.Writer, sheet *Sheet, opts ExportOptions) error {
	frames, err := RenderFrames(sheet, opts)
	if err != nil {
		return err
	}

	pal := color.Palette(palette.Plan9)
	disposal := byte(gif.DisposalNone)
	if opts.Background == BackgroundNone {
		pal = append(color.Palette{color.Transparent}, palette.Plan9[:255]...)
		disposal = gif.DisposalBackground
	}
	delay := max(int(math.Round(100/opts.Params.Normalize().FPS)), 1)

	anim := &gif.GIF{
		Image:    make([]*image.Paletted, len(frames)),
		Delay:    make([]int, len(frames)),
		Disposal: make([]byte, len(frames)),
	}
	for i, f := range frames {
		pm := image.NewPaletted(f.Rect, pal)
		draw.FloydSteinberg.Draw(pm, f.Rect, f, f.Rect.Min)
		anim.Image[i] = pm
		anim.Delay[i] = delay
		anim.Disposal[i] = disposal
	}
	if err := gif.EncodeAll(w, anim); err != nil {
		return fmt.Errorf("sprite: export gif: %w", err)
	}
	return nil
}

// ExportFrames writes one row of sheet to dir as numbered PNG files
// (frame_00.png, frame_01.png, ...) and returns their paths.
func ExportFrames(dir string, sheet *Sheet, opts ExportOptions) ([]string, error) {
	frames, err := RenderFrames(sheet, opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sprite: export frames: %w", err)
	}

	paths := make([]string, len(frames))
	for i, f := range frames {
		paths[i] = filepath.Join(dir, fmt.Sprintf("frame_%02d.png", i))
		if err := spriteimage.SavePNG(paths[i], f); err != nil {
			return nil, fmt.Errorf("sprite: export frames: %w", err)
		}
	}
	return paths, nil
}
