package sprite

import (
	"bytes"
	"errors"
	"image/gif"
	"os"
	"testing"
)

func testExportOptions(row int) ExportOptions {
	return ExportOptions{
		Grid:       DefaultGrid(),
		Row:        row,
		Params:     RenderParams{FPS: 12, Inset: 0, Scale: 1, OutputSize: 32},
		Background: BackgroundDark,
		Loops:      1,
	}
}

func TestRenderFrames(t *testing.T) {
	sheet := &Sheet{ID: "export", Image: cellSheet()}

	frames, err := RenderFrames(sheet, testExportOptions(4))
	if err != nil {
		t.Fatalf("RenderFrames() error = %v", err)
	}
	if len(frames) != 8 {
		t.Fatalf("len(frames) = %d, want 8", len(frames))
	}
	for i, f := range frames {
		want := cellColor(4, i)
		if got := f.RGBAAt(16, 16); got.R != want.R || got.G != want.G {
			t.Errorf("frame %d center = %v, want %v", i, got, want)
		}
	}
}

func TestRenderFrames_Loops(t *testing.T) {
	opts := testExportOptions(0)
	opts.Loops = 3
	frames, err := RenderFrames(&Sheet{Image: cellSheet()}, opts)
	if err != nil {
		t.Fatalf("RenderFrames() error = %v", err)
	}
	if len(frames) != 24 {
		t.Errorf("len(frames) = %d, want 24", len(frames))
	}
}

func TestRenderFrames_NoSheet(t *testing.T) {
	if _, err := RenderFrames(nil, DefaultExportOptions()); !errors.Is(err, ErrNoSheet) {
		t.Errorf("RenderFrames(nil) error = %v, want ErrNoSheet", err)
	}
}

func TestExportGIF(t *testing.T) {
	for _, bg := range []Background{BackgroundDark, BackgroundNone} {
		t.Run(bg.String(), func(t *testing.T) {
			opts := testExportOptions(1)
			opts.Background = bg

			var buf bytes.Buffer
			if err := ExportGIF(&buf, &Sheet{Image: cellSheet()}, opts); err != nil {
				t.Fatalf("ExportGIF() error = %v", err)
			}

			anim, err := gif.DecodeAll(&buf)
			if err != nil {
				t.Fatalf("gif.DecodeAll() error = %v", err)
			}
			if len(anim.Image) != 8 {
				t.Errorf("frames = %d, want 8", len(anim.Image))
			}
			if anim.Delay[0] != 8 {
				t.Errorf("Delay[0] = %d, want 8", anim.Delay[0])
			}
			if got := anim.Image[0].Rect.Dx(); got != 32 {
				t.Errorf("frame width = %d, want 32", got)
			}
		})
	}
}

func TestExportFrames(t *testing.T) {
	dir := t.TempDir()
	paths, err := ExportFrames(dir, &Sheet{Image: cellSheet()}, testExportOptions(0))
	if err != nil {
		t.Fatalf("ExportFrames() error = %v", err)
	}
	if len(paths) != 8 {
		t.Fatalf("len(paths) = %d, want 8", len(paths))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("Stat(%s) error = %v", p, err)
		}
	}
}
