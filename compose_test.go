package sprite

import (
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	xdraw "golang.org/x/image/draw"
)

func TestDestRect(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		scale float64
		want  image.Rectangle
	}{
		{"centering with zoom", 580, 1.5, image.Rect(-145, -145, 725, 725)},
		{"identity", 512, 1, image.Rect(0, 0, 512, 512)},
		{"half", 512, 0.5, image.Rect(128, 128, 384, 384)},
		{"triple", 100, 3, image.Rect(-100, -100, 200, 200)},
		{"capped", 10, 1e300, image.Rect(-315, -315, 325, 325)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DestRect(tt.size, tt.scale); got != tt.want {
				t.Errorf("DestRect(%d, %v) = %v, want %v", tt.size, tt.scale, got, tt.want)
			}
		})
	}
}

func TestRenderParams_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   RenderParams
		want RenderParams
	}{
		{"defaults untouched", DefaultRenderParams(), DefaultRenderParams()},
		{"fps floor", RenderParams{FPS: 0.2, Scale: 1, OutputSize: 10}, RenderParams{FPS: 1, Scale: 1, OutputSize: 10}},
		{"negative fps", RenderParams{FPS: -3, Scale: 1, OutputSize: 10}, RenderParams{FPS: 1, Scale: 1, OutputSize: 10}},
		{"nan fps", RenderParams{FPS: math.NaN(), Scale: 1, OutputSize: 10}, RenderParams{FPS: 1, Scale: 1, OutputSize: 10}},
		{"inf fps", RenderParams{FPS: math.Inf(1), Scale: 1, OutputSize: 10}, RenderParams{FPS: maxFPS, Scale: 1, OutputSize: 10}},
		{"negative inset", RenderParams{FPS: 5, Inset: -2, Scale: 1, OutputSize: 10}, RenderParams{FPS: 5, Scale: 1, OutputSize: 10}},
		{"zero scale", RenderParams{FPS: 5, Scale: 0, OutputSize: 10}, RenderParams{FPS: 5, Scale: 1, OutputSize: 10}},
		{"negative scale", RenderParams{FPS: 5, Scale: -2, OutputSize: 10}, RenderParams{FPS: 5, Scale: 1, OutputSize: 10}},
		{"zero size", RenderParams{FPS: 5, Scale: 2}, RenderParams{FPS: 5, Scale: 2, OutputSize: DefaultOutputSize}},
		{"huge fps", RenderParams{FPS: 1e12, Scale: 1, OutputSize: 10}, RenderParams{FPS: maxFPS, Scale: 1, OutputSize: 10}},
		{"huge scale", RenderParams{FPS: 5, Scale: 1e300, OutputSize: 10}, RenderParams{FPS: 5, Scale: maxScale, OutputSize: 10}},
		{"inf scale", RenderParams{FPS: 5, Scale: math.Inf(1), OutputSize: 10}, RenderParams{FPS: 5, Scale: maxScale, OutputSize: 10}},
		{"nan scale", RenderParams{FPS: 5, Scale: math.NaN(), OutputSize: 10}, RenderParams{FPS: 5, Scale: 1, OutputSize: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalize(); got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRenderParams_FrameInterval(t *testing.T) {
	tests := []struct {
		fps  float64
		want time.Duration
	}{
		{12, time.Second / 12},
		{1, time.Second},
		{0, time.Second},
		{24, time.Second / 24},
	}
	for _, tt := range tests {
		got := RenderParams{FPS: tt.fps}.FrameInterval()
		if diff := got - tt.want; diff < -time.Microsecond || diff > time.Microsecond {
			t.Errorf("FrameInterval(fps=%v) = %v, want %v", tt.fps, got, tt.want)
		}
	}
}

func TestInterpolator(t *testing.T) {
	tests := []struct {
		scale float64
		want  xdraw.Interpolator
	}{
		{0.5, xdraw.ApproxBiLinear},
		{1.0, xdraw.ApproxBiLinear},
		{1.5, xdraw.ApproxBiLinear},
		{1.51, xdraw.NearestNeighbor},
		{3.0, xdraw.NearestNeighbor},
	}
	for _, tt := range tests {
		if got := Interpolator(tt.scale); got != tt.want {
			t.Errorf("Interpolator(%v) = %T, want %T", tt.scale, got, tt.want)
		}
	}
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -1 && d <= 1
}

func TestCompose_FillsSurface(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	sheet := filled(4, 4, red)
	dst := image.NewRGBA(image.Rect(0, 0, 8, 8))

	Compose(dst, sheet, sheet.Rect, RenderParams{FPS: 1, Scale: 1, OutputSize: 8})

	for y := range 8 {
		for x := range 8 {
			c := dst.RGBAAt(x, y)
			if !near(c.R, 255) || c.G != 0 || !near(c.A, 255) {
				t.Fatalf("RGBAAt(%d, %d) = %v, want opaque red", x, y, c)
			}
		}
	}
}

func TestCompose_CentersScaledDown(t *testing.T) {
	sheet := filled(4, 4, color.NRGBA{G: 255, A: 255})
	dst := image.NewRGBA(image.Rect(0, 0, 8, 8))

	Compose(dst, sheet, sheet.Rect, RenderParams{FPS: 1, Scale: 0.5, OutputSize: 8})

	if c := dst.RGBAAt(0, 0); c.A != 0 {
		t.Errorf("corner = %v, want transparent", c)
	}
	if c := dst.RGBAAt(7, 7); c.A != 0 {
		t.Errorf("corner = %v, want transparent", c)
	}
	if c := dst.RGBAAt(3, 3); !near(c.G, 255) || !near(c.A, 255) {
		t.Errorf("center = %v, want opaque green", c)
	}
}

func TestCompose_ZoomOverflowNearest(t *testing.T) {
	// 2x2 cell with four distinct colors; scale 2 on an 8px surface draws a
	// 16px square at offset -4, so each quadrant shows one source pixel.
	sheet := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	quad := []color.NRGBA{
		{R: 255, A: 255}, {G: 255, A: 255},
		{B: 255, A: 255}, {R: 255, G: 255, A: 255},
	}
	sheet.SetNRGBA(0, 0, quad[0])
	sheet.SetNRGBA(1, 0, quad[1])
	sheet.SetNRGBA(0, 1, quad[2])
	sheet.SetNRGBA(1, 1, quad[3])

	dst := image.NewRGBA(image.Rect(0, 0, 8, 8))
	Compose(dst, sheet, sheet.Rect, RenderParams{FPS: 1, Scale: 2, OutputSize: 8})

	checks := []struct {
		x, y int
		want color.NRGBA
	}{
		{0, 0, quad[0]}, {7, 0, quad[1]}, {0, 7, quad[2]}, {7, 7, quad[3]},
		{3, 3, quad[0]}, {4, 4, quad[3]},
	}
	for _, c := range checks {
		got := dst.RGBAAt(c.x, c.y)
		if got.R != c.want.R || got.G != c.want.G || got.B != c.want.B || got.A != c.want.A {
			t.Errorf("RGBAAt(%d, %d) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestCompose_EmptySourceClears(t *testing.T) {
	sheet := filled(4, 4, Magenta)
	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range dst.Pix {
		dst.Pix[i] = 0xff
	}

	Compose(dst, sheet, image.Rect(2, 2, 2, 2), RenderParams{FPS: 1, Scale: 1, OutputSize: 4})

	for i, v := range dst.Pix {
		if v != 0 {
			t.Fatalf("Pix[%d] = %d, want cleared surface", i, v)
		}
	}
}

func TestCompose_TransparentPixelsStayTransparent(t *testing.T) {
	sheet, err := Extract(filled(4, 4, Magenta), DefaultChromaKey())
	if err != nil {
		t.Fatal(err)
	}
	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))

	Compose(dst, sheet, sheet.Rect, RenderParams{FPS: 1, Scale: 1, OutputSize: 4})

	for i := 3; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] != 0 {
			t.Fatalf("alpha at %d = %d, want 0", i/4, dst.Pix[i])
		}
	}
}
