package sprite

import (
	"image"
	"math"
	"time"

	xdraw "golang.org/x/image/draw"
)

// Render parameter defaults.
const (
	DefaultFPS        = 12.0
	DefaultInset      = 3
	DefaultScale      = 1.0
	DefaultOutputSize = 512

	// PixelatedScaleThreshold is the scale above which frames are sampled
	// nearest-neighbour to keep pixel-art edges crisp.
	PixelatedScaleThreshold = 1.5

	maxFPS   = 1000
	maxScale = 64
)

// RenderParams controls how a cell is drawn on the output surface.
// Every field may change at any time; the Player reads a snapshot at the
// start of each tick.
type RenderParams struct {
	// FPS is the frame advance rate. Values below 1 are treated as 1.
	FPS float64

	// Inset trims this many pixels from every edge of a cell before
	// drawing, hiding grid-line bleed.
	Inset int

	// Scale is the uniform zoom of the drawn frame. The frame is drawn as a
	// square of side OutputSize*Scale centered on the surface.
	Scale float64

	// OutputSize is the side length of the square output surface.
	OutputSize int
}

// DefaultRenderParams returns the default playback appearance.
func DefaultRenderParams() RenderParams {
	return RenderParams{
		FPS:        DefaultFPS,
		Inset:      DefaultInset,
		Scale:      DefaultScale,
		OutputSize: DefaultOutputSize,
	}
}

// Normalize clamps out-of-range values instead of failing: FPS is kept in
// [1, 1000], Inset floors at 0, a non-positive or NaN Scale becomes 1 and
// larger scales are capped at 64, and a non-positive OutputSize becomes
// DefaultOutputSize.
func (p RenderParams) Normalize() RenderParams {
	switch {
	case p.FPS > maxFPS:
		p.FPS = maxFPS
	case !(p.FPS >= 1):
		p.FPS = 1
	}
	p.Inset = max(p.Inset, 0)
	switch {
	case !(p.Scale > 0):
		p.Scale = 1
	case p.Scale > maxScale:
		p.Scale = maxScale
	}
	if p.OutputSize <= 0 {
		p.OutputSize = DefaultOutputSize
	}
	return p
}

// FrameInterval returns the time between frame advances.
func (p RenderParams) FrameInterval() time.Duration {
	p = p.Normalize()
	return time.Duration(float64(time.Second) / p.FPS)
}

// DestRect returns the square of side outputSize*scale centered on an
// outputSize x outputSize surface. The offset is negative when scale > 1:
// the frame overflows the surface and is clipped while drawing.
func DestRect(outputSize int, scale float64) image.Rectangle {
	scale = min(scale, maxScale)
	drawSize := int(math.Round(float64(outputSize) * scale))
	offset := int(math.Floor(float64(outputSize-drawSize) / 2))
	return image.Rect(offset, offset, offset+drawSize, offset+drawSize)
}

// Interpolator returns the sampler used for the given scale:
// nearest-neighbour above PixelatedScaleThreshold, bilinear otherwise.
func Interpolator(scale float64) xdraw.Interpolator {
	if scale > PixelatedScaleThreshold {
		return xdraw.NearestNeighbor
	}
	return xdraw.ApproxBiLinear
}

// Compose clears dst and draws the src rectangle of sheet scaled into the
// centered destination square described by p. An empty src rectangle (an
// inset larger than half the cell) leaves dst blank.
func Compose(dst *image.RGBA, sheet image.Image, src image.Rectangle, p RenderParams) {
	p = p.Normalize()
	clear(dst.Pix)

	if src.Empty() || sheet == nil {
		return
	}
	dr := DestRect(p.OutputSize, p.Scale).Add(dst.Rect.Min)
	if dr.Empty() || !dr.Overlaps(dst.Rect) {
		return
	}
	Interpolator(p.Scale).Scale(dst, dr, sheet, src, xdraw.Over, nil)
}
