package sprite

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/sprite/internal/cache"
)

// Status labels drawn by DrawStatus.
const (
	LoadingLabel = "FILTERING MAGENTA..."
	ErrorLabel   = "INVALID SPRITE SHEET"
)

var (
	loadingInk  = color.RGBA{R: 0xf4, G: 0x72, B: 0xb6, A: 0xff}
	loadingVeil = color.RGBA{A: 0x66}
	errorInk    = color.RGBA{R: 0xf8, G: 0x71, B: 0x71, A: 0xff}
	errorVeil   = color.RGBA{R: 0x3b, A: 0x66}
)

const minLabelSize = 10.0

// maxFaces bounds the number of label sizes kept parsed.
const maxFaces = 8

var (
	goRegular = sync.OnceValues(func() (*opentype.Font, error) {
		return opentype.Parse(goregular.TTF)
	})
	statusFaces = cache.New[int, font.Face](maxFaces)

	// x/image faces are not safe for concurrent use.
	drawMu sync.Mutex
)

func statusFace(size int) font.Face {
	f, err := goRegular()
	if err != nil {
		return nil
	}
	return statusFaces.GetOrCreate(size, func() font.Face {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    float64(size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			Logger().Warn("sprite: status face", "size", size, "err", err)
			return nil
		}
		return face
	})
}

// DrawStatus draws the indicator for state over dst: a dimmed veil and a
// centered label while loading, a red veil and a label on error. Idle and
// success draw nothing.
func DrawStatus(dst *image.RGBA, state LoadState) {
	var (
		label string
		ink   color.RGBA
		veil  color.RGBA
	)
	switch state {
	case StateLoading:
		label, ink, veil = LoadingLabel, loadingInk, loadingVeil
	case StateError:
		label, ink, veil = ErrorLabel, errorInk, errorVeil
	default:
		return
	}

	b := dst.Bounds()
	if b.Empty() {
		return
	}
	draw.Draw(dst, b, image.NewUniform(veil), image.Point{}, draw.Over)

	size := int(max(float64(b.Dx())/24, minLabelSize))
	face := statusFace(size)
	if face == nil {
		return
	}
	drawMu.Lock()
	defer drawMu.Unlock()

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(ink), Face: face}
	width := d.MeasureString(label)
	m := face.Metrics()
	x := fixed.I(b.Min.X) + (fixed.I(b.Dx())-width)/2
	y := fixed.I(b.Min.Y) + (fixed.I(b.Dy())+m.Ascent-m.Descent)/2
	d.Dot = fixed.Point26_6{X: x, Y: y}
	d.DrawString(label)
}
