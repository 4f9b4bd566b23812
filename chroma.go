package sprite

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	spriteimage "github.com/gogpu/sprite/internal/image"
	"github.com/gogpu/sprite/internal/parallel"
)

// Chroma key defaults.
const (
	// DefaultThreshold is the default background distance in RGB units.
	DefaultThreshold = 120.0

	// DefaultFalloff is the width of the linear alpha ramp beyond the
	// threshold. Pixels inside the ramp are blended to hide the hard edge
	// left by the key.
	DefaultFalloff = 40.0
)

// Magenta is the background key of generated sheets (#FF00FF).
var Magenta = color.NRGBA{R: 255, G: 0, B: 255, A: 255}

// ChromaKey configures background removal.
//
// A pixel whose Euclidean RGB distance d to Key is below Threshold becomes
// fully transparent. A pixel with Threshold <= d < Threshold+Falloff keeps
// the smaller of its own alpha and floor(255*(d-Threshold)/Falloff). All
// other pixels are untouched. Alpha is never increased and color channels
// are never modified.
type ChromaKey struct {
	Key       color.NRGBA
	Threshold float64
	Falloff   float64
}

// DefaultChromaKey returns the magenta key with default threshold and falloff.
func DefaultChromaKey() ChromaKey {
	return ChromaKey{Key: Magenta, Threshold: DefaultThreshold, Falloff: DefaultFalloff}
}

// WithThreshold returns a copy of k with the given threshold.
func (k ChromaKey) WithThreshold(t float64) ChromaKey {
	k.Threshold = t
	return k
}

// keyer holds the precomputed comparison bounds of a ChromaKey.
// Comparisons against squared distances avoid a square root for every
// pixel outside the falloff band.
type keyer struct {
	kr, kg, kb int
	threshold  float64
	falloff    float64
	inner2     float64
	outer2     float64
}

func (k ChromaKey) keyer() keyer {
	t := k.Threshold
	if t < 0 || math.IsNaN(t) {
		t = 0
	}
	f := k.Falloff
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		f = DefaultFalloff
	}
	outer := t + f
	return keyer{
		kr: int(k.Key.R), kg: int(k.Key.G), kb: int(k.Key.B),
		threshold: t,
		falloff:   f,
		inner2:    t * t,
		outer2:    outer * outer,
	}
}

// Alpha returns the alpha the key assigns to a pixel with the given
// straight (non-premultiplied) components.
func (k ChromaKey) Alpha(r, g, b, a uint8) uint8 {
	kk := k.keyer()
	return kk.alpha(r, g, b, a)
}

func (k *keyer) alpha(r, g, b, a uint8) uint8 {
	dr := int(r) - k.kr
	dg := int(g) - k.kg
	db := int(b) - k.kb
	d2 := float64(dr*dr + dg*dg + db*db)

	if d2 < k.inner2 {
		return 0
	}
	if d2 >= k.outer2 {
		return a
	}

	ramp := math.Floor(255 * (math.Sqrt(d2) - k.threshold) / k.falloff)
	ramp = min(max(ramp, 0), 255)
	return min(a, uint8(ramp))
}

// rows rewrites alpha in place for rows [y0, y1) of img.
func (k *keyer) rows(img *image.NRGBA, y0, y1 int) {
	w := img.Rect.Dx()
	for y := y0; y < y1; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			px := row[i : i+4 : i+4]
			px[3] = k.alpha(px[0], px[1], px[2], px[3])
		}
	}
}

// Extract returns a copy of src with the chroma key applied. It runs on the
// calling goroutine and is deterministic: equal inputs always produce
// byte-identical outputs. src is never modified.
//
// Errors wrap ErrProcessing.
func Extract(src image.Image, key ChromaKey) (out *image.NRGBA, err error) {
	defer recoverProcessing(&err)

	dst, err := prepare(src)
	if err != nil {
		return nil, err
	}
	k := key.keyer()
	k.rows(dst, 0, dst.Rect.Dy())
	return dst, nil
}

// Extractor applies chroma keys in parallel over row bands.
//
// Thread safety: Extractor is safe for concurrent use.
type Extractor struct {
	pool       *parallel.WorkerPool
	bandHeight int
}

// NewExtractor creates an Extractor backed by a pool of workers goroutines.
// A non-positive workers value uses GOMAXPROCS.
func NewExtractor(workers int) *Extractor {
	return &Extractor{
		pool:       parallel.NewWorkerPool(workers),
		bandHeight: parallel.DefaultBandHeight,
	}
}

// Extract is the parallel equivalent of the package-level Extract. The
// result is identical to the serial version. Cancellation is observed
// between bands; a cancelled extraction returns ctx.Err() and no image.
func (e *Extractor) Extract(ctx context.Context, src image.Image, key ChromaKey) (out *image.NRGBA, err error) {
	defer recoverProcessing(&err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dst, err := prepare(src)
	if err != nil {
		return nil, err
	}
	k := key.keyer()

	var (
		panicOnce sync.Once
		panicErr  error
	)
	bands := parallel.SplitRows(dst.Rect.Dy(), e.bandHeight)
	work := make([]func(), len(bands))
	for i, b := range bands {
		work[i] = func() {
			defer func() {
				if r := recover(); r != nil {
					panicOnce.Do(func() { panicErr = fmt.Errorf("%w: band %d: %v", ErrProcessing, b.Index, r) })
				}
			}()
			if ctx.Err() != nil {
				return
			}
			k.rows(dst, b.Y0, b.Y1)
		}
	}
	e.pool.ExecuteAll(work)

	if panicErr != nil {
		return nil, panicErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !e.pool.IsRunning() {
		return nil, fmt.Errorf("%w: extractor closed", ErrProcessing)
	}
	return dst, nil
}

// Close releases the worker pool. Close is safe to call multiple times.
func (e *Extractor) Close() {
	e.pool.Close()
}

var errEmptyImage = errors.New("empty image")

func prepare(src image.Image) (*image.NRGBA, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, errEmptyImage)
	}
	return spriteimage.ToNRGBA(src), nil
}

// recoverProcessing converts a panic raised while reading pixels (custom
// image.Image implementations may panic on At) into ErrProcessing.
func recoverProcessing(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrProcessing, r)
	}
}
