package sprite

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
)

// Inspection tolerances.
const (
	// MaxKeyDistance is the CIEDE2000 distance (go-colorful scale, roughly
	// ΔE/100) above which the dominant color is not considered the key.
	MaxKeyDistance = 0.15

	// MaxAspectError is the tolerated relative deviation of the sheet aspect
	// ratio from Columns:Rows.
	MaxAspectError = 0.02

	inspectCandidates = 4
)

// Report summarizes how well a source sheet follows the authoring
// conventions of the grid: square cells on a solid key-colored background.
type Report struct {
	Size image.Point
	Cell image.Point

	// Dominant is the most common color of the source and DominantWeight
	// its share in [0, 1].
	Dominant       color.RGBA
	DominantWeight float64

	// KeyDistance is the CIEDE2000 distance between Dominant and the key.
	KeyDistance float64

	// AspectError is |actual/expected - 1| for the sheet aspect ratio.
	AspectError float64

	Warnings []string
}

// OK reports whether the inspection found nothing to warn about.
func (r Report) OK() bool {
	return len(r.Warnings) == 0
}

// Inspect checks img against grid and key. Findings are advisory; a sheet
// with warnings still plays.
func Inspect(img image.Image, grid Grid, key ChromaKey) Report {
	grid = grid.Normalize()
	b := img.Bounds()
	r := Report{
		Size: b.Size(),
		Cell: grid.CellSize(b),
	}
	if b.Empty() {
		r.Warnings = append(r.Warnings, "empty image")
		return r
	}

	if b.Dx()%grid.Columns != 0 || b.Dy()%grid.Rows != 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"size %dx%d is not divisible by a %dx%d grid; trailing pixels are ignored",
			b.Dx(), b.Dy(), grid.Columns, grid.Rows))
	}

	expected := float64(grid.Columns) / float64(grid.Rows)
	actual := float64(b.Dx()) / float64(b.Dy())
	r.AspectError = math.Abs(actual/expected - 1)
	if r.AspectError > MaxAspectError {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"aspect ratio %.3f differs from %d:%d by %.1f%%",
			actual, grid.Columns, grid.Rows, r.AspectError*100))
	}

	if d := r.Cell.X - r.Cell.Y; d > 1 || d < -1 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("cells are %dx%d, not square", r.Cell.X, r.Cell.Y))
	}

	colors := dominantcolor.FindWeight(img, inspectCandidates)
	if len(colors) == 0 {
		return r
	}
	top := colors[0]
	for _, c := range colors[1:] {
		if c.Weight > top.Weight {
			top = c
		}
	}
	r.Dominant = top.RGBA
	r.DominantWeight = top.Weight

	dom, _ := colorful.MakeColor(color.RGBA{R: top.RGBA.R, G: top.RGBA.G, B: top.RGBA.B, A: 0xff})
	k, _ := colorful.MakeColor(color.NRGBA{R: key.Key.R, G: key.Key.G, B: key.Key.B, A: 0xff})
	r.KeyDistance = dom.DistanceCIEDE2000(k)
	if r.KeyDistance > MaxKeyDistance {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"dominant color %s is not the key color %s; the background may not be removed",
			dom.Clamped().Hex(), k.Hex()))
	}
	return r
}
