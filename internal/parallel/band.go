// Package parallel provides band-based parallel pixel processing for sprite.
//
// A raster is divided into horizontal bands of whole rows that can be
// processed independently. Bands never overlap, so workers write disjoint
// regions of the destination buffer without synchronization.
package parallel

// DefaultBandHeight is the number of rows per band when none is requested.
// 64 rows of a 1024-wide RGBA sheet is 256KB, small enough to keep workers
// busy on typical sheets while amortizing scheduling overhead.
const DefaultBandHeight = 64

// Band is a half-open row range [Y0, Y1) of a raster.
type Band struct {
	Index int
	Y0    int
	Y1    int
}

// Rows returns the number of rows covered by the band.
func (b Band) Rows() int {
	return b.Y1 - b.Y0
}

// SplitRows divides height rows into bands of at most bandHeight rows.
// The last band may be shorter. A non-positive bandHeight uses
// DefaultBandHeight. Returns nil when height is not positive.
func SplitRows(height, bandHeight int) []Band {
	if height <= 0 {
		return nil
	}
	if bandHeight <= 0 {
		bandHeight = DefaultBandHeight
	}

	n := (height + bandHeight - 1) / bandHeight
	bands := make([]Band, 0, n)
	for i := range n {
		y0 := i * bandHeight
		y1 := min(y0+bandHeight, height)
		bands = append(bands, Band{Index: i, Y0: y0, Y1: y1})
	}
	return bands
}
