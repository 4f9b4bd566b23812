package sprite

import "image"

// Default grid topology of a generated sheet.
const (
	DefaultColumns = 8
	DefaultRows    = 7
)

// Grid describes a sheet of Rows animations with Columns frames each.
// Sheet dimensions are expected to be divisible by Columns and Rows; any
// remainder pixels on the right and bottom edges are ignored.
type Grid struct {
	Columns int
	Rows    int
}

// DefaultGrid returns the 8x7 grid used by generated sheets.
func DefaultGrid() Grid {
	return Grid{Columns: DefaultColumns, Rows: DefaultRows}
}

// Normalize returns g with non-positive dimensions replaced by 1.
func (g Grid) Normalize() Grid {
	if g.Columns <= 0 {
		g.Columns = 1
	}
	if g.Rows <= 0 {
		g.Rows = 1
	}
	return g
}

// Frames returns the number of cells in the grid.
func (g Grid) Frames() int {
	g = g.Normalize()
	return g.Columns * g.Rows
}

// CellSize returns the size of one cell of a sheet with the given bounds.
func (g Grid) CellSize(bounds image.Rectangle) image.Point {
	g = g.Normalize()
	return image.Pt(bounds.Dx()/g.Columns, bounds.Dy()/g.Rows)
}

// CellRect returns the source rectangle of cell (row, frame) shrunk by inset
// pixels on every side. Row is clamped into [0, Rows) and frame wraps modulo
// Columns. An inset that consumes the whole cell yields an empty rectangle
// anchored at the inset origin rather than a negative size.
func (g Grid) CellRect(bounds image.Rectangle, row, frame, inset int) image.Rectangle {
	g = g.Normalize()
	cell := g.CellSize(bounds)

	row = min(max(row, 0), g.Rows-1)
	frame %= g.Columns
	if frame < 0 {
		frame += g.Columns
	}
	inset = max(inset, 0)

	x0 := bounds.Min.X + frame*cell.X + inset
	y0 := bounds.Min.Y + row*cell.Y + inset
	w := max(cell.X-2*inset, 0)
	h := max(cell.Y-2*inset, 0)

	return image.Rectangle{Min: image.Pt(x0, y0), Max: image.Pt(x0+w, y0+h)}
}
