// Package spatial provides the broad-phase index used for scenery collision.
//
// Entries are stored as integer indices into the caller's slice (not
// pointers), so a grid can be built once for an immutable collider set and
// queried every tick without allocation.
package spatial

import (
	"math"
)

// Grid buckets entries into fixed-size square cells covering a square region
// centred on the origin. Cells are stored in row-major order
// (cells[row*cols+col]).
//
// Optimal cell size is the largest query radius: for the arena that is the
// widest agent radius plus the widest collider radius.
type Grid struct {
	half        float64 // half extent; the grid covers [-half, half] on both axes
	cellSize    float64
	invCellSize float64
	cols, rows  int
	cells       [][]uint32
	scratch     []uint32
	count       int
}

// NewGrid creates a grid covering [-halfExtent, halfExtent] on both axes.
func NewGrid(halfExtent, cellSize float64, expected int) *Grid {
	n := int(math.Ceil(2 * halfExtent / cellSize))
	if n < 1 {
		n = 1
	}

	cells := make([][]uint32, n*n)
	perCell := expected / len(cells)
	if perCell < 2 {
		perCell = 2
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, perCell)
	}

	return &Grid{
		half:        halfExtent,
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        n,
		rows:        n,
		cells:       cells,
		scratch:     make([]uint32, 0, 16),
	}
}

// Insert adds entry id at (x, z). An entry outside the covered region lands
// in the nearest edge cell.
func (g *Grid) Insert(id uint32, x, z float64) {
	idx := g.cellIndex(x, z)
	g.cells[idx] = append(g.cells[idx], id)
	g.count++
}

func (g *Grid) col(x float64) int {
	c := int(math.Floor((x + g.half) * g.invCellSize))
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

func (g *Grid) row(z float64) int {
	r := int(math.Floor((z + g.half) * g.invCellSize))
	if r < 0 {
		return 0
	}
	if r >= g.rows {
		return g.rows - 1
	}
	return r
}

func (g *Grid) cellIndex(x, z float64) int {
	return g.row(z)*g.cols + g.col(x)
}

func (g *Grid) span(x, z, radius float64) (minCol, maxCol, minRow, maxRow int) {
	return g.col(x - radius), g.col(x + radius), g.row(z - radius), g.row(z + radius)
}

// QueryRadius returns the ids of entries whose cells overlap the circle
// (cx, cz, radius). The caller performs the precise distance check.
//
// The returned slice is reused by the next call.
func (g *Grid) QueryRadius(cx, cz, radius float64) []uint32 {
	g.scratch = g.scratch[:0]

	minCol, maxCol, minRow, maxRow := g.span(cx, cz, radius)
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[row*g.cols+col]...)
		}
	}
	return g.scratch
}

// Len returns the number of inserted entries.
func (g *Grid) Len() int {
	return g.count
}

// Stats returns occupancy figures for debugging.
func (g *Grid) Stats() GridStats {
	var total, maxInCell, nonEmpty int
	for _, cell := range g.cells {
		n := len(cell)
		total += n
		if n > maxInCell {
			maxInCell = n
		}
		if n > 0 {
			nonEmpty++
		}
	}

	avg := 0.0
	if nonEmpty > 0 {
		avg = float64(total) / float64(nonEmpty)
	}

	return GridStats{
		TotalCells:     len(g.cells),
		NonEmptyCells:  nonEmpty,
		CellEntries:    total,
		MaxInCell:      maxInCell,
		AvgPerNonEmpty: avg,
	}
}

// GridStats contains grid statistics for debugging.
type GridStats struct {
	TotalCells     int
	NonEmptyCells  int
	CellEntries    int
	MaxInCell      int
	AvgPerNonEmpty float64
}
