package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestGridQueryFindsNearbyEntries verifies entries in the query circle's cells
// are returned and far entries are not.
func TestGridQueryFindsNearbyEntries(t *testing.T) {
	g := NewGrid(500, 10, 16)
	g.Insert(0, 0, 0)
	g.Insert(1, 5, 5)
	g.Insert(2, -300, 200)

	got := g.QueryRadius(1, 1, 6)
	assert.Contains(t, got, uint32(0))
	assert.Contains(t, got, uint32(1))
	assert.NotContains(t, got, uint32(2))
	assert.Equal(t, 3, g.Len())
}

// TestGridClampsOutsidePoints verifies out-of-range inserts land on the edge.
func TestGridClampsOutsidePoints(t *testing.T) {
	g := NewGrid(50, 10, 4)
	g.Insert(3, 900, -900)

	assert.Equal(t, []uint32{3}, g.QueryRadius(49, -49, 0.5))
	assert.Empty(t, g.QueryRadius(-49, 49, 0.5))

	st := g.Stats()
	assert.Equal(t, 100, st.TotalCells)
	assert.Equal(t, 1, st.NonEmptyCells)
	assert.Equal(t, 1, st.CellEntries)
}
