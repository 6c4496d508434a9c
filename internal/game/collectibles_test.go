package game

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bunny-chase/internal/game/terrain"
	"bunny-chase/internal/protocol"
)

// TestSpawnLayout verifies placement ranges and hover height.
func TestSpawnLayout(t *testing.T) {
	var c Collectibles
	pts := c.Spawn(rand.New(rand.NewSource(3)), WorldRadius)
	require.Len(t, pts, CollectibleCount)
	require.Equal(t, CollectibleCount, c.Len())

	for i, it := range c.Items() {
		d := math.Hypot(it.X, it.Z)
		assert.GreaterOrEqual(t, d, 15.0)
		assert.LessOrEqual(t, d, WorldRadius-10)
		assert.Equal(t, terrain.Height(it.X, it.Z)+CollectibleHover, it.Y)
		assert.Equal(t, i, it.Index)
		assert.False(t, it.Collected)
	}
}

// TestTryCollectIdempotent verifies a repeated index counts once.
func TestTryCollectIdempotent(t *testing.T) {
	var c Collectibles
	c.Spawn(rand.New(rand.NewSource(1)), WorldRadius)

	assert.True(t, c.TryCollect(4))
	assert.False(t, c.TryCollect(4))
	assert.Equal(t, 1, c.CollectedCount())

	assert.False(t, c.TryCollect(-1))
	assert.False(t, c.TryCollect(CollectibleCount))
	assert.Equal(t, 1, c.CollectedCount())
}

// TestCollectedCountMonotone verifies the count never decreases until the
// set is cleared.
func TestCollectedCountMonotone(t *testing.T) {
	var c Collectibles
	c.Spawn(rand.New(rand.NewSource(2)), WorldRadius)
	rng := rand.New(rand.NewSource(5))

	prev := 0
	for i := 0; i < 100; i++ {
		c.TryCollect(rng.Intn(CollectibleCount + 2))
		require.GreaterOrEqual(t, c.CollectedCount(), prev)
		prev = c.CollectedCount()
	}
	for i := 0; i < CollectibleCount; i++ {
		c.TryCollect(i)
	}
	assert.True(t, c.Complete())

	c.Clear()
	assert.Zero(t, c.CollectedCount())
	assert.False(t, c.Loaded())
	assert.False(t, c.Complete())
}

// TestReceiveLayoutRejectsWrongSize verifies partial layouts are refused.
func TestReceiveLayoutRejectsWrongSize(t *testing.T) {
	var c Collectibles
	err := c.ReceiveLayout(make([]protocol.Vec2, 3))
	assert.ErrorIs(t, err, protocol.ErrMalformed)
	assert.False(t, c.Loaded())

	pts := c.Spawn(rand.New(rand.NewSource(9)), WorldRadius)
	c.TryCollect(2)
	err = c.ReceiveLayout(pts[:CollectibleCount-1])
	assert.ErrorIs(t, err, protocol.ErrMalformed)
	require.Equal(t, CollectibleCount, c.Len(), "spawned set survives a bad layout")
	assert.Equal(t, 1, c.CollectedCount())
	for i, it := range c.Items() {
		assert.Equal(t, pts[i].X, it.X)
		assert.Equal(t, pts[i].Z, it.Z)
	}
}

// TestInReachAndNearest verifies lookups skip collected items.
func TestInReachAndNearest(t *testing.T) {
	pts := make([]protocol.Vec2, CollectibleCount)
	for i := range pts {
		pts[i] = protocol.Vec2{X: float64(i) * 100, Z: 0}
	}
	pts[1] = protocol.Vec2{X: 1, Z: 1}

	var c Collectibles
	require.NoError(t, c.ReceiveLayout(pts))

	i, ok := c.InReach(0, 0, CollectRadius)
	require.True(t, ok)
	assert.Equal(t, 0, i, "lowest index first")
	c.TryCollect(0)

	i, ok = c.InReach(0, 0, CollectRadius)
	require.True(t, ok)
	assert.Equal(t, 1, i)
	c.TryCollect(1)

	_, ok = c.InReach(0, 0, CollectRadius)
	assert.False(t, ok)

	n, ok := c.Nearest(0, 0)
	require.True(t, ok)
	assert.Equal(t, 2, n.Index)
}
