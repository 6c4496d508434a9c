package game

import (
	"fmt"
	"math"
	"math/rand"

	"bunny-chase/internal/game/terrain"
	"bunny-chase/internal/protocol"
)

// Collectible is one carrot.
type Collectible struct {
	Index     int
	X, Y, Z   float64
	Collected bool
}

// Collectibles is the round's carrot set. The Bunny peer generates it and
// shares it; both peers then apply collections by index.
type Collectibles struct {
	items     []Collectible
	collected int
}

// GenerateLayout returns count positions uniformly spread in angle,
// between 15 units from the center and 10 units inside the edge.
func GenerateLayout(rng *rand.Rand, count int, radius float64) []protocol.Vec2 {
	pts := make([]protocol.Vec2, count)
	for i := range pts {
		angle := rng.Float64() * math.Pi * 2
		dist := 15 + rng.Float64()*(radius-25)
		pts[i] = protocol.Vec2{X: math.Cos(angle) * dist, Z: math.Sin(angle) * dist}
	}
	return pts
}

// Spawn generates and loads a fresh layout, returning it for broadcast.
func (c *Collectibles) Spawn(rng *rand.Rand, radius float64) []protocol.Vec2 {
	pts := GenerateLayout(rng, CollectibleCount, radius)
	c.load(pts)
	return pts
}

// ReceiveLayout replaces the current set with pts. A layout of the wrong
// size is refused and the current set is kept.
func (c *Collectibles) ReceiveLayout(pts []protocol.Vec2) error {
	if len(pts) != CollectibleCount {
		return fmt.Errorf("%w: layout has %d positions", protocol.ErrMalformed, len(pts))
	}
	c.load(pts)
	return nil
}

// load resets the set to pts. Every collectible starts uncollected and
// hovers above the terrain.
func (c *Collectibles) load(pts []protocol.Vec2) {
	c.items = c.items[:0]
	for i, p := range pts {
		c.items = append(c.items, Collectible{
			Index: i,
			X:     p.X,
			Y:     terrain.Height(p.X, p.Z) + CollectibleHover,
			Z:     p.Z,
		})
	}
	c.collected = 0
}

// Clear removes every collectible.
func (c *Collectibles) Clear() {
	c.items = c.items[:0]
	c.collected = 0
}

// TryCollect marks index i as collected. It reports false when i is out of
// range or was already collected, so repeated announcements are harmless.
func (c *Collectibles) TryCollect(i int) bool {
	if i < 0 || i >= len(c.items) || c.items[i].Collected {
		return false
	}
	c.items[i].Collected = true
	c.collected++
	return true
}

// InReach returns the lowest uncollected index within radius of (x, z).
func (c *Collectibles) InReach(x, z, radius float64) (int, bool) {
	for i := range c.items {
		it := &c.items[i]
		if !it.Collected && math.Hypot(it.X-x, it.Z-z) < radius {
			return i, true
		}
	}
	return -1, false
}

// Nearest returns the closest uncollected collectible.
func (c *Collectibles) Nearest(x, z float64) (Collectible, bool) {
	best, bestD := -1, math.Inf(1)
	for i, it := range c.items {
		if it.Collected {
			continue
		}
		if d := math.Hypot(it.X-x, it.Z-z); d < bestD {
			best, bestD = i, d
		}
	}
	if best < 0 {
		return Collectible{}, false
	}
	return c.items[best], true
}

// Loaded reports whether a layout is present.
func (c *Collectibles) Loaded() bool { return len(c.items) > 0 }

// Len returns the layout size.
func (c *Collectibles) Len() int { return len(c.items) }

// CollectedCount returns how many items are collected.
func (c *Collectibles) CollectedCount() int { return c.collected }

// Complete reports whether a full layout has been collected.
func (c *Collectibles) Complete() bool {
	return len(c.items) == CollectibleCount && c.collected == CollectibleCount
}

// Items returns a copy of the set.
func (c *Collectibles) Items() []Collectible {
	return append([]Collectible(nil), c.items...)
}
