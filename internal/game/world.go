package game

import (
	"math"
	"math/rand"
	"sort"

	"bunny-chase/internal/game/spatial"
)

// ColliderKind tells scenery apart for rendering.
type ColliderKind uint8

const (
	ColliderTree ColliderKind = iota + 1
	ColliderRock
)

func (k ColliderKind) String() string {
	switch k {
	case ColliderTree:
		return "tree"
	case ColliderRock:
		return "rock"
	default:
		return "unknown"
	}
}

// Collider is a static circular obstacle on the ground plane.
type Collider struct {
	Kind   ColliderKind
	X, Z   float64
	Radius float64
}

const gridCellSize = 8.0

// World is the static arena: its radius plus the scenery colliders, indexed
// by a uniform grid. It never changes after construction.
type World struct {
	Radius    float64
	Seed      int64
	colliders []Collider
	grid      *spatial.Grid
	maxRadius float64
	scratch   []uint32
}

// NewWorld generates the scenery for seed. Two peers calling NewWorld with
// the same seed get identical colliders.
func NewWorld(seed int64) *World {
	rng := rand.New(rand.NewSource(seed))
	cs := make([]Collider, 0, TreeCount+RockCount)

	for i := 0; i < TreeCount; i++ {
		angle := rng.Float64() * math.Pi * 2
		dist := 25 + rng.Float64()*400
		scale := 0.7 + rng.Float64()*0.8
		cs = append(cs, Collider{
			Kind:   ColliderTree,
			X:      math.Cos(angle) * dist,
			Z:      math.Sin(angle) * dist,
			Radius: 1.2 * scale,
		})
	}
	for i := 0; i < RockCount; i++ {
		angle := rng.Float64() * math.Pi * 2
		dist := 15 + rng.Float64()*400
		cs = append(cs, Collider{
			Kind:   ColliderRock,
			X:      math.Cos(angle) * dist,
			Z:      math.Sin(angle) * dist,
			Radius: 1.0,
		})
	}

	w := NewWorldFromColliders(cs)
	w.Seed = seed
	return w
}

// NewWorldFromColliders builds a world around a fixed collider set.
func NewWorldFromColliders(cs []Collider) *World {
	w := &World{
		Radius:    WorldRadius,
		colliders: append([]Collider(nil), cs...),
		grid:      spatial.NewGrid(WorldRadius, gridCellSize, len(cs)),
	}
	for i, c := range w.colliders {
		w.grid.Insert(uint32(i), c.X, c.Z)
		if c.Radius > w.maxRadius {
			w.maxRadius = c.Radius
		}
	}
	return w
}

// Colliders returns the scenery. Callers must not modify it.
func (w *World) Colliders() []Collider {
	return w.colliders
}

// Near returns the indices of colliders that may overlap a circle of
// radius r at (x, z), in ascending order. The slice is reused by the next
// call.
func (w *World) Near(x, z, r float64) []uint32 {
	// Resolving one contact can move the agent by up to r plus a collider
	// radius, so the search reaches that far past the first contact.
	reach := 2*r + 2*w.maxRadius
	w.scratch = append(w.scratch[:0], w.grid.QueryRadius(x, z, reach)...)
	sort.Slice(w.scratch, func(i, j int) bool { return w.scratch[i] < w.scratch[j] })
	return w.scratch
}

// Collider returns the collider at index i.
func (w *World) Collider(i uint32) Collider {
	return w.colliders[i]
}

// GridStats exposes the broadphase occupancy.
func (w *World) GridStats() spatial.GridStats {
	return w.grid.Stats()
}
