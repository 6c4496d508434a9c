package game

import (
	"math/rand"
	"time"
)

// Options configures a session. Both peers of a match should use the same
// movement, boundary and collision kinds.
type Options struct {
	Movement  MovementKind
	Boundary  BoundaryKind
	Collision CollisionKind
	Tuning    Tuning

	// Seed drives the host's scenery. Zero picks one from the clock.
	Seed int64
	// Rand drives collectible layouts. Nil seeds one from the clock.
	Rand *rand.Rand
	// World replaces generated scenery, mostly for tests. The host still
	// announces Seed, so both peers must be given the same World.
	World *World

	// Solo drives the Bobcat with a local Chaser instead of a remote peer.
	Solo bool

	Journal *Journal
}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		Movement:  MovementTank,
		Boundary:  BoundarySoft,
		Collision: CollisionCrash,
		Tuning:    DefaultTuning(),
	}
}

func (o Options) withDefaults() Options {
	if o.Tuning == (Tuning{}) {
		o.Tuning = DefaultTuning()
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}
