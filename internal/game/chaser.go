package game

import (
	"math"
)

// Chaser drives the Bobcat in solo play: every few ticks its target closes
// a fixed fraction of the gap to the Bunny and turns to face it.
type Chaser struct {
	Interval uint64
	Fraction float64
}

// NewChaser returns the reference solo opponent: 2% of the gap every
// 3 ticks.
func NewChaser() *Chaser {
	return &Chaser{Interval: 3, Fraction: 0.02}
}

// Step updates t toward prey on every Interval-th tick.
func (c *Chaser) Step(tick uint64, prey *Agent, t *RemoteTarget) {
	if c.Interval == 0 || tick%c.Interval != 0 {
		return
	}
	dx, dz := prey.X-t.X, prey.Z-t.Z
	mx, mz := dx*c.Fraction, dz*c.Fraction
	t.X += mx
	t.Z += mz
	if dx != 0 || dz != 0 {
		t.Yaw = math.Atan2(dx, dz)
	}
	t.VX = mx / float64(c.Interval)
	t.VZ = mz / float64(c.Interval)
}
