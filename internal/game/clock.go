package game

import "time"

// DefaultStepRate is the simulation frequency all tuning constants assume.
const DefaultStepRate = 60

// MaxStepsPerFrame bounds catch-up after a stall.
const MaxStepsPerFrame = 5

// Clock converts wall-clock frame time into a whole number of fixed
// simulation steps, carrying the remainder to the next frame. Movement
// speed is therefore independent of the render rate.
type Clock struct {
	step     time.Duration
	maxSteps int
	acc      time.Duration
	dropped  uint64
}

// NewClock returns a clock stepping hz times per second.
func NewClock(hz int) *Clock {
	if hz <= 0 {
		hz = DefaultStepRate
	}
	return &Clock{step: time.Second / time.Duration(hz), maxSteps: MaxStepsPerFrame}
}

// Advance adds elapsed frame time and returns how many steps to run now.
// Time beyond MaxStepsPerFrame steps is discarded.
func (c *Clock) Advance(elapsed time.Duration) int {
	if elapsed < 0 {
		elapsed = 0
	}
	c.acc += elapsed
	n := int(c.acc / c.step)
	c.acc -= time.Duration(n) * c.step
	if n > c.maxSteps {
		c.dropped += uint64(n - c.maxSteps)
		n = c.maxSteps
	}
	return n
}

// Alpha is the fraction of a step left in the accumulator.
func (c *Clock) Alpha() float64 {
	return float64(c.acc) / float64(c.step)
}

// Step returns the fixed step duration.
func (c *Clock) Step() time.Duration { return c.step }

// Dropped returns how many steps were discarded to bound catch-up.
func (c *Clock) Dropped() uint64 { return c.dropped }
