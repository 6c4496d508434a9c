// Package terrain holds the deterministic ground height field shared by both
// peers. Every agent, collectible and interpolated position snaps to it, so
// the constants and the order in which octaves are summed must never differ
// between builds that play against each other.
package terrain

import "math"

// Offset is subtracted from the summed octaves so the arena floor sits below
// the origin.
const Offset = 3.0

// octave is one sin(x)·cos(z) layer of the height field.
type octave struct {
	freq   float64
	amp    float64
	phaseX float64
	phaseZ float64
}

// Octaves are evaluated in this order: rolling hills, medium variation, small
// bumps, fine detail.
var octaves = [4]octave{
	{freq: 0.01, amp: 8},
	{freq: 0.025, amp: 4},
	{freq: 0.05, amp: 2, phaseX: 1.3},
	{freq: 0.08, amp: 1, phaseZ: 0.7},
}

// Height returns the ground elevation at planar position (x, z).
//
// The explicit float64 conversions stop the compiler from fusing
// multiply-adds, which some architectures would otherwise round differently.
func Height(x, z float64) float64 {
	h := 0.0
	for _, o := range octaves {
		sx := math.Sin(float64(x*o.freq) + o.phaseX)
		cz := math.Cos(float64(z*o.freq) + o.phaseZ)
		h += float64(sx * cz * o.amp)
	}
	return h - Offset
}

// Bounds returns the lowest and highest value Height can produce.
func Bounds() (lo, hi float64) {
	sum := 0.0
	for _, o := range octaves {
		sum += o.amp
	}
	return -sum - Offset, sum - Offset
}
