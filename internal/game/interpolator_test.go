package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"bunny-chase/internal/game/terrain"
	"bunny-chase/internal/protocol"
)

// TestInterpolatorConverges verifies the distance to a fixed target
// strictly shrinks and then snaps exactly onto it.
func TestInterpolatorConverges(t *testing.T) {
	ip := Interpolator{Factor: 0.2}
	a := NewAgent(protocol.RoleBobcat)
	a.X, a.Z = 0, 0
	target := RemoteTarget{X: 10, Z: -10, Yaw: 1, VX: 0.4, VZ: -0.2}

	prev := math.Hypot(target.X-a.X, target.Z-a.Z)
	ticks := 0
	for prev > 0 {
		ip.Step(a, target)
		d := math.Hypot(target.X-a.X, target.Z-a.Z)
		if d > 0 {
			assert.Less(t, d, prev)
		}
		prev = d
		ticks++
		if ticks > 500 {
			t.Fatal("did not converge")
		}
	}
	assert.Less(t, ticks, 150)
	assert.Equal(t, target.X, a.X)
	assert.Equal(t, target.Z, a.Z)
	assert.Equal(t, terrain.Height(a.X, a.Z), a.Y)
	assert.Equal(t, 0.4, a.VX)
	assert.Equal(t, -0.2, a.VZ)
}

// TestInterpolatorShortestArc verifies heading turns across ±π instead of
// the long way around.
func TestInterpolatorShortestArc(t *testing.T) {
	ip := Interpolator{Factor: 0.2}
	a := NewAgent(protocol.RoleBobcat)
	a.Yaw = -math.Pi + 0.1
	target := RemoteTarget{X: a.X, Z: a.Z, Yaw: math.Pi - 0.1}

	ip.Step(a, target)
	assert.InDelta(t, -math.Pi+0.06, a.Yaw, 1e-12)

	for i := 0; i < 200; i++ {
		ip.Step(a, target)
	}
	assert.InDelta(t, math.Pi-0.1, a.Yaw, 1e-9)
}

func TestShortestAngle(t *testing.T) {
	tests := []struct {
		from, to, want float64
	}{
		{0, 1, 1},
		{1, 0, -1},
		{3, -3, 2*math.Pi - 6},
		{-3, 3, 6 - 2*math.Pi},
		{0, 2 * math.Pi, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ShortestAngle(tt.from, tt.to), 1e-12, "%v→%v", tt.from, tt.to)
	}
}
