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

func emptyWorld() *World {
	return NewWorldFromColliders(nil)
}

func newLocomotion(t *testing.T, w *World, mutate func(*Options)) *Locomotion {
	t.Helper()
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	l, err := NewLocomotion(w, opts)
	require.NoError(t, err)
	return l
}

func bunnyAt(x, z float64) *Agent {
	a := NewAgent(protocol.RoleBunny)
	a.X, a.Z = x, z
	return a
}

// TestStaminaDrainAndRegen verifies sprint accounting and its bounds.
func TestStaminaDrainAndRegen(t *testing.T) {
	l := newLocomotion(t, emptyWorld(), nil)
	a := bunnyAt(0, 0)

	res := l.Step(a, Input{Z: -1, Sprint: true})
	assert.True(t, res.Sprinting)
	assert.InDelta(t, 99.4, a.Stamina, 1e-9)

	for a.Stamina > 0 {
		l.Step(a, Input{Z: -1, Sprint: true})
	}
	assert.Equal(t, 0.0, a.Stamina)

	res = l.Step(a, Input{Z: -1, Sprint: true})
	assert.False(t, res.Sprinting, "cannot sprint on an empty tank")
	assert.InDelta(t, 0.3, a.Stamina, 1e-12)

	res = l.Step(a, Input{Z: -1, Sprint: true})
	assert.True(t, res.Sprinting, "any stamina allows a sprint tick")
}

// TestStaminaStaysInRange verifies stamina bounds under arbitrary input.
func TestStaminaStaysInRange(t *testing.T) {
	l := newLocomotion(t, emptyWorld(), nil)
	a := bunnyAt(0, 0)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 2000; i++ {
		in := Input{X: rng.Float64()*2 - 1, Z: rng.Float64()*2 - 1, Sprint: rng.Intn(3) > 0}
		l.Step(a, in)
		require.GreaterOrEqual(t, a.Stamina, 0.0)
		require.LessOrEqual(t, a.Stamina, StaminaMax)
	}
}

// TestSprintNeedsInput verifies a sprint key with negligible movement
// does not drain stamina.
func TestSprintNeedsInput(t *testing.T) {
	l := newLocomotion(t, emptyWorld(), nil)
	a := bunnyAt(0, 0)
	a.Stamina = 50

	res := l.Step(a, Input{Z: -0.05, Sprint: true})
	assert.False(t, res.Sprinting)
	assert.InDelta(t, 50.3, a.Stamina, 1e-9)
}

// TestMaxSpeedByRole verifies the speed cap multipliers.
func TestMaxSpeedByRole(t *testing.T) {
	tn := DefaultTuning()
	tests := []struct {
		role   protocol.Role
		sprint bool
		want   float64
	}{
		{protocol.RoleBunny, false, 1.2},
		{protocol.RoleBunny, true, 1.2 * 1.8},
		{protocol.RoleBobcat, false, 1.2 * 1.08},
		{protocol.RoleBobcat, true, 1.2 * 1.8 * 1.08},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, tn.MaxSpeed(tt.role, tt.sprint), 1e-12, "%s sprint=%v", tt.role, tt.sprint)
	}
}

// TestSpeedNeverExceedsCap verifies the clamp for random input sequences
// away from the arena edge.
func TestSpeedNeverExceedsCap(t *testing.T) {
	for _, kind := range []MovementKind{MovementTank, MovementDirect} {
		l := newLocomotion(t, emptyWorld(), func(o *Options) { o.Movement = kind })
		a := bunnyAt(0, 0)
		rng := rand.New(rand.NewSource(2))

		for i := 0; i < 150; i++ {
			in := Input{X: rng.Float64()*2 - 1, Z: rng.Float64()*2 - 1, Sprint: rng.Intn(2) == 0}
			res := l.Step(a, in)
			require.LessOrEqual(t, res.Speed, res.MaxSpeed+1e-12, "%s tick %d", kind, i)
		}
	}
}

// TestSpeedSettlesAtCap verifies full throttle converges on the cap and
// then holds it exactly.
func TestSpeedSettlesAtCap(t *testing.T) {
	l := newLocomotion(t, emptyWorld(), nil)
	a := bunnyAt(0, 0)

	var prev float64
	for i := 0; i < 100; i++ {
		res := l.Step(a, Input{Z: -1})
		if i > 20 {
			assert.InDelta(t, 1.2, res.Speed, 1e-12)
			assert.InDelta(t, prev, res.Speed, 1e-12)
		}
		prev = res.Speed
	}
}

// TestTankControls verifies turning and throttle directions.
func TestTankControls(t *testing.T) {
	l := newLocomotion(t, emptyWorld(), nil)

	a := bunnyAt(0, 0)
	l.Step(a, Input{X: 1})
	assert.InDelta(t, -0.05, a.Yaw, 1e-12, "right input turns clockwise")
	assert.Zero(t, a.Speed())

	a = bunnyAt(0, 0)
	l.Step(a, Input{Z: -1})
	assert.InDelta(t, 0.15*0.92, a.VZ, 1e-12, "forward follows the heading")
	assert.InDelta(t, 0, a.VX, 1e-12)
	assert.InDelta(t, 0.15*0.92, a.Z, 1e-12)

	a = bunnyAt(0, 0)
	l.Step(a, Input{Z: 1})
	assert.InDelta(t, -0.15*0.92, a.VZ, 1e-12)
}

// TestDirectModelTurnsTowardVelocity verifies the free-direction model.
func TestDirectModelTurnsTowardVelocity(t *testing.T) {
	l := newLocomotion(t, emptyWorld(), func(o *Options) { o.Movement = MovementDirect })
	a := bunnyAt(0, 0)

	l.Step(a, Input{X: 1})
	assert.InDelta(t, 0.15*0.92, a.VX, 1e-12)
	assert.InDelta(t, 0.15, a.Yaw, 1e-12, "turn is rate limited")

	for i := 0; i < 20; i++ {
		l.Step(a, Input{X: 1})
	}
	assert.InDelta(t, math.Pi/2, a.Yaw, 1e-9)
}

// TestZeroInputIsStable verifies no division by zero for an idle agent.
func TestZeroInputIsStable(t *testing.T) {
	for _, kind := range []MovementKind{MovementTank, MovementDirect} {
		l := newLocomotion(t, emptyWorld(), func(o *Options) { o.Movement = kind })
		a := bunnyAt(5, 5)
		res := l.Step(a, Input{})
		assert.Equal(t, 5.0, a.X)
		assert.Equal(t, 5.0, a.Z)
		assert.Equal(t, 0.0, a.Yaw)
		assert.False(t, math.IsNaN(res.Speed))
		assert.False(t, res.MovingFast)
	}
}

// TestInputNormalized verifies diagonal input is scaled to unit length.
func TestInputNormalized(t *testing.T) {
	in := Input{X: 3, Z: 4, Sprint: true}.Normalized()
	assert.InDelta(t, 0.6, in.X, 1e-12)
	assert.InDelta(t, 0.8, in.Z, 1e-12)
	assert.True(t, in.Sprint)

	small := Input{X: 0.3}
	assert.Equal(t, small, small.Normalized())
	assert.Equal(t, Input{}, Input{}.Normalized())
}

// TestFrictionDecay verifies an idle agent stops within the number of
// ticks predicted by the friction constant.
func TestFrictionDecay(t *testing.T) {
	l := newLocomotion(t, emptyWorld(), nil)
	a := bunnyAt(0, 0)
	a.VX = 1.2

	bound := int(math.Ceil(math.Log(1e-3/1.2) / math.Log(0.92)))
	for i := 0; i < bound; i++ {
		l.Step(a, Input{})
	}
	assert.Less(t, a.Speed(), 1e-3)
	assert.Equal(t, 86, bound)
}

// TestTerrainSnap verifies the agent rides the height field.
func TestTerrainSnap(t *testing.T) {
	l := newLocomotion(t, emptyWorld(), nil)
	a := bunnyAt(37, -12)
	l.Step(a, Input{Z: -1})
	assert.Equal(t, terrain.Height(a.X, a.Z), a.Y)
}

// TestSoftBoundary covers the slowdown zone, the pushback band and the
// hard clamp.
func TestSoftBoundary(t *testing.T) {
	l := newLocomotion(t, emptyWorld(), nil)

	t.Run("slowdown", func(t *testing.T) {
		a := bunnyAt(440, 0)
		a.VX = 1
		res := l.Step(a, Input{})
		next := 440 + 0.92
		slow := 1 - 0.8*(next-425)/75
		assert.True(t, res.InEdgeZone)
		assert.InDelta(t, 0.92*slow, a.VX, 1e-12)
		assert.InDelta(t, 440+0.92*slow, a.X, 1e-9)
	})

	t.Run("pushback", func(t *testing.T) {
		a := bunnyAt(480, 0)
		l.Step(a, Input{})
		assert.InDelta(t, -0.3, a.VX, 1e-12)
		assert.InDelta(t, 479.7, a.X, 1e-9)
	})

	t.Run("hard clamp", func(t *testing.T) {
		a := bunnyAt(510, 0)
		l.Step(a, Input{})
		assert.InDelta(t, 490, a.X, 1e-9)
		assert.InDelta(t, 0, a.Z, 1e-12)
	})

	t.Run("interior untouched", func(t *testing.T) {
		a := bunnyAt(100, 0)
		a.VX = 1
		res := l.Step(a, Input{})
		assert.False(t, res.InEdgeZone)
		assert.InDelta(t, 0.92, a.VX, 1e-12)
	})
}

// TestReflectBoundary verifies the bounce variant.
func TestReflectBoundary(t *testing.T) {
	l := newLocomotion(t, emptyWorld(), func(o *Options) { o.Boundary = BoundaryReflect })
	a := bunnyAt(499, 0)
	a.VX = 1.1

	l.Step(a, Input{})
	assert.InDelta(t, -0.506, a.VX, 1e-9)
	assert.InDelta(t, 499-0.506, a.X, 1e-9)
}

func rockWorld() *World {
	return NewWorldFromColliders([]Collider{{Kind: ColliderRock, X: 25, Z: 0, Radius: 1}})
}

// TestCrashCollision verifies the push-out and full stop.
func TestCrashCollision(t *testing.T) {
	l := newLocomotion(t, rockWorld(), nil)
	a := bunnyAt(23, 0)
	a.VX = 0.5

	res := l.Step(a, Input{})
	assert.Equal(t, 1, res.Contacts)
	assert.InDelta(t, 23, a.X, 1e-9)
	assert.Zero(t, a.VX)
	assert.Zero(t, a.VZ)
}

// TestSlideCollision verifies only the inward velocity is removed.
func TestSlideCollision(t *testing.T) {
	l := newLocomotion(t, rockWorld(), func(o *Options) { o.Collision = CollisionSlide })
	a := bunnyAt(23, 0)
	a.VX, a.VZ = 0.5, 0.5

	res := l.Step(a, Input{})
	require.Equal(t, 1, res.Contacts)

	dx, dz := a.X-25, a.Z
	dist := math.Hypot(dx, dz)
	assert.InDelta(t, 2.0, dist, 1e-9, "pushed exactly to contact")
	nx, nz := dx/dist, dz/dist
	assert.InDelta(t, 0, a.VX*nx+a.VZ*nz, 1e-9, "no velocity into the rock")
	assert.Greater(t, a.Speed(), 0.1, "tangential motion survives")
}

// TestCollisionCoincidentCenters verifies a fixed push direction when the
// agent sits exactly on a collider center.
func TestCollisionCoincidentCenters(t *testing.T) {
	l := newLocomotion(t, rockWorld(), nil)
	a := bunnyAt(25, 0)
	l.Step(a, Input{})
	assert.InDelta(t, 27, a.X, 1e-9)
	assert.False(t, math.IsNaN(a.Z))
}

// TestLocomotionDeterministic verifies identical inputs give bit-identical
// agents.
func TestLocomotionDeterministic(t *testing.T) {
	run := func() *Agent {
		l := newLocomotion(t, NewWorld(7), nil)
		a := NewAgent(protocol.RoleBobcat)
		rng := rand.New(rand.NewSource(99))
		for i := 0; i < 500; i++ {
			l.Step(a, Input{X: rng.Float64()*2 - 1, Z: rng.Float64()*2 - 1, Sprint: rng.Intn(2) == 0})
		}
		return a
	}
	a, b := run(), run()
	assert.Equal(t, math.Float64bits(a.X), math.Float64bits(b.X))
	assert.Equal(t, math.Float64bits(a.Z), math.Float64bits(b.Z))
	assert.Equal(t, math.Float64bits(a.Yaw), math.Float64bits(b.Yaw))
	assert.Equal(t, a.Stamina, b.Stamina)
}

// TestUnknownPolicies verifies bad configuration is reported.
func TestUnknownPolicies(t *testing.T) {
	_, err := NewLocomotion(emptyWorld(), Options{Movement: "hover"})
	assert.Error(t, err)
	_, err = NewLocomotion(emptyWorld(), Options{Boundary: "wrap"})
	assert.Error(t, err)
	_, err = NewLocomotion(emptyWorld(), Options{Collision: "ghost"})
	assert.Error(t, err)
}
