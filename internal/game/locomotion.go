package game

import (
	"math"

	"bunny-chase/internal/game/terrain"
)

// Input is one tick of player intent. X is left(-)/right(+), Z is
// forward(-)/back(+), so W maps to Z = -1.
type Input struct {
	X, Z   float64
	Sprint bool
}

// Magnitude returns the length of the input vector.
func (in Input) Magnitude() float64 {
	return math.Hypot(in.X, in.Z)
}

// Normalized scales the vector down to unit length when it is longer.
func (in Input) Normalized() Input {
	m := in.Magnitude()
	if m > 1 {
		in.X /= m
		in.Z /= m
	}
	return in
}

// StepResult reports what happened during one locomotion step.
type StepResult struct {
	MaxSpeed   float64
	Speed      float64
	Sprinting  bool
	MovingFast bool
	InEdgeZone bool
	Contacts   int
}

// Locomotion advances the locally controlled agent one tick at a time.
// It is deterministic for a given world, tuning and input sequence.
type Locomotion struct {
	tuning    Tuning
	world     *World
	movement  MovementModel
	boundary  BoundaryPolicy
	obstacles ObstaclePolicy
}

// NewLocomotion wires the selected policies around world.
func NewLocomotion(world *World, opts Options) (*Locomotion, error) {
	mm, err := NewMovementModel(opts.Movement)
	if err != nil {
		return nil, err
	}
	bp, err := NewBoundaryPolicy(opts.Boundary)
	if err != nil {
		return nil, err
	}
	op, err := NewObstaclePolicy(opts.Collision)
	if err != nil {
		return nil, err
	}
	return &Locomotion{
		tuning:    opts.Tuning,
		world:     world,
		movement:  mm,
		boundary:  bp,
		obstacles: op,
	}, nil
}

// SetWorld swaps the arena, e.g. after the host announced its scenery seed.
func (l *Locomotion) SetWorld(w *World) {
	l.world = w
}

// Tuning returns the constants in use.
func (l *Locomotion) Tuning() Tuning {
	return l.tuning
}

// Movement returns the active movement model kind.
func (l *Locomotion) Movement() MovementKind {
	return l.movement.Kind()
}

// Step advances a by one tick of in.
func (l *Locomotion) Step(a *Agent, in Input) StepResult {
	t := &l.tuning
	in = in.Normalized()

	// Stamina
	sprinting := in.Sprint && in.Magnitude() > t.SprintThreshold && a.Stamina > 0
	if sprinting {
		a.Stamina = math.Max(0, a.Stamina-t.StaminaDrain)
	} else {
		a.Stamina = math.Min(StaminaMax, a.Stamina+t.StaminaRegen)
	}
	maxSpeed := t.MaxSpeed(a.Role, sprinting)

	// Acceleration, friction, cap
	l.movement.Accelerate(a, in, t)
	a.VX *= t.Friction
	a.VZ *= t.Friction
	if speed := a.Speed(); speed >= maxSpeed && speed > 0 {
		s := maxSpeed / speed
		a.VX *= s
		a.VZ *= s
	}

	res := StepResult{MaxSpeed: maxSpeed, Sprinting: sprinting}

	// Boundary and integration
	res.InEdgeZone = l.boundary.BeforeMove(a, t, l.world.Radius)
	a.X += a.VX
	a.Z += a.VZ
	l.boundary.AfterMove(a, t, l.world.Radius)

	res.Contacts = l.resolveScenery(a)

	a.Y = terrain.Height(a.X, a.Z)
	l.movement.Orient(a, t)

	res.Speed = a.Speed()
	res.MovingFast = res.Speed > t.MovingFastSpeed
	return res
}

// resolveScenery pushes a out of every collider it overlaps, in collider
// order, and returns the number of contacts.
func (l *Locomotion) resolveScenery(a *Agent) int {
	contacts := 0
	for _, i := range l.world.Near(a.X, a.Z, a.Radius) {
		c := l.world.Collider(i)
		dx, dz := a.X-c.X, a.Z-c.Z
		dist := math.Hypot(dx, dz)
		minDist := a.Radius + c.Radius
		if dist >= minDist {
			continue
		}
		nx, nz := 1.0, 0.0
		if dist > 1e-9 {
			nx, nz = dx/dist, dz/dist
		}
		l.obstacles.Resolve(a, nx, nz, minDist-dist)
		contacts++
	}
	return contacts
}
