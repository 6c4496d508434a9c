package game

import (
	"math"

	"bunny-chase/internal/protocol"
)

// InputSource produces the local input for each simulation step.
type InputSource interface {
	Next(s *Session) Input
}

// InputFunc adapts a function to InputSource.
type InputFunc func(s *Session) Input

func (f InputFunc) Next(s *Session) Input { return f(s) }

// Idle never moves.
type Idle struct{}

func (Idle) Next(*Session) Input { return Input{} }

// Forager plays the Bunny: it heads for the nearest carrot and sprints
// when the Bobcat gets close.
type Forager struct {
	SprintWithin float64
}

func NewForager() *Forager { return &Forager{SprintWithin: 25} }

func (f *Forager) Next(s *Session) Input {
	me := s.Agent(protocol.RoleBunny)
	c, ok := s.Collectibles().Nearest(me.X, me.Z)
	if !ok {
		return Input{}
	}
	in := steer(s.Movement(), me, c.X, c.Z, s.Tuning())
	threat := s.Agent(protocol.RoleBobcat)
	in.Sprint = me.DistanceTo(threat) < f.SprintWithin && me.Stamina > 0
	return in
}

// Pursuer plays the Bobcat: it heads straight for the Bunny and sprints
// for the final stretch while it has stamina to spare.
type Pursuer struct {
	SprintWithin float64
	MinStamina   float64
}

func NewPursuer() *Pursuer { return &Pursuer{SprintWithin: 30, MinStamina: 20} }

func (p *Pursuer) Next(s *Session) Input {
	me := s.Agent(protocol.RoleBobcat)
	prey := s.Agent(protocol.RoleBunny)
	in := steer(s.Movement(), me, prey.X, prey.Z, s.Tuning())
	in.Sprint = me.DistanceTo(prey) < p.SprintWithin && me.Stamina > p.MinStamina
	return in
}

// steer returns the input that moves a toward (x, z) under the given
// movement model.
func steer(kind MovementKind, a *Agent, x, z float64, t Tuning) Input {
	dx, dz := x-a.X, z-a.Z
	dist := math.Hypot(dx, dz)
	if dist < 1e-6 {
		return Input{}
	}
	if kind == MovementDirect {
		return Input{X: dx / dist, Z: dz / dist}
	}

	// Tank: yaw decreases with positive X, and forward is -Z. Large
	// heading errors turn in place so the agent cannot orbit its goal.
	errAngle := ShortestAngle(a.Yaw, math.Atan2(dx, dz))
	turn := math.Max(-1, math.Min(1, -errAngle/t.TankTurnRate))
	if math.Abs(errAngle) > math.Pi/4 {
		return Input{X: turn}
	}
	return Input{X: turn, Z: -1}
}
