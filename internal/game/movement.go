package game

import (
	"fmt"
	"math"
)

// MovementKind selects how input turns into acceleration.
type MovementKind string

const (
	// MovementTank turns the agent with left/right input and pushes it along
	// its heading with forward/back input.
	MovementTank MovementKind = "tank"
	// MovementDirect accelerates along the input vector and turns the
	// heading toward the velocity at a bounded rate.
	MovementDirect MovementKind = "direct"
)

// MovementModel applies input to an agent's velocity and heading.
type MovementModel interface {
	Kind() MovementKind
	// Accelerate runs before friction and the speed cap.
	Accelerate(a *Agent, in Input, t *Tuning)
	// Orient runs after the agent has moved.
	Orient(a *Agent, t *Tuning)
}

// NewMovementModel returns the model named by kind.
func NewMovementModel(kind MovementKind) (MovementModel, error) {
	switch kind {
	case MovementTank, "":
		return TankModel{}, nil
	case MovementDirect:
		return DirectModel{}, nil
	default:
		return nil, fmt.Errorf("unknown movement model %q", kind)
	}
}

// TankModel is the reference steering: input X turns, input Z throttles.
type TankModel struct{}

func (TankModel) Kind() MovementKind { return MovementTank }

func (TankModel) Accelerate(a *Agent, in Input, t *Tuning) {
	if in.X != 0 {
		a.Yaw = WrapAngle(a.Yaw - in.X*t.TankTurnRate)
	}
	throttle := -in.Z
	if throttle == 0 {
		return
	}
	fx, fz := math.Sin(a.Yaw), math.Cos(a.Yaw)
	a.VX += fx * throttle * t.Acceleration
	a.VZ += fz * throttle * t.Acceleration
}

func (TankModel) Orient(*Agent, *Tuning) {}

// DirectModel moves in world space along the input vector.
type DirectModel struct{}

func (DirectModel) Kind() MovementKind { return MovementDirect }

func (DirectModel) Accelerate(a *Agent, in Input, t *Tuning) {
	a.VX += in.X * t.Acceleration
	a.VZ += in.Z * t.Acceleration
}

func (DirectModel) Orient(a *Agent, t *Tuning) {
	if a.Speed() < 1e-3 {
		return
	}
	want := math.Atan2(a.VX, a.VZ)
	delta := ShortestAngle(a.Yaw, want)
	if delta > t.DirectTurnRate {
		delta = t.DirectTurnRate
	} else if delta < -t.DirectTurnRate {
		delta = -t.DirectTurnRate
	}
	a.Yaw = WrapAngle(a.Yaw + delta)
}

// WrapAngle maps an angle into (-π, π].
func WrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// ShortestAngle returns the signed rotation in (-π, π] that takes from to to.
func ShortestAngle(from, to float64) float64 {
	return WrapAngle(to - from)
}
