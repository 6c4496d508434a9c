package game

import (
	"fmt"
	"math"
)

// BoundaryKind selects how the arena edge is enforced.
type BoundaryKind string

const (
	// BoundarySoft slows agents near the edge, pushes them back close to it
	// and clamps them just inside if they get past.
	BoundarySoft BoundaryKind = "soft"
	// BoundaryReflect bounces agents off the edge.
	BoundaryReflect BoundaryKind = "reflect"
)

// BoundaryPolicy keeps an agent within the arena.
type BoundaryPolicy interface {
	Kind() BoundaryKind
	// BeforeMove may change velocity based on where the agent is heading.
	// It reports whether the agent is inside the boundary zone.
	BeforeMove(a *Agent, t *Tuning, radius float64) bool
	// AfterMove corrects the position after integration.
	AfterMove(a *Agent, t *Tuning, radius float64)
}

// NewBoundaryPolicy returns the policy named by kind.
func NewBoundaryPolicy(kind BoundaryKind) (BoundaryPolicy, error) {
	switch kind {
	case BoundarySoft, "":
		return SoftBoundary{}, nil
	case BoundaryReflect:
		return ReflectBoundary{}, nil
	default:
		return nil, fmt.Errorf("unknown boundary policy %q", kind)
	}
}

// SoftBoundary is the reference edge behavior.
type SoftBoundary struct{}

func (SoftBoundary) Kind() BoundaryKind { return BoundarySoft }

func (SoftBoundary) BeforeMove(a *Agent, t *Tuning, radius float64) bool {
	nx, nz := a.X+a.VX, a.Z+a.VZ
	dist := math.Hypot(nx, nz)
	start := radius * t.SoftZoneStart
	if dist <= start {
		return false
	}

	depth := (dist - start) / (radius - start)
	slow := 1 - t.SoftZoneDamping*math.Min(depth, 1)
	a.VX *= slow
	a.VZ *= slow

	if dist > radius*t.PushbackStart {
		a.VX -= nx / dist * t.PushbackImpulse
		a.VZ -= nz / dist * t.PushbackImpulse
	}
	return true
}

func (SoftBoundary) AfterMove(a *Agent, t *Tuning, radius float64) {
	clampInside(a, radius, radius*t.HardClamp)
}

// ReflectBoundary reflects the outward velocity component with restitution.
type ReflectBoundary struct{}

func (ReflectBoundary) Kind() BoundaryKind { return BoundaryReflect }

func (ReflectBoundary) BeforeMove(a *Agent, t *Tuning, radius float64) bool {
	nx, nz := a.X+a.VX, a.Z+a.VZ
	dist := math.Hypot(nx, nz)
	if dist <= radius {
		return false
	}
	ux, uz := nx/dist, nz/dist
	out := a.VX*ux + a.VZ*uz
	if out > 0 {
		a.VX -= (1 + t.Restitution) * out * ux
		a.VZ -= (1 + t.Restitution) * out * uz
	}
	return true
}

func (ReflectBoundary) AfterMove(a *Agent, t *Tuning, radius float64) {
	clampInside(a, radius, radius*t.HardClamp)
}

// clampInside moves an agent that ended past limit back to within.
func clampInside(a *Agent, limit, within float64) {
	dist := math.Hypot(a.X, a.Z)
	if dist <= limit {
		return
	}
	a.X = a.X / dist * within
	a.Z = a.Z / dist * within
}
