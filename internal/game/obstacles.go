package game

import "fmt"

// CollisionKind selects how an agent reacts to touching scenery.
type CollisionKind string

const (
	// CollisionCrash pushes the agent out and stops it dead.
	CollisionCrash CollisionKind = "crash"
	// CollisionSlide pushes the agent out and removes only the velocity
	// component pointing into the obstacle.
	CollisionSlide CollisionKind = "slide"
)

// ObstaclePolicy resolves one agent/collider contact. (nx, nz) is the unit
// normal from the collider toward the agent and depth the penetration.
type ObstaclePolicy interface {
	Kind() CollisionKind
	Resolve(a *Agent, nx, nz, depth float64)
}

// NewObstaclePolicy returns the policy named by kind.
func NewObstaclePolicy(kind CollisionKind) (ObstaclePolicy, error) {
	switch kind {
	case CollisionCrash, "":
		return CrashPolicy{}, nil
	case CollisionSlide:
		return SlidePolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown collision policy %q", kind)
	}
}

type CrashPolicy struct{}

func (CrashPolicy) Kind() CollisionKind { return CollisionCrash }

func (CrashPolicy) Resolve(a *Agent, nx, nz, depth float64) {
	a.X += nx * depth
	a.Z += nz * depth
	a.VX, a.VZ = 0, 0
}

type SlidePolicy struct{}

func (SlidePolicy) Kind() CollisionKind { return CollisionSlide }

func (SlidePolicy) Resolve(a *Agent, nx, nz, depth float64) {
	a.X += nx * depth
	a.Z += nz * depth
	if into := a.VX*nx + a.VZ*nz; into < 0 {
		a.VX -= into * nx
		a.VZ -= into * nz
	}
}
