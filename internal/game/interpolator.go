package game

import (
	"math"

	"bunny-chase/internal/game/terrain"
	"bunny-chase/internal/protocol"
)

// RemoteTarget is the last state received for the remote agent.
type RemoteTarget struct {
	X, Z   float64
	Yaw    float64
	VX, VZ float64
}

// SpawnTarget returns the target matching role's spawn point.
func SpawnTarget(role protocol.Role) RemoteTarget {
	x, z, yaw := SpawnPoint(role)
	return RemoteTarget{X: x, Z: z, Yaw: yaw}
}

// TargetFrom converts a wire state into a target.
func TargetFrom(d protocol.PosData) RemoteTarget {
	return RemoteTarget{X: d.X, Z: d.Z, Yaw: d.R, VX: d.V.X, VZ: d.V.Z}
}

// snapEpsilon is the distance below which the displayed agent jumps onto
// the target instead of creeping toward it forever.
const snapEpsilon = 1e-9

// Interpolator smooths the displayed remote agent toward its target.
type Interpolator struct {
	Factor float64
}

// Step moves a a fixed fraction of the way toward t, turning along the
// shorter arc, and copies the target velocity for animation.
func (ip Interpolator) Step(a *Agent, t RemoteTarget) {
	k := ip.Factor
	a.X += (t.X - a.X) * k
	a.Z += (t.Z - a.Z) * k
	if math.Abs(t.X-a.X) < snapEpsilon && math.Abs(t.Z-a.Z) < snapEpsilon {
		a.X, a.Z = t.X, t.Z
	}

	d := ShortestAngle(a.Yaw, t.Yaw)
	if math.Abs(d) < snapEpsilon {
		a.Yaw = WrapAngle(t.Yaw)
	} else {
		a.Yaw = WrapAngle(a.Yaw + d*k)
	}

	a.VX, a.VZ = t.VX, t.VZ
	a.Y = terrain.Height(a.X, a.Z)
}
