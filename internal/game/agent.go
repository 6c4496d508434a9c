package game

import (
	"math"

	"bunny-chase/internal/game/terrain"
	"bunny-chase/internal/protocol"
)

// Agent is one character in the arena. The local agent is advanced by
// Locomotion; the remote one only follows a RemoteTarget.
type Agent struct {
	Role  protocol.Role
	Local bool

	X, Y, Z float64
	Yaw     float64
	VX, VZ  float64

	Stamina float64
	Radius  float64
}

// SpawnPoint returns the start position and heading of role.
func SpawnPoint(role protocol.Role) (x, z, yaw float64) {
	if role == protocol.RoleBobcat {
		return -SpawnDistance, 0, math.Pi
	}
	return SpawnDistance, 0, 0
}

// NewAgent creates an agent of role at its spawn point.
func NewAgent(role protocol.Role) *Agent {
	a := &Agent{Role: role}
	a.Radius = BunnyRadius
	if role == protocol.RoleBobcat {
		a.Radius = BobcatRadius
	}
	a.Respawn()
	return a
}

// Respawn puts the agent back at its spawn point with full stamina.
func (a *Agent) Respawn() {
	a.X, a.Z, a.Yaw = SpawnPoint(a.Role)
	a.Y = terrain.Height(a.X, a.Z)
	a.VX, a.VZ = 0, 0
	a.Stamina = StaminaMax
}

// Speed returns the planar velocity magnitude.
func (a *Agent) Speed() float64 {
	return math.Hypot(a.VX, a.VZ)
}

// DistanceTo returns the planar distance between two agents.
func (a *Agent) DistanceTo(b *Agent) float64 {
	return math.Hypot(a.X-b.X, a.Z-b.Z)
}

// State returns the agent as it is sent over the wire.
func (a *Agent) State() protocol.PosData {
	return protocol.PosData{
		X: a.X,
		Z: a.Z,
		R: a.Yaw,
		V: protocol.Vec2{X: a.VX, Z: a.VZ},
	}
}
