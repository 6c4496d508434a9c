package game

import (
	"bunny-chase/internal/protocol"
)

// Constants both peers must agree on. Changing any of these breaks
// compatibility with peers that were built with the old value.
const (
	WorldRadius      = 500.0
	CollectibleCount = protocol.LayoutSize
	CollectRadius    = 4.0
	CatchRadius      = 2.0
	CollectibleHover = 1.5
	StaminaMax       = 100.0

	BunnyRadius  = 1.0
	BobcatRadius = 1.5

	SpawnDistance = 20.0

	TreeCount = 60
	RockCount = 40
)

// Tuning holds the per-tick locomotion constants. A peer may load its own
// values; only local movement feel changes since positions are exchanged
// as absolute state.
type Tuning struct {
	StaminaDrain float64 `yaml:"stamina_drain"`
	StaminaRegen float64 `yaml:"stamina_regen"`

	BaseMaxSpeed      float64 `yaml:"base_max_speed"`
	SprintFactor      float64 `yaml:"sprint_factor"`
	BobcatSpeedFactor float64 `yaml:"bobcat_speed_factor"`
	SprintThreshold   float64 `yaml:"sprint_threshold"`

	Acceleration   float64 `yaml:"acceleration"`
	Friction       float64 `yaml:"friction"`
	TankTurnRate   float64 `yaml:"tank_turn_rate"`
	DirectTurnRate float64 `yaml:"direct_turn_rate"`

	SoftZoneStart   float64 `yaml:"soft_zone_start"`
	SoftZoneDamping float64 `yaml:"soft_zone_damping"`
	PushbackStart   float64 `yaml:"pushback_start"`
	PushbackImpulse float64 `yaml:"pushback_impulse"`
	HardClamp       float64 `yaml:"hard_clamp"`
	Restitution     float64 `yaml:"restitution"`

	MovingFastSpeed float64 `yaml:"moving_fast_speed"`
	Interpolation   float64 `yaml:"interpolation"`
}

// DefaultTuning returns the reference movement feel.
func DefaultTuning() Tuning {
	return Tuning{
		StaminaDrain: 0.6,
		StaminaRegen: 0.3,

		BaseMaxSpeed:      1.2,
		SprintFactor:      1.8,
		BobcatSpeedFactor: 1.08,
		SprintThreshold:   0.1,

		Acceleration:   0.15,
		Friction:       0.92,
		TankTurnRate:   0.05,
		DirectTurnRate: 0.15,

		SoftZoneStart:   0.85,
		SoftZoneDamping: 0.8,
		PushbackStart:   0.95,
		PushbackImpulse: 0.3,
		HardClamp:       0.98,
		Restitution:     0.5,

		MovingFastSpeed: 0.5,
		Interpolation:   0.2,
	}
}

// MaxSpeed returns the speed cap for role this tick.
func (t Tuning) MaxSpeed(role protocol.Role, sprinting bool) float64 {
	v := t.BaseMaxSpeed
	if sprinting {
		v *= t.SprintFactor
	}
	if role == protocol.RoleBobcat {
		v *= t.BobcatSpeedFactor
	}
	return v
}
