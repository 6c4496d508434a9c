// Package protocol defines the peer-to-peer message set exchanged by two
// simulations of the same match, and the codecs that put it on the wire.
//
// Messages form a closed sum type: every concrete message implements
// Dispatch, which calls exactly one method of Handler. Adding a message kind
// means adding a Handler method, so every consumer fails to compile until it
// decides what to do with the new kind.
package protocol

import (
	"math"
)

// LayoutSize is the fixed number of collectibles in a round.
const LayoutSize = 10

// Role identifies one of the two playable characters.
type Role string

const (
	RoleNone   Role = ""
	RoleBunny  Role = "bunny"
	RoleBobcat Role = "bobcat"
)

// Valid reports whether r names a playable character.
func (r Role) Valid() bool {
	return r == RoleBunny || r == RoleBobcat
}

// Other returns the opposing role.
func (r Role) Other() Role {
	switch r {
	case RoleBunny:
		return RoleBobcat
	case RoleBobcat:
		return RoleBunny
	default:
		return RoleNone
	}
}

// ParseRole converts a wire string into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// Type is the wire tag of a message.
type Type string

const (
	TypePos             Type = "pos"
	TypeCarrotInit      Type = "carrot_init"
	TypeCarrotCollected Type = "carrot_collected"
	TypeGameOver        Type = "game_over"
	TypeGameRestart     Type = "game_restart"
	TypeSceneryInit     Type = "scenery_init"
)

// Types lists every known tag.
var Types = []Type{
	TypePos,
	TypeCarrotInit,
	TypeCarrotCollected,
	TypeGameOver,
	TypeGameRestart,
	TypeSceneryInit,
}

// Handler receives decoded messages, one method per kind.
type Handler interface {
	HandlePos(Pos)
	HandleCarrotInit(CarrotInit)
	HandleCarrotCollected(CarrotCollected)
	HandleGameOver(GameOver)
	HandleGameRestart(GameRestart)
	HandleSceneryInit(SceneryInit)
}

// Message is implemented by every wire message.
type Message interface {
	Type() Type
	Dispatch(h Handler)
	validate() error
}

// Vec2 is a planar ground position.
type Vec2 struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// PosData is the absolute state of one agent.
type PosData struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
	R float64 `json:"r"`
	V Vec2    `json:"v"`
}

// Pos carries the sender's agent state. Sent once per active tick.
type Pos struct {
	Role Role    `json:"role"`
	Data PosData `json:"data"`
}

// CarrotInit carries the full collectible layout generated by the Bunny peer.
type CarrotInit struct {
	Data []Vec2 `json:"data"`
}

// CarrotCollected reports that the collectible at Index was picked up.
type CarrotCollected struct {
	Index int `json:"index"`
}

// GameOver forces the receiving session to end the round.
type GameOver struct {
	Winner Role `json:"winner"`
}

// GameRestart asks the receiving session to reset to a fresh round.
type GameRestart struct{}

// SceneryInit carries the seed the host generated its scenery from.
type SceneryInit struct {
	Seed int64 `json:"seed"`
}

func (Pos) Type() Type             { return TypePos }
func (CarrotInit) Type() Type      { return TypeCarrotInit }
func (CarrotCollected) Type() Type { return TypeCarrotCollected }
func (GameOver) Type() Type        { return TypeGameOver }
func (GameRestart) Type() Type     { return TypeGameRestart }
func (SceneryInit) Type() Type     { return TypeSceneryInit }

func (m Pos) Dispatch(h Handler)             { h.HandlePos(m) }
func (m CarrotInit) Dispatch(h Handler)      { h.HandleCarrotInit(m) }
func (m CarrotCollected) Dispatch(h Handler) { h.HandleCarrotCollected(m) }
func (m GameOver) Dispatch(h Handler)        { h.HandleGameOver(m) }
func (m GameRestart) Dispatch(h Handler)     { h.HandleGameRestart(m) }
func (m SceneryInit) Dispatch(h Handler)     { h.HandleSceneryInit(m) }

func (m Pos) validate() error {
	if !m.Role.Valid() {
		return malformed(TypePos, "unknown role %q", m.Role)
	}
	d := m.Data
	if !finite(d.X, d.Z, d.R, d.V.X, d.V.Z) {
		return malformed(TypePos, "non-finite state")
	}
	return nil
}

func (m CarrotInit) validate() error {
	if len(m.Data) != LayoutSize {
		return malformed(TypeCarrotInit, "got %d positions, want %d", len(m.Data), LayoutSize)
	}
	for i, p := range m.Data {
		if !finite(p.X, p.Z) {
			return malformed(TypeCarrotInit, "position %d is not finite", i)
		}
	}
	return nil
}

func (m CarrotCollected) validate() error {
	if m.Index < 0 || m.Index >= LayoutSize {
		return malformed(TypeCarrotCollected, "index %d out of range", m.Index)
	}
	return nil
}

func (m GameOver) validate() error {
	if !m.Winner.Valid() {
		return malformed(TypeGameOver, "unknown winner %q", m.Winner)
	}
	return nil
}

func (GameRestart) validate() error { return nil }
func (SceneryInit) validate() error { return nil }

// Validate checks the semantic constraints a codec cannot express.
func Validate(m Message) error {
	return m.validate()
}

// newMessage returns a zero value of the message with tag t.
func newMessage(t Type) (Message, bool) {
	switch t {
	case TypePos:
		return &Pos{}, true
	case TypeCarrotInit:
		return &CarrotInit{}, true
	case TypeCarrotCollected:
		return &CarrotCollected{}, true
	case TypeGameOver:
		return &GameOver{}, true
	case TypeGameRestart:
		return &GameRestart{}, true
	case TypeSceneryInit:
		return &SceneryInit{}, true
	default:
		return nil, false
	}
}

// deref turns the pointer produced by newMessage back into a value message.
func deref(m Message) Message {
	switch v := m.(type) {
	case *Pos:
		return *v
	case *CarrotInit:
		return *v
	case *CarrotCollected:
		return *v
	case *GameOver:
		return *v
	case *GameRestart:
		return *v
	case *SceneryInit:
		return *v
	default:
		return m
	}
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
