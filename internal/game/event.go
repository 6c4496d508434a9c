package game

import (
	"encoding/json"
	"time"

	"bunny-chase/internal/protocol"
)

// EventType classifies journal entries.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeRoundStart
	EventTypeScenery
	EventTypeLayout
	EventTypeCollect
	EventTypeRoundEnd
	EventTypeRestart
	EventTypeDropped
)

// EventVersion is bumped when a payload changes shape.
const EventVersion uint8 = 1

// Event is one journal line.
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Sequence  uint64          `json:"sequence"`
	Tick      uint64          `json:"tick"`
	Role      protocol.Role   `json:"role,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (t EventType) String() string {
	switch t {
	case EventTypeRoundStart:
		return "round_start"
	case EventTypeScenery:
		return "scenery"
	case EventTypeLayout:
		return "layout"
	case EventTypeCollect:
		return "collect"
	case EventTypeRoundEnd:
		return "round_end"
	case EventTypeRestart:
		return "restart"
	case EventTypeDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// MarshalText writes the type by name so journals stay readable.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// RoundStartPayload is written when a round begins.
type RoundStartPayload struct {
	Round    int    `json:"round"`
	Movement string `json:"movement"`
	Seed     int64  `json:"seed"`
}

// CollectPayload is written for every collection, local or remote.
type CollectPayload struct {
	Index     int     `json:"index"`
	Collected int     `json:"collected"`
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
	Remote    bool    `json:"remote"`
}

// RoundEndPayload is written when the session leaves Active.
type RoundEndPayload struct {
	Round     int           `json:"round"`
	Winner    protocol.Role `json:"winner"`
	Collected int           `json:"collected"`
	Remote    bool          `json:"remote"`
}

// DroppedPayload is written for inbound frames that failed to decode.
type DroppedPayload struct {
	Reason string `json:"reason"`
}

// SeedPayload carries a scenery seed.
type SeedPayload struct {
	Seed int64 `json:"seed"`
}

// EncodePayload marshals a payload to JSON bytes.
func EncodePayload(payload any) json.RawMessage {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType EventType, tick uint64, role protocol.Role, payload any) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		Tick:      tick,
		Role:      role,
		Payload:   EncodePayload(payload),
	}
}
