// Package transport moves opaque frames between two peers. Frames are
// delivered in order, at most once, to a single receiver callback.
package transport

import (
	"errors"
)

var (
	// ErrClosed is returned by Send after the connection closed, including
	// when Send itself closed it because the outbound queue overflowed.
	ErrClosed = errors.New("transport: closed")
)

// Transport is a bidirectional ordered frame channel.
type Transport interface {
	// Send queues frame for delivery. It does not wait for the peer.
	Send(frame []byte) error
	// SetReceiver installs the callback for inbound frames. The callback
	// runs on the transport's goroutine, one frame at a time.
	SetReceiver(fn func(frame []byte))
	// Paired is closed once the other peer is connected.
	Paired() <-chan struct{}
	// Done is closed when the connection ends for any reason.
	Done() <-chan struct{}
	Close() error
}

// Control events sent by the relay as text frames. Game frames are always
// binary, so the two never mix.
const (
	EventPaired   = "paired"
	EventPeerLeft = "peer_left"
)

// ControlFrame is the JSON body of a relay control message.
type ControlFrame struct {
	Event string `json:"event"`
	Room  string `json:"room,omitempty"`
	Role  string `json:"role,omitempty"`
}
