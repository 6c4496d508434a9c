package relay

import (
	"errors"
	"sync"
	"time"

	"bunny-chase/internal/observability"
	"bunny-chase/internal/protocol"
	"bunny-chase/internal/transport"
)

var (
	// ErrRoomNotFound is returned for codes that name no open room.
	ErrRoomNotFound = errors.New("relay: room not found")
	// ErrRoomFull is returned when the requested role is already connected.
	ErrRoomFull = errors.New("relay: room full")
	// ErrRoomLimit is returned when the relay holds its maximum of rooms.
	ErrRoomLimit = errors.New("relay: room limit reached")
	// ErrRoomClosed is returned when joining a room whose match already ended.
	ErrRoomClosed = errors.New("relay: room closed")
)

// Room pairs one Bunny connection with one Bobcat connection.
type Room struct {
	Code    string
	Created time.Time

	mu     sync.Mutex
	peers  map[protocol.Role]*peer
	paired bool
	closed bool
}

// RoomStatus is the public view of a room.
type RoomStatus struct {
	Code    string          `json:"code"`
	Created time.Time       `json:"created"`
	Roles   []protocol.Role `json:"roles"`
	Paired  bool            `json:"paired"`
	Closed  bool            `json:"closed"`
}

func newRoom(code string, now time.Time) *Room {
	return &Room{
		Code:    code,
		Created: now,
		peers:   make(map[protocol.Role]*peer, 2),
	}
}

// Status reports who is connected.
func (rm *Room) Status() RoomStatus {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	st := RoomStatus{Code: rm.Code, Created: rm.Created, Paired: rm.paired, Closed: rm.closed, Roles: []protocol.Role{}}
	for _, r := range []protocol.Role{protocol.RoleBunny, protocol.RoleBobcat} {
		if rm.peers[r] != nil {
			st.Roles = append(st.Roles, r)
		}
	}
	return st
}

// reserve claims role before the HTTP upgrade so a racing second request
// for the same role fails with a proper status code.
func (rm *Room) reserve(role protocol.Role) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed {
		return ErrRoomClosed
	}
	if _, taken := rm.peers[role]; taken {
		return ErrRoomFull
	}
	rm.peers[role] = nil
	return nil
}

// unreserve drops a reservation whose upgrade failed.
func (rm *Room) unreserve(role protocol.Role) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if p, ok := rm.peers[role]; ok && p == nil {
		delete(rm.peers, role)
	}
}

// attach installs p in its reserved slot. When both slots hold live
// connections each side is told it is paired before any game frame can
// reach it.
func (rm *Room) attach(p *peer) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed {
		p.closeAfterFlush()
		return false
	}
	rm.peers[p.role] = p
	partner := rm.peers[p.role.Other()]
	if partner == nil {
		return false
	}
	rm.paired = true
	partner.control(transport.ControlFrame{Event: transport.EventPaired, Room: rm.Code, Role: string(partner.role)})
	p.control(transport.ControlFrame{Event: transport.EventPaired, Room: rm.Code, Role: string(p.role)})
	return true
}

// forward hands a binary frame from p to its partner, preserving order.
func (rm *Room) forward(from *peer, frame []byte) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	partner := rm.peers[from.role.Other()]
	if partner == nil || rm.closed {
		observability.FrameRefused("unpaired")
		return
	}
	if !partner.enqueue(outbound{data: frame}) {
		// Frames are never dropped; a stalled reader loses its seat.
		observability.FrameRefused("queue_full")
		partner.close()
		return
	}
	observability.FrameRelayed()
}

// detach removes p. The first departure ends the match: the partner is
// told and then disconnected. It reports whether the room is now closed.
func (rm *Room) detach(p *peer) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.peers[p.role] == p {
		delete(rm.peers, p.role)
	}
	if !rm.paired && !rm.closed {
		// Nobody was waiting on this connection; the seat reopens.
		return false
	}
	rm.closed = true
	if partner := rm.peers[p.role.Other()]; partner != nil {
		partner.control(transport.ControlFrame{Event: transport.EventPeerLeft, Room: rm.Code, Role: string(p.role)})
		partner.closeAfterFlush()
	}
	return true
}

// shutdown disconnects everyone.
func (rm *Room) shutdown() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.closed = true
	for _, p := range rm.peers {
		if p != nil {
			p.closeAfterFlush()
		}
	}
}

// idle reports whether nobody holds or has reserved a seat.
func (rm *Room) idle() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.peers) == 0
}
