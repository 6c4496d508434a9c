package relay

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"bunny-chase/internal/observability"
	"bunny-chase/internal/protocol"
)

// HubConfig bounds what one relay process will hold.
type HubConfig struct {
	MaxRooms        int           // open rooms, paired or not
	MaxConnections  int           // WebSocket connections in total
	MaxConnsPerIP   int           // WebSocket connections per client IP
	RoomTTL         time.Duration // unused rooms are reaped after this
	FramesPerSecond float64       // per-connection inbound frame rate
	FrameBurst      int
	MaxFrameBytes   int64
	SendQueue       int // per-connection outbound frames
	AllowedOrigins  []string
}

// DefaultHubConfig returns production-safe defaults. A peer sends one
// position frame per 60 Hz step plus occasional events.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		MaxRooms:        1000,
		MaxConnections:  2000,
		MaxConnsPerIP:   10,
		RoomTTL:         10 * time.Minute,
		FramesPerSecond: 120,
		FrameBurst:      240,
		MaxFrameBytes:   64 * 1024,
		SendQueue:       512,
	}
}

var (
	errTotalLimit = errors.New("too many connections")
	errIPLimit    = errors.New("too many connections from your IP")
)

// Hub owns every room and connection on the relay.
type Hub struct {
	cfg      HubConfig
	upgrader websocket.Upgrader

	mu         sync.RWMutex
	rooms      map[string]*Room
	conns      int
	perIP      map[string]int
	ipRejected uint64

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewHub creates a hub and starts its reaper.
func NewHub(cfg HubConfig) *Hub {
	def := DefaultHubConfig()
	if cfg.MaxRooms <= 0 {
		cfg.MaxRooms = def.MaxRooms
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = def.MaxConnections
	}
	if cfg.MaxConnsPerIP <= 0 {
		cfg.MaxConnsPerIP = def.MaxConnsPerIP
	}
	if cfg.RoomTTL <= 0 {
		cfg.RoomTTL = def.RoomTTL
	}
	if cfg.FramesPerSecond <= 0 {
		cfg.FramesPerSecond = def.FramesPerSecond
	}
	if cfg.FrameBurst <= 0 {
		cfg.FrameBurst = def.FrameBurst
	}
	if cfg.MaxFrameBytes <= 0 {
		cfg.MaxFrameBytes = def.MaxFrameBytes
	}
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = def.SendQueue
	}

	h := &Hub{
		cfg:      cfg,
		rooms:    make(map[string]*Room),
		perIP:    make(map[string]int),
		stopChan: make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if IsAllowedOrigin(origin, cfg.AllowedOrigins) {
				return true
			}
			log.Warn().Str("origin", origin).Msg("⚠️ WebSocket connection rejected")
			observability.RecordConnectionRejected("origin")
			return false
		},
	}
	go h.reapLoop()
	return h
}

// Create opens a room under a fresh code.
func (h *Hub) Create() (*Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.rooms) >= h.cfg.MaxRooms {
		observability.RecordConnectionRejected("room_limit")
		return nil, ErrRoomLimit
	}
	for attempt := 0; attempt < 16; attempt++ {
		code, err := NewCode()
		if err != nil {
			return nil, err
		}
		if _, taken := h.rooms[code]; taken {
			continue
		}
		rm := newRoom(code, time.Now())
		h.rooms[code] = rm
		observability.RoomCreated()
		observability.UpdateRooms(len(h.rooms))
		log.Info().Str("room", code).Msg("🏠 room created")
		return rm, nil
	}
	return nil, fmt.Errorf("no free room code: %w", ErrRoomLimit)
}

// Lookup finds an open room.
func (h *Hub) Lookup(code string) (*Room, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rm, ok := h.rooms[NormalizeCode(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return rm, nil
}

func (h *Hub) remove(rm *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[rm.Code] == rm {
		delete(h.rooms, rm.Code)
	}
	observability.UpdateRooms(len(h.rooms))
}

// RoomCount returns the number of open rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// ConnectionCount returns the number of live peer connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns
}

// admit counts a connection from ip, or refuses it when the relay or that
// IP is at its cap. Every successful admit is paired with one release.
func (h *Hub) admit(ip string) error {
	h.mu.Lock()
	if h.conns >= h.cfg.MaxConnections {
		h.mu.Unlock()
		return errTotalLimit
	}
	if h.perIP[ip] >= h.cfg.MaxConnsPerIP {
		h.ipRejected++
		h.mu.Unlock()
		return errIPLimit
	}
	h.conns++
	h.perIP[ip]++
	n := h.conns
	h.mu.Unlock()
	observability.UpdateWSConnections(n)
	return nil
}

func (h *Hub) release(ip string) {
	h.mu.Lock()
	h.conns--
	h.perIP[ip]--
	if h.perIP[ip] <= 0 {
		delete(h.perIP, ip)
	}
	n := h.conns
	h.mu.Unlock()
	observability.UpdateWSConnections(n)
}

// Stats summarizes the hub for the stats endpoint.
func (h *Hub) Stats() map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]any{
		"rooms":       len(h.rooms),
		"connections": h.conns,
		"clientIPs":   len(h.perIP),
		"ipRejected":  h.ipRejected,
	}
}

// Join seats role in the room named code, upgrading the request. Rejections
// are written as JSON errors before any upgrade happens.
func (h *Hub) Join(w http.ResponseWriter, r *http.Request, code string, role protocol.Role) {
	ip := ClientIP(r)

	rm, err := h.Lookup(code)
	if err != nil {
		observability.RecordConnectionRejected("room_not_found")
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	if err := h.admit(ip); err != nil {
		status, reason := http.StatusServiceUnavailable, "ws_total_limit"
		if errors.Is(err, errIPLimit) {
			status, reason = http.StatusTooManyRequests, "ws_ip_limit"
		}
		log.Warn().Err(err).Str("ip", ip).Msg("⚠️ WebSocket connection rejected")
		observability.RecordConnectionRejected(reason)
		writeError(w, err.Error(), status)
		return
	}

	if err := rm.reserve(role); err != nil {
		h.release(ip)
		reason := "room_full"
		if errors.Is(err, ErrRoomClosed) {
			reason = "room_closed"
		}
		observability.RecordConnectionRejected(reason)
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade")
		rm.unreserve(role)
		h.release(ip)
		return
	}

	p := newPeer(conn, rm, role, ip, h.cfg)
	log.Info().Str("room", rm.Code).Str("role", string(role)).Str("conn", p.id).Str("ip", ip).Msg("📱 peer connected")

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		p.writePump()
	}()
	if rm.attach(p) {
		observability.RoomPaired()
		log.Info().Str("room", rm.Code).Msg("🤝 room paired")
	}
	go func() {
		defer h.wg.Done()
		p.readPump(h.cfg.MaxFrameBytes)
		h.leave(p)
	}()
}

func (h *Hub) leave(p *peer) {
	p.close()
	h.release(p.ip)
	if p.room.detach(p) {
		h.remove(p.room)
		log.Info().Str("room", p.room.Code).Str("role", string(p.role)).Msg("👋 peer left, room closed")
		return
	}
	log.Info().Str("room", p.room.Code).Str("role", string(p.role)).Msg("👋 peer left before pairing")
}

func (h *Hub) reapLoop() {
	interval := h.cfg.RoomTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case now := <-ticker.C:
			h.reap(now)
		}
	}
}

// reap closes rooms nobody has used within RoomTTL.
func (h *Hub) reap(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for code, rm := range h.rooms {
		if now.Sub(rm.Created) > h.cfg.RoomTTL && rm.idle() {
			delete(h.rooms, code)
			n++
		}
	}
	if n > 0 {
		observability.UpdateRooms(len(h.rooms))
		log.Debug().Int("rooms", n).Msg("🧹 reaped idle rooms")
	}
	return n
}

// Close disconnects every peer and waits for their goroutines.
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.stopChan) })
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, rm := range h.rooms {
		rooms = append(rooms, rm)
	}
	h.mu.RUnlock()
	for _, rm := range rooms {
		rm.shutdown()
	}
	h.wg.Wait()
}

// IsAllowedOrigin reports whether a browser origin may open a socket.
// Requests without an Origin header come from native peers and are allowed.
func IsAllowedOrigin(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}
	if strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "http://127.0.0.1") {
		return true
	}
	for _, a := range allowed {
		if a == "*" || origin == a {
			return true
		}
		// "https://*.example.com" matches any subdomain
		if rest, ok := strings.CutPrefix(a, "https://*."); ok && strings.HasPrefix(origin, "https://") &&
			strings.HasSuffix(origin, "."+rest) {
			return true
		}
	}
	return false
}
