package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"bunny-chase/internal/observability"
	"bunny-chase/internal/protocol"
	"bunny-chase/internal/transport"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type outbound struct {
	text  bool
	close bool
	data  []byte
}

// peer is one WebSocket connection seated in a room.
type peer struct {
	id   string
	role protocol.Role
	ip   string
	room *Room

	conn    *websocket.Conn
	send    chan outbound
	limiter *rate.Limiter

	done      chan struct{}
	closeOnce sync.Once
}

func newPeer(conn *websocket.Conn, rm *Room, role protocol.Role, ip string, cfg HubConfig) *peer {
	return &peer{
		id:      uuid.NewString(),
		role:    role,
		ip:      ip,
		room:    rm,
		conn:    conn,
		send:    make(chan outbound, cfg.SendQueue),
		limiter: rate.NewLimiter(rate.Limit(cfg.FramesPerSecond), cfg.FrameBurst),
		done:    make(chan struct{}),
	}
}

func (p *peer) enqueue(o outbound) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.send <- o:
		return true
	default:
		return false
	}
}

func (p *peer) control(cf transport.ControlFrame) {
	b, err := json.Marshal(cf)
	if err != nil {
		return
	}
	p.enqueue(outbound{text: true, data: b})
}

// closeAfterFlush lets queued frames go out before the close handshake.
func (p *peer) closeAfterFlush() {
	if !p.enqueue(outbound{close: true}) {
		p.close()
	}
}

func (p *peer) close() {
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

// writePump is the only goroutine writing to conn.
func (p *peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.close()
	}()

	for {
		select {
		case o := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if o.close {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				_ = p.conn.WriteMessage(websocket.CloseMessage, msg)
				return
			}
			kind := websocket.BinaryMessage
			if o.text {
				kind = websocket.TextMessage
			}
			if err := p.conn.WriteMessage(kind, o.data); err != nil {
				log.Debug().Err(err).Str("conn", p.id).Msg("relay write")
				return
			}
		case <-ticker.C:
			if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-p.done:
			return
		}
	}
}

// readPump forwards binary frames to the partner until the connection ends.
func (p *peer) readPump(maxFrame int64) {
	defer p.close()

	p.conn.SetReadLimit(maxFrame)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("conn", p.id).Msg("peer connection lost")
			}
			return
		}
		p.conn.SetReadDeadline(time.Now().Add(pongWait))

		if kind != websocket.BinaryMessage {
			observability.FrameRefused("text")
			continue
		}
		if !p.limiter.Allow() {
			observability.FrameRefused("rate_limit")
			log.Warn().Str("conn", p.id).Str("ip", p.ip).Msg("⚠️ peer exceeded frame rate, disconnecting")
			return
		}
		p.room.forward(p, data)
	}
}
