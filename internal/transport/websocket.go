package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxFrameSize   = 64 * 1024
	sendQueueDepth = 256
)

// WebSocket is a Transport over a relay connection. Game frames travel as
// binary messages; text messages are relay control frames.
type WebSocket struct {
	conn     *websocket.Conn
	outgoing chan []byte

	mu       sync.Mutex // serializes delivery
	receiver func([]byte)
	pending  [][]byte

	paired     chan struct{}
	pairedOnce sync.Once
	done       chan struct{}
	closeOnce  sync.Once
}

// Dial connects to a relay WebSocket URL such as
// ws://host:3000/ws?room=ABCD&role=bunny.
func Dial(ctx context.Context, url string, header http.Header) (*WebSocket, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newWebSocket(conn), nil
}

func newWebSocket(conn *websocket.Conn) *WebSocket {
	ws := &WebSocket{
		conn:     conn,
		outgoing: make(chan []byte, sendQueueDepth),
		paired:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	conn.SetReadLimit(maxFrameSize)
	go ws.writer()
	go ws.reader()
	return ws
}

func (ws *WebSocket) Send(frame []byte) error {
	select {
	case <-ws.done:
		return ErrClosed
	default:
	}
	select {
	case ws.outgoing <- frame:
		return nil
	default:
		// Frames are never dropped; a stalled writer ends the connection.
		log.Warn().Int("queued", len(ws.outgoing)).Msg("send queue full, closing relay connection")
		ws.shutdown()
		return ErrClosed
	}
}

// SetReceiver installs fn and hands it any frames that arrived earlier.
func (ws *WebSocket) SetReceiver(fn func([]byte)) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.receiver = fn
	for _, f := range ws.pending {
		fn(f)
	}
	ws.pending = nil
}

func (ws *WebSocket) Paired() <-chan struct{} { return ws.paired }
func (ws *WebSocket) Done() <-chan struct{}   { return ws.done }

func (ws *WebSocket) Close() error {
	ws.shutdown()
	return nil
}

func (ws *WebSocket) shutdown() {
	ws.closeOnce.Do(func() {
		close(ws.done)
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = ws.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = ws.conn.Close()
	})
}

func (ws *WebSocket) writer() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-ws.outgoing:
			ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				log.Debug().Err(err).Msg("websocket write")
				ws.shutdown()
				return
			}
		case <-ticker.C:
			if err := ws.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				ws.shutdown()
				return
			}
		case <-ws.done:
			return
		}
	}
}

func (ws *WebSocket) reader() {
	defer ws.shutdown()

	ws.conn.SetReadDeadline(time.Now().Add(pongWait))
	ws.conn.SetPongHandler(func(string) error {
		return ws.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := ws.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("relay connection lost")
			}
			return
		}
		ws.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch kind {
		case websocket.BinaryMessage:
			ws.deliver(data)
		case websocket.TextMessage:
			if !ws.control(data) {
				return
			}
		}
	}
}

func (ws *WebSocket) deliver(frame []byte) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.receiver == nil {
		ws.pending = append(ws.pending, frame)
		return
	}
	ws.receiver(frame)
}

// control handles a relay event and reports whether to keep reading.
func (ws *WebSocket) control(data []byte) bool {
	var cf ControlFrame
	if err := json.Unmarshal(data, &cf); err != nil {
		log.Debug().Err(err).Msg("ignoring unreadable control frame")
		return true
	}
	switch cf.Event {
	case EventPaired:
		ws.pairedOnce.Do(func() { close(ws.paired) })
		log.Info().Str("room", cf.Room).Msg("🤝 partner connected")
	case EventPeerLeft:
		log.Info().Str("room", cf.Room).Msg("👋 partner left")
		return false
	}
	return true
}
