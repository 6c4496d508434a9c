// Package observability holds the process-wide prometheus metrics and the
// localhost debug server.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics with bounded cardinality (no per-room or per-connection labels)
var (
	// Relay metrics
	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_rooms_active",
		Help: "Rooms currently open on the relay",
	})

	roomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_rooms_created_total",
		Help: "Rooms created since start",
	})

	roomsPaired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_rooms_paired_total",
		Help: "Rooms that reached two connected peers",
	})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_websocket_connections_active",
		Help: "Currently active peer WebSocket connections",
	})

	framesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_frames_total",
		Help: "Game frames forwarded between peers",
	})

	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_frames_dropped_total",
		Help: "Game frames the relay refused to forward",
	}, []string{"reason"}) // Bounded: "rate_limit", "unpaired", "queue_full", "text"

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_connection_rejected_total",
		Help: "Connections rejected by rate limiter, origin check or room state",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "invalid", "ws_ip_limit", "ws_total_limit", "room_full", "room_not_found", "room_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// Peer engine metrics
	frameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "peer_frame_duration_seconds",
		Help:    "Time spent draining, stepping and publishing one frame",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025},
	})

	simSteps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peer_sim_steps_total",
		Help: "Fixed simulation steps executed",
	})

	peerFramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peer_frames_sent_total",
		Help: "Protocol messages handed to the transport",
	})

	peerFramesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peer_frames_received_total",
		Help: "Protocol messages decoded from the transport",
	})

	peerFramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peer_frames_dropped_total",
		Help: "Inbound or outbound messages dropped by the engine",
	}, []string{"reason"}) // Bounded: "unknown_type", "malformed", "encode", "send"
)

// RecordConnectionRejected increments the rejection counter.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics.
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateRooms sets the open room gauge.
func UpdateRooms(count int) {
	roomsActive.Set(float64(count))
}

// RoomCreated counts a new room.
func RoomCreated() {
	roomsCreated.Inc()
}

// RoomPaired counts a room reaching two peers.
func RoomPaired() {
	roomsPaired.Inc()
}

// UpdateWSConnections updates the WebSocket connection count.
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// FrameRelayed counts one forwarded frame.
func FrameRelayed() {
	framesRelayed.Inc()
}

// FrameRefused counts a frame the relay did not forward.
func FrameRefused(reason string) {
	framesDropped.WithLabelValues(reason).Inc()
}

// PeerMetrics reports engine activity to prometheus. It satisfies
// game.Metrics.
type PeerMetrics struct{}

func (PeerMetrics) ObserveFrame(steps int, d time.Duration) {
	frameDuration.Observe(d.Seconds())
	simSteps.Add(float64(steps))
}

func (PeerMetrics) FrameSent()     { peerFramesSent.Inc() }
func (PeerMetrics) FrameReceived() { peerFramesReceived.Inc() }

func (PeerMetrics) FrameDropped(reason string) {
	peerFramesDropped.WithLabelValues(reason).Inc()
}
