package game

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"bunny-chase/internal/protocol"
	"bunny-chase/internal/transport"
)

// Metrics receives engine counters. Implementations must be safe for
// concurrent use: FrameReceived and FrameDropped run on the transport's
// goroutine.
type Metrics interface {
	ObserveFrame(steps int, d time.Duration)
	FrameSent()
	FrameReceived()
	FrameDropped(reason string)
}

type noMetrics struct{}

func (noMetrics) ObserveFrame(int, time.Duration) {}
func (noMetrics) FrameSent()                      {}
func (noMetrics) FrameReceived()                  {}
func (noMetrics) FrameDropped(string)             {}

// EngineConfig wires an Engine to its collaborators.
type EngineConfig struct {
	FrameRate int // frames per second of the driving loop
	StepRate  int // fixed simulation steps per second
	InboxSize int

	Codec     protocol.Codec
	Transport transport.Transport // nil for solo play
	Input     InputSource
	Metrics   Metrics
}

// DefaultEngineConfig returns a 60 Hz loop with the JSON codec unset.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		FrameRate: 60,
		StepRate:  DefaultStepRate,
		InboxSize: 1024,
		Input:     Idle{},
	}
}

// ErrEngineStopped is returned for commands issued after Stop.
var ErrEngineStopped = errors.New("game: engine stopped")

type command struct {
	fn   func(*Session) error
	done chan error
}

type dropNotice struct {
	err error
}

// Engine owns a Session and is the only goroutine that touches it.
// Inbound frames are decoded on the transport goroutine, queued, and
// applied at the start of the next step; local commands travel the same
// queue so they are ordered with network messages.
type Engine struct {
	mu       sync.Mutex
	running  bool
	stopped  bool
	stopChan chan struct{}
	done     chan struct{}

	session   *Session
	codec     protocol.Codec
	tr        transport.Transport
	input     InputSource
	metrics   Metrics
	clock     *Clock
	inbox     chan any
	frameRate int
	snapshots *SnapshotPool
}

// NewEngine builds the session and hooks it to the transport.
func NewEngine(opts Options, cfg EngineConfig) (*Engine, error) {
	def := DefaultEngineConfig()
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = def.FrameRate
	}
	if cfg.StepRate <= 0 {
		cfg.StepRate = def.StepRate
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = def.InboxSize
	}
	if cfg.Input == nil {
		cfg.Input = def.Input
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noMetrics{}
	}
	if cfg.Codec == nil {
		c, err := protocol.NewJSONCodec()
		if err != nil {
			return nil, err
		}
		cfg.Codec = c
	}

	e := &Engine{
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
		codec:     cfg.Codec,
		tr:        cfg.Transport,
		input:     cfg.Input,
		metrics:   cfg.Metrics,
		clock:     NewClock(cfg.StepRate),
		inbox:     make(chan any, cfg.InboxSize),
		frameRate: cfg.FrameRate,
		snapshots: NewSnapshotPool(),
	}
	s, err := NewSession(opts, e)
	if err != nil {
		return nil, err
	}
	e.session = s
	if e.tr != nil {
		e.tr.SetReceiver(e.receive)
	}
	return e, nil
}

// Start begins the frame loop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running || e.stopped {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	go e.loop()
	log.Info().Int("fps", e.frameRate).Dur("step", e.clock.Step()).Msg("🎮 engine started")
}

// Stop ends the frame loop and waits for it to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	wasRunning := e.running
	e.running = false
	close(e.stopChan)
	e.mu.Unlock()

	if wasRunning {
		<-e.done
	}
	log.Info().Msg("🛑 engine stopped")
}

func (e *Engine) loop() {
	defer close(e.done)

	ticker := time.NewTicker(time.Second / time.Duration(e.frameRate))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			e.Frame(now.Sub(last))
			last = now
		case <-e.stopChan:
			return
		}
	}
}

// Frame runs one render frame worth of simulation. It is called by the
// loop, or directly by tests that want to control time.
func (e *Engine) Frame(elapsed time.Duration) int {
	start := time.Now()
	steps := e.clock.Advance(elapsed)
	if steps == 0 {
		e.drain()
	}
	for i := 0; i < steps; i++ {
		e.drain()
		e.session.Step(e.input.Next(e.session))
	}

	snap := e.snapshots.AcquireWrite()
	e.session.Fill(snap)
	e.snapshots.PublishWrite()

	e.metrics.ObserveFrame(steps, time.Since(start))
	return steps
}

func (e *Engine) drain() {
	for {
		select {
		case item := <-e.inbox:
			e.apply(item)
		default:
			return
		}
	}
}

func (e *Engine) apply(item any) {
	switch v := item.(type) {
	case protocol.Message:
		v.Dispatch(e.session)
	case dropNotice:
		e.session.Drop(v.err)
	case command:
		v.done <- v.fn(e.session)
	}
}

func (e *Engine) enqueue(item any) bool {
	select {
	case <-e.stopChan:
		return false
	default:
	}
	select {
	case e.inbox <- item:
		return true
	case <-e.stopChan:
		return false
	}
}

// receive runs on the transport goroutine.
func (e *Engine) receive(frame []byte) {
	e.metrics.FrameReceived()
	m, err := e.codec.Decode(frame)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, protocol.ErrUnknownType) {
			reason = "unknown_type"
		}
		e.metrics.FrameDropped(reason)
		log.Debug().Err(err).Msg("inbound frame dropped")
		e.enqueue(dropNotice{err: err})
		return
	}
	e.enqueue(m)
}

// Send implements Sender for the session.
func (e *Engine) Send(m protocol.Message) {
	if e.tr == nil {
		return
	}
	frame, err := e.codec.Encode(m)
	if err != nil {
		log.Warn().Err(err).Str("type", string(m.Type())).Msg("encode failed")
		e.metrics.FrameDropped("encode")
		return
	}
	if err := e.tr.Send(frame); err != nil {
		log.Debug().Err(err).Str("type", string(m.Type())).Msg("send failed")
		e.metrics.FrameDropped("send")
		return
	}
	e.metrics.FrameSent()
}

// Do runs fn on the engine goroutine before the next step. The returned
// channel yields fn's result.
func (e *Engine) Do(fn func(*Session) error) <-chan error {
	done := make(chan error, 1)
	if !e.enqueue(command{fn: fn, done: done}) {
		done <- ErrEngineStopped
	}
	return done
}

// Play starts the match as role.
func (e *Engine) Play(role protocol.Role) <-chan error {
	return e.Do(func(s *Session) error { return s.Start(role) })
}

// Restart begins a new round once the current one has ended.
func (e *Engine) Restart() <-chan error {
	return e.Do(func(s *Session) error { return s.Restart() })
}

// Snapshot copies the latest published frame into dst.
func (e *Engine) Snapshot(dst *Snapshot) bool {
	return e.snapshots.Read(dst)
}

// World returns the scenery. It is replaced at most once, when the host's
// seed arrives; read it from the engine goroutine or after the match.
func (e *Engine) World() *World {
	return e.session.World()
}

// Session exposes the session for tests and single-goroutine drivers.
func (e *Engine) Session() *Session {
	return e.session
}
