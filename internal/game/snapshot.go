package game

import (
	"sync"
	"sync/atomic"
	"time"

	"bunny-chase/internal/protocol"
)

// AgentSnapshot is a value copy of one agent for display.
type AgentSnapshot struct {
	Role    protocol.Role
	Local   bool
	X, Y, Z float64
	Yaw     float64
	VX, VZ  float64
	Stamina float64
	Radius  float64
}

// CollectibleSnapshot is a value copy of one collectible.
type CollectibleSnapshot struct {
	Index     int
	X, Y, Z   float64
	Collected bool
}

// Snapshot is everything a presenter needs for one frame. Slices are
// pre-allocated and reused; copy before keeping them.
type Snapshot struct {
	Sequence  uint64
	Timestamp time.Time
	Tick      uint64

	Phase  Phase
	Role   protocol.Role
	Winner protocol.Role
	Round  int

	Agents       [2]AgentSnapshot
	Collectibles []CollectibleSnapshot
	Collected    int

	Danger     float64
	Speed      float64
	MovingFast bool
	Sprinting  bool
	Seed       int64
}

// Fill copies the session's current state into dst.
func (s *Session) Fill(dst *Snapshot) {
	dst.Tick = s.tick
	dst.Phase = s.phase
	dst.Role = s.role
	dst.Winner = s.winner
	dst.Round = s.round
	for i, a := range s.agents {
		dst.Agents[i] = AgentSnapshot{
			Role:    a.Role,
			Local:   a.Local,
			X:       a.X,
			Y:       a.Y,
			Z:       a.Z,
			Yaw:     a.Yaw,
			VX:      a.VX,
			VZ:      a.VZ,
			Stamina: a.Stamina,
			Radius:  a.Radius,
		}
	}
	dst.Collectibles = dst.Collectibles[:0]
	for _, c := range s.carrots.items {
		dst.Collectibles = append(dst.Collectibles, CollectibleSnapshot{
			Index:     c.Index,
			X:         c.X,
			Y:         c.Y,
			Z:         c.Z,
			Collected: c.Collected,
		})
	}
	dst.Collected = s.carrots.CollectedCount()
	dst.Danger = s.Danger()
	dst.Speed = s.last.Speed
	dst.MovingFast = s.last.MovingFast
	dst.Sprinting = s.last.Sprinting
	dst.Seed = s.world.Seed
}

// Agent returns the snapshot of role r.
func (s *Snapshot) Agent(r protocol.Role) AgentSnapshot {
	return s.Agents[slot(r)]
}

// SnapshotPool hands frames from the simulation goroutine to readers on
// other goroutines. The writer fills a private buffer and publishes it;
// readers copy the latest published frame into their own buffer, so no
// slice is ever shared across goroutines.
type SnapshotPool struct {
	write     Snapshot
	mu        sync.RWMutex
	published Snapshot
	sequence  atomic.Uint64
}

// NewSnapshotPool creates a pool with pre-allocated slices.
func NewSnapshotPool() *SnapshotPool {
	return &SnapshotPool{
		write:     Snapshot{Collectibles: make([]CollectibleSnapshot, 0, CollectibleCount)},
		published: Snapshot{Collectibles: make([]CollectibleSnapshot, 0, CollectibleCount)},
	}
}

// AcquireWrite returns the writer's buffer. Simulation goroutine only.
func (p *SnapshotPool) AcquireWrite() *Snapshot {
	snap := &p.write
	snap.Collectibles = snap.Collectibles[:0]
	snap.Sequence = p.sequence.Add(1)
	snap.Timestamp = time.Now()
	return snap
}

// PublishWrite makes the writer's buffer the latest frame.
func (p *SnapshotPool) PublishWrite() {
	p.mu.Lock()
	copySnapshot(&p.published, &p.write)
	p.mu.Unlock()
}

// Read copies the latest frame into dst. It reports false before the
// first publish.
func (p *SnapshotPool) Read(dst *Snapshot) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.published.Sequence == 0 {
		return false
	}
	copySnapshot(dst, &p.published)
	return true
}

func copySnapshot(dst, src *Snapshot) {
	items := append(dst.Collectibles[:0], src.Collectibles...)
	*dst = *src
	dst.Collectibles = items
}
