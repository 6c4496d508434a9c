package game

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"bunny-chase/internal/protocol"
)

// Phase is the match lifecycle state.
type Phase uint8

const (
	PhaseLobby Phase = iota
	PhaseActive
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyStarted = errors.New("game: session already started")
	ErrNotEnded       = errors.New("game: round has not ended")
	ErrInvalidRole    = errors.New("game: invalid role")
)

// Sender delivers outbound messages. Delivery is fire-and-forget.
type Sender interface {
	Send(m protocol.Message)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(m protocol.Message)

func (f SenderFunc) Send(m protocol.Message) { f(m) }

// Session is one peer's view of a match. It owns both agents, the
// collectible set and the phase, and is driven by Step plus the
// protocol.Handler methods. It is not safe for concurrent use; Engine
// serializes all calls onto one goroutine.
type Session struct {
	opts    Options
	out     Sender
	journal *Journal

	phase  Phase
	role   protocol.Role
	winner protocol.Role
	round  int
	tick   uint64

	world   *World
	loco    *Locomotion
	interp  Interpolator
	agents  [2]*Agent
	targets [2]RemoteTarget
	carrots Collectibles
	chaser  *Chaser
	last    StepResult
}

var _ protocol.Handler = (*Session)(nil)

func slot(r protocol.Role) int {
	if r == protocol.RoleBobcat {
		return 1
	}
	return 0
}

// NewSession creates a session in the Lobby phase. out may be nil.
func NewSession(opts Options, out Sender) (*Session, error) {
	opts = opts.withDefaults()

	world := opts.World
	if world == nil {
		world = NewWorld(opts.Seed)
	}
	loco, err := NewLocomotion(world, opts)
	if err != nil {
		return nil, err
	}

	s := &Session{
		opts:    opts,
		out:     out,
		journal: opts.Journal,
		world:   world,
		loco:    loco,
		interp:  Interpolator{Factor: opts.Tuning.Interpolation},
	}
	for _, r := range []protocol.Role{protocol.RoleBunny, protocol.RoleBobcat} {
		s.agents[slot(r)] = NewAgent(r)
		s.targets[slot(r)] = SpawnTarget(r)
	}
	if opts.Solo {
		s.chaser = NewChaser()
	}
	return s, nil
}

// SetSender replaces the outbound sink.
func (s *Session) SetSender(out Sender) { s.out = out }

func (s *Session) send(m protocol.Message) {
	if s.out != nil {
		s.out.Send(m)
	}
}

// Start moves the session from Lobby to Active playing role. The Bunny
// peer hosts: it announces the scenery seed and the collectible layout.
func (s *Session) Start(role protocol.Role) error {
	if s.phase != PhaseLobby {
		return ErrAlreadyStarted
	}
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if s.opts.Solo && role != protocol.RoleBunny {
		return fmt.Errorf("%w: solo play is always the bunny", ErrInvalidRole)
	}

	s.role = role
	local := s.agent(role)
	local.Local = true
	local.Respawn()
	s.phase = PhaseActive
	s.round = 1

	s.journal.Record(EventTypeRoundStart, s.tick, role, RoundStartPayload{
		Round:    s.round,
		Movement: string(s.loco.Movement()),
		Seed:     s.world.Seed,
	})
	log.Info().Str("role", string(role)).Int64("seed", s.world.Seed).Msg("🏁 round started")

	if role == protocol.RoleBunny {
		s.send(protocol.SceneryInit{Seed: s.world.Seed})
		s.spawnLayout()
	}
	return nil
}

// Restart begins a new round after the current one ended.
func (s *Session) Restart() error {
	if s.phase != PhaseEnded {
		return ErrNotEnded
	}
	s.reset(false)
	return nil
}

// Step advances the session by one fixed tick with the local input.
func (s *Session) Step(in Input) StepResult {
	s.tick++
	var res StepResult

	if s.phase == PhaseActive {
		local := s.agent(s.role)
		res = s.loco.Step(local, in)
		s.send(protocol.Pos{Role: s.role, Data: local.State()})

		if s.chaser != nil {
			s.chaser.Step(s.tick, local, &s.targets[slot(protocol.RoleBobcat)])
		}

		s.checkCollection()
		if s.phase == PhaseActive {
			s.checkCatch()
		}
	}

	for i, a := range s.agents {
		if !a.Local {
			s.interp.Step(a, s.targets[i])
		}
	}

	s.last = res
	return res
}

func (s *Session) checkCollection() {
	if s.role != protocol.RoleBunny {
		return
	}
	b := s.agent(protocol.RoleBunny)
	for {
		i, ok := s.carrots.InReach(b.X, b.Z, CollectRadius)
		if !ok {
			break
		}
		s.carrots.TryCollect(i)
		s.send(protocol.CarrotCollected{Index: i})
		s.recordCollect(i, false)
	}
	if s.carrots.Complete() {
		s.end(protocol.RoleBunny, false)
	}
}

func (s *Session) checkCatch() {
	bunny, bobcat := s.agent(protocol.RoleBunny), s.agent(protocol.RoleBobcat)
	if bunny.DistanceTo(bobcat) < CatchRadius {
		s.end(protocol.RoleBobcat, false)
	}
}

func (s *Session) end(winner protocol.Role, remote bool) {
	s.phase = PhaseEnded
	s.winner = winner
	s.journal.Record(EventTypeRoundEnd, s.tick, s.role, RoundEndPayload{
		Round:     s.round,
		Winner:    winner,
		Collected: s.carrots.CollectedCount(),
		Remote:    remote,
	})
	log.Info().Str("winner", string(winner)).Bool("remote", remote).Int("round", s.round).Msg("🏆 round over")
	if !remote {
		s.send(protocol.GameOver{Winner: winner})
	}
}

func (s *Session) reset(remote bool) {
	s.round++
	s.phase = PhaseActive
	s.winner = protocol.RoleNone
	for i, a := range s.agents {
		a.Respawn()
		s.targets[i] = SpawnTarget(a.Role)
	}
	s.carrots.Clear()
	s.last = StepResult{}

	s.journal.Record(EventTypeRestart, s.tick, s.role, RoundStartPayload{
		Round:    s.round,
		Movement: string(s.loco.Movement()),
		Seed:     s.world.Seed,
	})
	log.Info().Int("round", s.round).Bool("remote", remote).Msg("🔄 round restarted")

	if !remote {
		s.send(protocol.GameRestart{})
	}
	if s.role == protocol.RoleBunny {
		s.spawnLayout()
	}
}

func (s *Session) spawnLayout() {
	pts := s.carrots.Spawn(s.opts.Rand, s.world.Radius)
	s.journal.Record(EventTypeLayout, s.tick, s.role, pts)
	s.send(protocol.CarrotInit{Data: pts})
}

func (s *Session) recordCollect(i int, remote bool) {
	it := s.carrots.items[i]
	s.journal.Record(EventTypeCollect, s.tick, s.role, CollectPayload{
		Index:     i,
		Collected: s.carrots.CollectedCount(),
		X:         it.X,
		Z:         it.Z,
		Remote:    remote,
	})
}

// ============================================================================
// Inbound messages
// ============================================================================

// HandlePos retargets the remote agent. States claiming the local role are
// ignored.
func (s *Session) HandlePos(m protocol.Pos) {
	if s.opts.Solo || m.Role == s.role {
		return
	}
	s.targets[slot(m.Role)] = TargetFrom(m.Data)
}

// HandleCarrotInit replaces the collectible layout. The Bunny generates
// layouts itself and ignores any it receives.
func (s *Session) HandleCarrotInit(m protocol.CarrotInit) {
	if s.role == protocol.RoleBunny {
		return
	}
	if err := s.carrots.ReceiveLayout(m.Data); err != nil {
		log.Warn().Err(err).Msg("layout rejected")
		return
	}
	s.journal.Record(EventTypeLayout, s.tick, s.role, m.Data)
}

// HandleCarrotCollected marks a collectible collected. Unknown or repeated
// indices are no-ops.
func (s *Session) HandleCarrotCollected(m protocol.CarrotCollected) {
	if s.carrots.TryCollect(m.Index) {
		s.recordCollect(m.Index, true)
	}
}

// HandleGameOver ends an active round with the announced winner. If the
// round already ended locally with a different winner the two peers
// detected different outcomes on the same tick; the Bobcat adopts the
// Bunny's result so both converge.
func (s *Session) HandleGameOver(m protocol.GameOver) {
	switch s.phase {
	case PhaseActive:
		s.end(m.Winner, true)
	case PhaseEnded:
		if m.Winner != s.winner && s.role == protocol.RoleBobcat {
			log.Info().Str("local", string(s.winner)).Str("remote", string(m.Winner)).Msg("adopting remote outcome")
			s.winner = m.Winner
		}
	}
}

// HandleGameRestart resets to a fresh round. Ignored in Lobby.
func (s *Session) HandleGameRestart(protocol.GameRestart) {
	if s.phase == PhaseLobby {
		return
	}
	s.reset(true)
}

// HandleSceneryInit rebuilds the scenery from the host's seed.
func (s *Session) HandleSceneryInit(m protocol.SceneryInit) {
	if s.role == protocol.RoleBunny || s.opts.World != nil || m.Seed == s.world.Seed {
		return
	}
	s.world = NewWorld(m.Seed)
	s.loco.SetWorld(s.world)
	s.journal.Record(EventTypeScenery, s.tick, s.role, SeedPayload{Seed: m.Seed})
	st := s.world.GridStats()
	log.Debug().
		Int64("seed", m.Seed).
		Int("occupied_cells", st.NonEmptyCells).
		Int("busiest_cell", st.MaxInCell).
		Msg("scenery rebuilt")
}

// Drop records an inbound frame that could not be decoded.
func (s *Session) Drop(err error) {
	s.journal.Record(EventTypeDropped, s.tick, s.role, DroppedPayload{Reason: err.Error()})
}

// ============================================================================
// Accessors
// ============================================================================

func (s *Session) agent(r protocol.Role) *Agent { return s.agents[slot(r)] }

// Agent returns the agent playing r.
func (s *Session) Agent(r protocol.Role) *Agent { return s.agent(r) }

// Target returns the last received state for r.
func (s *Session) Target(r protocol.Role) RemoteTarget { return s.targets[slot(r)] }

func (s *Session) Phase() Phase                { return s.phase }
func (s *Session) Role() protocol.Role         { return s.role }
func (s *Session) Winner() protocol.Role       { return s.winner }
func (s *Session) Round() int                  { return s.round }
func (s *Session) Tick() uint64                { return s.tick }
func (s *Session) World() *World               { return s.world }
func (s *Session) Collectibles() *Collectibles { return &s.carrots }
func (s *Session) LastStep() StepResult        { return s.last }
func (s *Session) Movement() MovementKind      { return s.loco.Movement() }
func (s *Session) Tuning() Tuning              { return s.loco.Tuning() }
func (s *Session) Solo() bool                  { return s.opts.Solo }

// Danger is the proximity warning level in [0, 0.6]. It rises as the
// agents close within 45 units and is zero outside an active round.
func (s *Session) Danger() float64 {
	if s.phase != PhaseActive {
		return 0
	}
	d := s.agent(protocol.RoleBunny).DistanceTo(s.agent(protocol.RoleBobcat))
	return math.Max(0, math.Min(0.6, 1-(d-5)/40))
}
