package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"bunny-chase/internal/config"
	"bunny-chase/internal/game"
	"bunny-chase/internal/observability"
	"bunny-chase/internal/protocol"
	"bunny-chase/internal/render"
	"bunny-chase/internal/transport"
)

// ErrPeerLeft is returned when the relay drops the partner mid-match.
var ErrPeerLeft = errors.New("peer left the match")

const (
	pollInterval = 50 * time.Millisecond
	restartPause = 2 * time.Second
)

// Match plays rounds of one session to completion.
type Match struct {
	App     config.AppConfig
	Role    protocol.Role
	Solo    bool
	Rounds  int
	Timeout time.Duration

	MapPath     string
	MapSize     int
	JournalPath string

	// RestartPause is how long the host shows a result before restarting.
	RestartPause time.Duration
}

// Result summarizes a finished match.
type Result struct {
	Winners []protocol.Role
	Final   game.Snapshot
}

// createRoom asks the relay for a fresh room code.
func createRoom(ctx context.Context, client *http.Client, relayURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(relayURL, "/")+"/api/rooms", nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return "", fmt.Errorf("create room: relay answered %d %s", resp.StatusCode, body.Error)
	}
	var room struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	return room.Code, nil
}

func (m *Match) input() game.InputSource {
	if m.Role == protocol.RoleBobcat {
		return game.NewPursuer()
	}
	return game.NewForager()
}

// Run plays over tr, or locally against the chaser when tr is nil.
func (m *Match) Run(ctx context.Context, tr transport.Transport) (Result, error) {
	var res Result
	if m.Rounds <= 0 {
		m.Rounds = 1
	}
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	if m.RestartPause == 0 {
		m.RestartPause = restartPause
	}

	codec, err := protocol.NewCodec(m.App.Peer.Codec)
	if err != nil {
		return res, err
	}

	var journal *game.Journal
	if m.JournalPath != "" {
		journal = game.NewJournal()
		if err := journal.Start(m.JournalPath); err != nil {
			return res, fmt.Errorf("journal: %w", err)
		}
		defer journal.Stop()
	}

	opts := m.App.Sim.Options()
	opts.Solo = m.Solo
	opts.Journal = journal

	ecfg := game.DefaultEngineConfig()
	ecfg.FrameRate = m.App.Sim.FrameHz
	ecfg.StepRate = m.App.Sim.TickHz
	ecfg.InboxSize = m.App.Peer.InboxSize
	ecfg.Codec = codec
	ecfg.Input = m.input()
	ecfg.Metrics = observability.PeerMetrics{}
	if tr != nil {
		ecfg.Transport = tr
	}

	engine, err := game.NewEngine(opts, ecfg)
	if err != nil {
		return res, err
	}
	engine.Start()
	defer engine.Stop()

	var done <-chan struct{}
	if tr != nil {
		log.Info().Str("role", string(m.Role)).Msg("⏳ waiting for partner")
		select {
		case <-tr.Paired():
		case <-tr.Done():
			return res, ErrPeerLeft
		case <-ctx.Done():
			return res, ctx.Err()
		}
		done = tr.Done()
	}

	if err := <-engine.Play(m.Role); err != nil {
		return res, err
	}

	res.Winners, err = m.watch(ctx, engine, done)
	engine.Stop()
	engine.Snapshot(&res.Final)

	if m.MapPath != "" {
		mm := render.NewMinimap(m.MapSize)
		if merr := mm.SavePNG(m.MapPath, &res.Final, engine.World()); merr != nil {
			log.Warn().Err(merr).Msg("⚠️ minimap not written")
		} else {
			log.Info().Str("path", m.MapPath).Msg("🗺️ minimap written")
		}
	}
	return res, err
}

// watch polls snapshots until the requested number of rounds has ended.
// Only the host (or a solo player) restarts; the guest follows.
func (m *Match) watch(ctx context.Context, engine *game.Engine, peerDone <-chan struct{}) ([]protocol.Role, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var (
		winners   []protocol.Role
		seenRound int
		endedAt   time.Time
		snap      game.Snapshot
	)
	for {
		select {
		case <-ctx.Done():
			return winners, ctx.Err()
		case <-peerDone:
			return winners, ErrPeerLeft
		case <-ticker.C:
		}

		if !engine.Snapshot(&snap) || snap.Phase != game.PhaseEnded {
			continue
		}
		if snap.Round != seenRound {
			seenRound = snap.Round
			endedAt = time.Now()
			winners = append(winners, snap.Winner)
			log.Info().Int("round", snap.Round).Str("winner", string(snap.Winner)).
				Int("carrots", snap.Collected).Msg("🏆 round result")
			if len(winners) >= m.Rounds {
				return winners, nil
			}
		}
		if (m.Role == protocol.RoleBunny || m.Solo) && time.Since(endedAt) >= m.RestartPause {
			if err := <-engine.Restart(); err != nil && !errors.Is(err, game.ErrNotEnded) {
				return winners, err
			}
		}
	}
}
