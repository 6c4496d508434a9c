package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bunny-chase/internal/config"
	"bunny-chase/internal/game"
	"bunny-chase/internal/observability"
	"bunny-chase/internal/protocol"
	"bunny-chase/internal/relay"
	"bunny-chase/internal/transport"
)

func setupRelay(t *testing.T) *httptest.Server {
	t.Helper()
	hub := relay.NewHub(relay.DefaultHubConfig())
	srv := httptest.NewServer(relay.NewRouter(relay.RouterConfig{
		Hub:             hub,
		RateLimitConfig: &relay.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		DisableLogging:  true,
	}))
	t.Cleanup(func() {
		srv.Close()
		hub.Close()
	})
	return srv
}

func testApp(relayURL, codec string) config.AppConfig {
	app := config.AppConfig{
		Sim:  config.DefaultSim(),
		Peer: config.DefaultPeer(),
	}
	app.Sim.Seed = 99
	app.Peer.RelayURL = relayURL
	app.Peer.Codec = codec
	return app
}

// TestCreateRoom verifies the host obtains a usable code from the relay.
func TestCreateRoom(t *testing.T) {
	srv := setupRelay(t)
	code, err := createRoom(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.True(t, relay.ValidCode(code))

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"nope"}`, http.StatusServiceUnavailable)
	}))
	defer bad.Close()
	_, err = createRoom(context.Background(), bad.Client(), bad.URL)
	assert.Error(t, err)
}

// TestHostAndJoinThroughRelay plays two peers against each other through a
// real relay for a short while and checks they share scenery and layout.
func TestHostAndJoinThroughRelay(t *testing.T) {
	for _, codec := range []string{"json", "cbor"} {
		t.Run(codec, func(t *testing.T) {
			srv := setupRelay(t)
			app := testApp(srv.URL, codec)
			dir := t.TempDir()

			code, err := createRoom(context.Background(), srv.Client(), srv.URL)
			require.NoError(t, err)

			dial := func(role protocol.Role) transport.Transport {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				ws, err := transport.Dial(ctx, app.Peer.WebSocketURL(code, role), nil)
				require.NoError(t, err)
				t.Cleanup(func() { ws.Close() })
				return ws
			}
			hostTr := dial(protocol.RoleBunny)
			guestTr := dial(protocol.RoleBobcat)

			host := &Match{App: app, Role: protocol.RoleBunny, Timeout: 1500 * time.Millisecond,
				MapPath: filepath.Join(dir, "host.png"), MapSize: 128, JournalPath: filepath.Join(dir, "host.jsonl")}
			guest := &Match{App: app, Role: protocol.RoleBobcat, Timeout: 1500 * time.Millisecond}

			var wg sync.WaitGroup
			var hostRes, guestRes Result
			var hostErr, guestErr error
			wg.Add(2)
			go func() { defer wg.Done(); hostRes, hostErr = host.Run(context.Background(), hostTr) }()
			go func() { defer wg.Done(); guestRes, guestErr = guest.Run(context.Background(), guestTr) }()
			wg.Wait()

			for _, err := range []error{hostErr, guestErr} {
				if err != nil {
					assert.ErrorIs(t, err, context.DeadlineExceeded)
				}
			}
			hf, gf := hostRes.Final, guestRes.Final
			assert.NotEqual(t, game.PhaseLobby, hf.Phase)
			assert.NotEqual(t, game.PhaseLobby, gf.Phase)
			assert.Equal(t, hf.Seed, gf.Seed)
			require.Len(t, gf.Collectibles, game.CollectibleCount)
			require.Len(t, hf.Collectibles, game.CollectibleCount)
			for i := range hf.Collectibles {
				assert.Equal(t, hf.Collectibles[i].X, gf.Collectibles[i].X)
				assert.Equal(t, hf.Collectibles[i].Z, gf.Collectibles[i].Z)
			}

			_, err = os.Stat(host.MapPath)
			assert.NoError(t, err)
			info, err := os.Stat(host.JournalPath)
			require.NoError(t, err)
			assert.Greater(t, info.Size(), int64(0))
		})
	}
}

// TestSoloMatchStopsAtTimeout verifies solo play needs no relay.
func TestSoloMatchStopsAtTimeout(t *testing.T) {
	m := &Match{App: testApp("", "json"), Role: protocol.RoleBunny, Solo: true, Timeout: 300 * time.Millisecond}
	res, err := m.Run(context.Background(), nil)
	if err != nil {
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
	assert.Equal(t, game.PhaseActive, res.Final.Phase)
	assert.Greater(t, res.Final.Tick, uint64(0))
}

// TestStopDebugServer verifies the metrics server started with --metrics is
// shut down on exit.
func TestStopDebugServer(t *testing.T) {
	stopDebugServer(nil)

	srv := observability.StartDebugServer(observability.DebugConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:0",
	})
	require.NotNil(t, srv)
	stopDebugServer(srv)
	assert.ErrorIs(t, srv.ListenAndServe(), http.ErrServerClosed)
}
