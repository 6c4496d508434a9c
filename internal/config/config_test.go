package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bunny-chase/internal/game"
	"bunny-chase/internal/protocol"
)

// TestDefaults verifies Load without overrides yields the reference setup.
func TestDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, game.MovementTank, cfg.Sim.Movement)
	assert.Equal(t, game.BoundarySoft, cfg.Sim.Boundary)
	assert.Equal(t, game.CollisionCrash, cfg.Sim.Collision)
	assert.Equal(t, 60, cfg.Sim.TickHz)
	assert.Equal(t, game.DefaultTuning(), cfg.Sim.Tuning)
	assert.Equal(t, ":3000", cfg.Relay.Addr())
	assert.Equal(t, "json", cfg.Peer.Codec)
	assert.Equal(t, "127.0.0.1:6060", cfg.Debug.Addr)
}

// TestEnvOverrides verifies each documented variable is honoured.
func TestEnvOverrides(t *testing.T) {
	t.Setenv("MOVEMENT_MODEL", "Direct")
	t.Setenv("BOUNDARY_POLICY", "reflect")
	t.Setenv("COLLISION_POLICY", "slide")
	t.Setenv("TICK_HZ", "120")
	t.Setenv("WORLD_SEED", "42")
	t.Setenv("PORT", "8081")
	t.Setenv("MAX_ROOMS", "3")
	t.Setenv("ROOM_TTL", "90s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("WIRE_CODEC", "CBOR")
	t.Setenv("RELAY_URL", "https://relay.example/")
	t.Setenv("DEBUG_SERVER", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, game.MovementDirect, cfg.Sim.Movement)
	assert.Equal(t, game.BoundaryReflect, cfg.Sim.Boundary)
	assert.Equal(t, game.CollisionSlide, cfg.Sim.Collision)
	assert.Equal(t, 120, cfg.Sim.TickHz)
	assert.Equal(t, int64(42), cfg.Sim.Seed)
	assert.Equal(t, 8081, cfg.Relay.Port)
	assert.Equal(t, 3, cfg.Relay.MaxRooms)
	assert.Equal(t, 90*time.Second, cfg.Relay.RoomTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Relay.CORSOrigins)
	assert.Equal(t, "cbor", cfg.Peer.Codec)
	assert.Equal(t, "https://relay.example", cfg.Peer.RelayURL)
	assert.False(t, cfg.Debug.Enabled)

	opts := cfg.Sim.Options()
	assert.Equal(t, game.MovementDirect, opts.Movement)
	assert.Equal(t, int64(42), opts.Seed)
}

// TestInvalidSelections verifies unknown variants fail at load time.
func TestInvalidSelections(t *testing.T) {
	for key, val := range map[string]string{
		"MOVEMENT_MODEL":   "hover",
		"BOUNDARY_POLICY":  "wrap",
		"COLLISION_POLICY": "bounce",
		"WIRE_CODEC":       "xml",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

// TestLoadTuning verifies a partial YAML file overlays the defaults.
func TestLoadTuning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_max_speed: 2.0\nfriction: 0.9\n"), 0o644))

	tun, err := LoadTuning(path)
	require.NoError(t, err)
	assert.Equal(t, 2.0, tun.BaseMaxSpeed)
	assert.Equal(t, 0.9, tun.Friction)
	assert.Equal(t, game.DefaultTuning().Acceleration, tun.Acceleration)

	t.Setenv("TUNING_FILE", path)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.Sim.Tuning.BaseMaxSpeed)
}

func TestLoadTuningRejects(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"syntax":        "friction: [",
		"friction":      "friction: 1.5",
		"speed":         "base_max_speed: 0",
		"interpolation": "interpolation: 0",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := LoadTuning(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadTuning(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// TestLoadDotEnv verifies .env values apply without clobbering the
// real environment.
func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("BUNNY_TEST_A=from-file\nBUNNY_TEST_B=from-file\n"), 0o644))
	t.Setenv("BUNNY_TEST_B", "from-env")
	t.Cleanup(func() { os.Unsetenv("BUNNY_TEST_A") })

	assert.Equal(t, path, LoadDotEnv(filepath.Join(dir, "nope.env"), path))
	assert.Equal(t, "from-file", os.Getenv("BUNNY_TEST_A"))
	assert.Equal(t, "from-env", os.Getenv("BUNNY_TEST_B"))

	assert.Equal(t, "", LoadDotEnv(filepath.Join(dir, "nope.env")))
}

func TestWebSocketURL(t *testing.T) {
	p := PeerConfig{RelayURL: "http://localhost:3000"}
	assert.Equal(t, "ws://localhost:3000/ws?room=ABCD&role=bunny", p.WebSocketURL("ABCD", protocol.RoleBunny))

	p.RelayURL = "https://relay.example/"
	assert.Equal(t, "wss://relay.example/ws?room=WXYZ&role=bobcat", p.WebSocketURL("WXYZ", protocol.RoleBobcat))
}
