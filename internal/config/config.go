// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for simulation, relay and peer settings.
//
// Values come from defaults, then environment variables (optionally seeded
// from a .env file), then an optional YAML tuning file for locomotion.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"bunny-chase/internal/game"
	"bunny-chase/internal/protocol"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig selects the locomotion variants and step cadence of a peer.
// Both peers of a match should agree on Movement, Boundary and Collision.
type SimConfig struct {
	Movement   game.MovementKind
	Boundary   game.BoundaryKind
	Collision  game.CollisionKind
	TickHz     int    // fixed simulation steps per second
	FrameHz    int    // driving loop frequency
	TuningFile string // optional YAML overlay on game.DefaultTuning
	Seed       int64  // scenery seed when hosting; 0 picks one
	Tuning     game.Tuning
}

// DefaultSim returns the reference configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		Movement:  game.MovementTank,
		Boundary:  game.BoundarySoft,
		Collision: game.CollisionCrash,
		TickHz:    game.DefaultStepRate,
		FrameHz:   60,
		Tuning:    game.DefaultTuning(),
	}
}

// SimFromEnv returns simulation configuration with environment overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if v := os.Getenv("MOVEMENT_MODEL"); v != "" {
		cfg.Movement = game.MovementKind(strings.ToLower(v))
	}
	if v := os.Getenv("BOUNDARY_POLICY"); v != "" {
		cfg.Boundary = game.BoundaryKind(strings.ToLower(v))
	}
	if v := os.Getenv("COLLISION_POLICY"); v != "" {
		cfg.Collision = game.CollisionKind(strings.ToLower(v))
	}
	if hz := getEnvInt("TICK_HZ", 0); hz > 0 {
		cfg.TickHz = hz
	}
	if hz := getEnvInt("FRAME_HZ", 0); hz > 0 {
		cfg.FrameHz = hz
	}
	cfg.TuningFile = os.Getenv("TUNING_FILE")
	cfg.Seed = int64(getEnvInt("WORLD_SEED", 0))

	return cfg
}

// Validate checks every selected variant exists.
func (c SimConfig) Validate() error {
	if _, err := game.NewMovementModel(c.Movement); err != nil {
		return err
	}
	if _, err := game.NewBoundaryPolicy(c.Boundary); err != nil {
		return err
	}
	if _, err := game.NewObstaclePolicy(c.Collision); err != nil {
		return err
	}
	if c.TickHz <= 0 || c.FrameHz <= 0 {
		return fmt.Errorf("config: tick and frame rates must be positive (tick=%d frame=%d)", c.TickHz, c.FrameHz)
	}
	return nil
}

// Options converts the configuration into session options.
func (c SimConfig) Options() game.Options {
	opts := game.DefaultOptions()
	opts.Movement = c.Movement
	opts.Boundary = c.Boundary
	opts.Collision = c.Collision
	opts.Tuning = c.Tuning
	opts.Seed = c.Seed
	return opts
}

// LoadTuning reads a YAML file over the default tuning. Keys missing from
// the file keep their defaults.
func LoadTuning(path string) (game.Tuning, error) {
	t := game.DefaultTuning()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tuning %s: %w", path, err)
	}
	if t.Friction <= 0 || t.Friction > 1 {
		return t, fmt.Errorf("tuning %s: friction %v outside (0,1]", path, t.Friction)
	}
	if t.BaseMaxSpeed <= 0 {
		return t, fmt.Errorf("tuning %s: base_max_speed must be positive", path)
	}
	if t.Interpolation <= 0 || t.Interpolation > 1 {
		return t, fmt.Errorf("tuning %s: interpolation %v outside (0,1]", path, t.Interpolation)
	}
	return t, nil
}

// =============================================================================
// RELAY CONFIGURATION
// =============================================================================

// RelayConfig holds relay server settings.
type RelayConfig struct {
	Port              int
	MaxRooms          int
	MaxConnections    int
	MaxConnsPerIP     int
	RoomTTL           time.Duration
	FramesPerSecond   float64 // per-connection inbound frame rate
	FrameBurst        int
	RequestsPerSecond float64 // per-IP HTTP rate
	RequestBurst      int
	CORSOrigins       []string // nil keeps the router's localhost defaults
}

// DefaultRelay returns the default relay configuration.
func DefaultRelay() RelayConfig {
	return RelayConfig{
		Port:              3000,
		MaxRooms:          1000,
		MaxConnections:    2000,
		MaxConnsPerIP:     10,
		RoomTTL:           10 * time.Minute,
		FramesPerSecond:   120,
		FrameBurst:        240,
		RequestsPerSecond: 5,
		RequestBurst:      10,
	}
}

// RelayFromEnv returns relay configuration with environment overrides.
func RelayFromEnv() RelayConfig {
	cfg := DefaultRelay()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if n := getEnvInt("MAX_ROOMS", 0); n > 0 {
		cfg.MaxRooms = n
	}
	if n := getEnvInt("MAX_CONNECTIONS", 0); n > 0 {
		cfg.MaxConnections = n
	}
	if n := getEnvInt("MAX_CONNS_PER_IP", 0); n > 0 {
		cfg.MaxConnsPerIP = n
	}
	if d := getEnvDuration("ROOM_TTL", 0); d > 0 {
		cfg.RoomTTL = d
	}
	if f := getEnvFloat("FRAME_RATE_LIMIT", 0); f > 0 {
		cfg.FramesPerSecond = f
	}
	if n := getEnvInt("FRAME_BURST", 0); n > 0 {
		cfg.FrameBurst = n
	}
	if f := getEnvFloat("HTTP_RATE_LIMIT", 0); f > 0 {
		cfg.RequestsPerSecond = f
	}
	if n := getEnvInt("HTTP_BURST", 0); n > 0 {
		cfg.RequestBurst = n
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	return cfg
}

// Addr returns the listen address.
func (c RelayConfig) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// =============================================================================
// PEER CONFIGURATION
// =============================================================================

// PeerConfig holds the settings of a playing client.
type PeerConfig struct {
	RelayURL  string // http(s) base URL of the relay
	Codec     string // "json" or "cbor"; both peers must match
	InboxSize int
}

// DefaultPeer returns the default peer configuration.
func DefaultPeer() PeerConfig {
	return PeerConfig{
		RelayURL:  "http://localhost:3000",
		Codec:     "json",
		InboxSize: 1024,
	}
}

// PeerFromEnv returns peer configuration with environment overrides.
func PeerFromEnv() PeerConfig {
	cfg := DefaultPeer()

	if v := os.Getenv("RELAY_URL"); v != "" {
		cfg.RelayURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("WIRE_CODEC"); v != "" {
		cfg.Codec = strings.ToLower(v)
	}
	if n := getEnvInt("INBOX_SIZE", 0); n > 0 {
		cfg.InboxSize = n
	}

	return cfg
}

// WebSocketURL returns the socket URL for joining room as role.
func (c PeerConfig) WebSocketURL(room string, role protocol.Role) string {
	base := c.RelayURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return fmt.Sprintf("%s/ws?room=%s&role=%s", strings.TrimRight(base, "/"), room, role)
}

// =============================================================================
// DEBUG SERVER CONFIGURATION
// =============================================================================

// DebugConfig holds the pprof/metrics server settings.
type DebugConfig struct {
	Enabled bool
	Addr    string // forced onto loopback unless ALLOW_DEBUG_EXTERNAL=true
	User    string
	Pass    string
}

// DefaultDebug returns the default debug server configuration.
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Enabled: true,
		Addr:    "127.0.0.1:6060",
	}
}

// DebugFromEnv returns debug configuration with environment overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()

	if os.Getenv("DEBUG_SERVER") == "false" {
		cfg.Enabled = false
	}
	if v := os.Getenv("DEBUG_ADDR"); v != "" {
		cfg.Addr = v
	}
	cfg.User = os.Getenv("DEBUG_USER")
	cfg.Pass = os.Getenv("DEBUG_PASS")

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim   SimConfig
	Relay RelayConfig
	Peer  PeerConfig
	Debug DebugConfig
}

// Load returns the complete configuration with environment overrides and
// the tuning file applied.
func Load() (AppConfig, error) {
	cfg := AppConfig{
		Sim:   SimFromEnv(),
		Relay: RelayFromEnv(),
		Peer:  PeerFromEnv(),
		Debug: DebugFromEnv(),
	}
	if cfg.Sim.TuningFile != "" {
		t, err := LoadTuning(cfg.Sim.TuningFile)
		if err != nil {
			return cfg, err
		}
		cfg.Sim.Tuning = t
	}
	if err := cfg.Sim.Validate(); err != nil {
		return cfg, err
	}
	if _, err := protocol.NewCodec(cfg.Peer.Codec); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDotEnv loads the first .env file found among paths. Variables already
// set in the environment win. It reports the file used, or "" for none.
func LoadDotEnv(paths ...string) string {
	if len(paths) == 0 {
		paths = []string{".env", "../.env"}
	}
	for _, p := range paths {
		err := godotenv.Load(p)
		if err == nil {
			return p
		}
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", p).Msg("⚠️ Could not read env file")
		}
	}
	return ""
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
