// Command peer plays bunny-chase headless: it hosts or joins a room on a
// relay, or plays solo against the local chaser, steering with an autopilot.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"bunny-chase/internal/config"
	"bunny-chase/internal/observability"
	"bunny-chase/internal/protocol"
	"bunny-chase/internal/relay"
	"bunny-chase/internal/transport"
)

var CLI struct {
	Debug   bool          `help:"Enable debug logging."`
	Relay   string        `help:"Relay base URL (defaults to RELAY_URL)." placeholder:"URL"`
	Codec   string        `help:"Wire codec, json or cbor (defaults to WIRE_CODEC)."`
	Map     string        `help:"Write a minimap PNG here when the match ends." type:"path"`
	MapSize int           `help:"Minimap size in pixels." default:"512"`
	Journal string        `help:"Append match events to this JSONL file." type:"path"`
	Rounds  int           `help:"Rounds to play before exiting." default:"1"`
	Timeout time.Duration `help:"Give up after this long." default:"10m"`
	Metrics bool          `help:"Serve pprof and metrics on the debug address."`

	Host struct{} `cmd:"" help:"Create a room and play the bunny."`

	Join struct {
		Code string `arg:"" help:"Room code from the host."`
	} `cmd:"" help:"Join a room and play the bobcat."`

	Solo struct{} `cmd:"" help:"Play the bunny against the local chaser."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	kctx := kong.Parse(&CLI,
		kong.Name("peer"),
		kong.Description("a headless bunny-chase player"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}

	if path := config.LoadDotEnv(); path != "" {
		log.Info().Str("path", path).Msg("✅ Loaded environment")
	}
	app, err := config.Load()
	if err != nil {
		writeError(err)
	}
	if CLI.Relay != "" {
		app.Peer.RelayURL = CLI.Relay
	}
	if CLI.Codec != "" {
		app.Peer.Codec = CLI.Codec
	}
	var debugSrv *http.Server
	if CLI.Metrics {
		debugSrv = observability.StartDebugServer(observability.DebugConfig{
			Enabled:       true,
			ListenAddr:    app.Debug.Addr,
			BasicAuthUser: app.Debug.User,
			BasicAuthPass: app.Debug.Pass,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := &Match{
		App:         app,
		Rounds:      CLI.Rounds,
		Timeout:     CLI.Timeout,
		MapPath:     CLI.Map,
		MapSize:     CLI.MapSize,
		JournalPath: CLI.Journal,
	}

	switch kctx.Command() {
	case "host":
		err = host(ctx, m)
	case "join <code>":
		err = join(ctx, m, CLI.Join.Code)
	case "solo":
		m.Role = protocol.RoleBunny
		m.Solo = true
		err = report(m.Run(ctx, nil))
	}
	stopDebugServer(debugSrv)
	if err != nil {
		writeError(err)
	}
}

// stopDebugServer lets an in-flight scrape finish before the process exits.
func stopDebugServer(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("⚠️ debug server shutdown")
	}
}

func host(ctx context.Context, m *Match) error {
	client := &http.Client{Timeout: 10 * time.Second}
	code, err := createRoom(ctx, client, m.App.Peer.RelayURL)
	if err != nil {
		return err
	}
	log.Info().Str("code", code).Msg("🏠 room ready, share this code")

	m.Role = protocol.RoleBunny
	return play(ctx, m, code)
}

func join(ctx context.Context, m *Match, code string) error {
	code = relay.NormalizeCode(code)
	if !relay.ValidCode(code) {
		return fmt.Errorf("%q is not a room code", code)
	}
	m.Role = protocol.RoleBobcat
	return play(ctx, m, code)
}

func play(ctx context.Context, m *Match, code string) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	ws, err := transport.Dial(dialCtx, m.App.Peer.WebSocketURL(code, m.Role), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	return report(m.Run(ctx, ws))
}

func report(res Result, err error) error {
	for i, w := range res.Winners {
		fmt.Printf("round %d: %s wins\n", i+1, w)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
