// Command relay runs the room relay that pairs bunny-chase peers.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"bunny-chase/internal/config"
	"bunny-chase/internal/observability"
	"bunny-chase/internal/relay"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("LOG_LEVEL") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if path := config.LoadDotEnv(); path != "" {
		log.Info().Str("path", path).Msg("✅ Loaded environment")
	} else {
		log.Info().Msg("💡 No .env file found, using environment variables only")
	}

	log.Info().Msg("🐇 ================================")
	log.Info().Msg("🐇  BUNNY CHASE - RELAY")
	log.Info().Msg("🐇 ================================")

	app, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	rc := app.Relay

	debugSrv := observability.StartDebugServer(observability.DebugConfig{
		Enabled:       app.Debug.Enabled,
		ListenAddr:    app.Debug.Addr,
		BasicAuthUser: app.Debug.User,
		BasicAuthPass: app.Debug.Pass,
	})

	server := relay.NewServer(relay.HubConfig{
		MaxRooms:        rc.MaxRooms,
		MaxConnections:  rc.MaxConnections,
		MaxConnsPerIP:   rc.MaxConnsPerIP,
		RoomTTL:         rc.RoomTTL,
		FramesPerSecond: rc.FramesPerSecond,
		FrameBurst:      rc.FrameBurst,
		AllowedOrigins:  rc.CORSOrigins,
	}, relay.RateLimitConfig{
		RequestsPerSecond: rc.RequestsPerSecond,
		Burst:             rc.RequestBurst,
		CleanupInterval:   relay.DefaultRateLimitConfig.CleanupInterval,
	}, rc.CORSOrigins)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(rc.Addr())
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("🛑 Shutting down...")
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("relay stopped")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("⚠️ relay shutdown")
	}
	if debugSrv != nil {
		debugSrv.Shutdown(ctx)
	}
	log.Info().Msg("👋 Goodbye!")
}
