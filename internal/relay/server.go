package relay

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Server is the relay's HTTP front.
type Server struct {
	router      *chi.Mux
	hub         *Hub
	rateLimiter *IPRateLimiter
	http        *http.Server
}

// NewServer builds a relay from hub and rate limit settings.
func NewServer(hubCfg HubConfig, rlCfg RateLimitConfig, corsOrigins []string) *Server {
	hub := NewHub(hubCfg)
	rl := NewIPRateLimiter(rlCfg)
	return &Server{
		hub:         hub,
		rateLimiter: rl,
		router: NewRouter(RouterConfig{
			Hub:         hub,
			RateLimiter: rl,
			CORSOrigins: corsOrigins,
		}),
	}
}

// Start serves on addr until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("addr", addr).Msg("🌐 relay listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the room registry.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Shutdown stops accepting requests, then closes every room.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	s.hub.Close()
	s.rateLimiter.Stop()
	return err
}
