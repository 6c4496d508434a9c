package relay

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"bunny-chase/internal/observability"
)

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
//	hub := relay.NewHub(relay.DefaultHubConfig())
//	router := relay.NewRouter(relay.RouterConfig{Hub: hub})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Hub owns rooms and connections (required)
	Hub *Hub

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware.
	DisableLogging bool
}

// NewRouter constructs the HTTP router with all middleware and routes.
// It starts nothing except the rate limiter's cleanup goroutine when it has
// to create one.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(requestLogger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS to reject early
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}

	h := &routerHandlers{hub: cfg.Hub, rateLimiter: rateLimiter}

	r.Get("/health", h.handleHealth)

	// The socket is not rate limited per request; connection caps apply.
	r.Get("/ws", h.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimiter.Middleware)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))

		r.Post("/rooms", h.handleCreateRoom)
		r.Get("/rooms/{code}", h.handleGetRoom)
		r.Get("/stats", h.handleStats)
	})

	return r
}

// requestLogger logs each request through zerolog and feeds the HTTP
// metrics, labelled by route pattern.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			// hijacked by the websocket upgrade
			status = http.StatusSwitchingProtocols
		}
		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		observability.RecordRequest(r.Method, pattern, status, elapsed)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("elapsed", elapsed).
			Str("ip", ClientIP(r)).
			Msg("http")
	})
}
