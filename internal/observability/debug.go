package observability

import (
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// DebugConfig configures the debug server
type DebugConfig struct {
	Enabled       bool
	ListenAddr    string // MUST stay on loopback in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultDebugConfig returns safe defaults
func DefaultDebugConfig() DebugConfig {
	return DebugConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060", // Localhost only - NEVER expose externally
	}
}

// Handler returns the pprof, metrics and health mux, wrapped in basic auth
// when credentials are configured.
func Handler(cfg DebugConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.BasicAuthUser != "" {
		return basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return mux
}

// LoopbackAddr rewrites addr onto 127.0.0.1 unless ALLOW_DEBUG_EXTERNAL=true.
func LoopbackAddr(addr string) string {
	if os.Getenv("ALLOW_DEBUG_EXTERNAL") == "true" {
		return addr
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "127.0.0.1:6060"
	}
	if host == "localhost" {
		return addr
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return addr
	}
	log.Warn().Str("requested", addr).Msg("⚠️ Debug server forced to localhost for security")
	return net.JoinHostPort("127.0.0.1", port)
}

// StartDebugServer starts the internal observability server in the
// background. The returned server is nil when disabled.
func StartDebugServer(cfg DebugConfig) *http.Server {
	if !cfg.Enabled {
		log.Info().Msg("📊 Debug server disabled")
		return nil
	}
	cfg.ListenAddr = LoopbackAddr(cfg.ListenAddr)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: Handler(cfg)}
	go func() {
		log.Info().
			Str("pprof", "http://"+cfg.ListenAddr+"/debug/pprof/").
			Str("metrics", "http://"+cfg.ListenAddr+"/metrics").
			Msg("📊 Debug server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Msg("⚠️ Debug server error")
		}
	}()
	return srv
}

func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
