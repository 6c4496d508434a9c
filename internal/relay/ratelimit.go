package relay

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"bunny-chase/internal/observability"
)

// RateLimitConfig configures the per-IP limit on HTTP requests.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration // how often idle visitors are evicted
}

// DefaultRateLimitConfig suits room creation and stats polling.
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 5,
	Burst:             10,
	CleanupInterval:   5 * time.Minute,
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter throttles HTTP requests by client IP. Each IP gets its own
// token bucket, dropped again once the IP has been quiet for two cleanup
// intervals.
type IPRateLimiter struct {
	cfg RateLimitConfig

	mu       sync.Mutex
	visitors map[string]*visitor
	allowed  uint64
	rejected uint64

	stop     chan struct{}
	stopOnce sync.Once
}

func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	rl := &IPRateLimiter{
		cfg:      cfg,
		visitors: make(map[string]*visitor),
		stop:     make(chan struct{}),
	}
	go rl.evictLoop()
	return rl
}

// Stop ends the eviction goroutine.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Allow spends one token from ip's bucket.
func (rl *IPRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()

	if v.limiter.Allow() {
		rl.allowed++
		return true
	}
	rl.rejected++
	return false
}

// Middleware answers 429 to clients over their budget.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ClientIP(r)) {
			observability.RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			writeError(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stats reports how many requests passed and how many were refused.
func (rl *IPRateLimiter) Stats() map[string]uint64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return map[string]uint64{
		"allowed":  rl.allowed,
		"rejected": rl.rejected,
		"tracked":  uint64(len(rl.visitors)),
	}
}

func (rl *IPRateLimiter) evictLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			if n := rl.evict(now); n > 0 {
				log.Debug().Int("visitors", n).Msg("🧹 evicted idle rate limiters")
			}
		}
	}
}

// evict drops visitors idle for two cleanup intervals and returns how many
// went.
func (rl *IPRateLimiter) evict(now time.Time) int {
	cutoff := now.Add(-2 * rl.cfg.CleanupInterval)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := 0
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
			n++
		}
	}
	return n
}

// ClientIP picks the caller's address, preferring proxy headers. Those can
// be forged unless the relay sits behind a trusted proxy.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
