package relay

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := NewCode()
		assert.NoError(t, err)
		assert.True(t, ValidCode(code), code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 150)

	assert.Equal(t, "ABCD", NormalizeCode("  abcd "))
	assert.False(t, ValidCode("ABC"))
	assert.False(t, ValidCode("AB0D"), "zero is not in the alphabet")
	assert.False(t, ValidCode("ABID"), "I is not in the alphabet")
}

func TestIPRateLimiter(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2, CleanupInterval: time.Minute})
	defer rl.Stop()

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"), "limits are per IP")
	assert.Equal(t, map[string]uint64{"allowed": 3, "rejected": 1, "tracked": 2}, rl.Stats())

	assert.Equal(t, 0, rl.evict(time.Now()))
	assert.Equal(t, 2, rl.evict(time.Now().Add(time.Hour)))
	assert.True(t, rl.Allow("1.1.1.1"), "idle limiter was dropped")
}

func TestIPRateLimiterMiddleware(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1, CleanupInterval: time.Minute})
	defer rl.Stop()
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i, want := range []int{http.StatusNoContent, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "request %d", i)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(req))
}

func TestIsAllowedOrigin(t *testing.T) {
	allowed := []string{"https://bunny.example", "https://*.chase.example"}
	cases := map[string]bool{
		"":                           true,
		"http://localhost:5173":      true,
		"http://127.0.0.1:8080":      true,
		"https://bunny.example":      true,
		"https://play.chase.example": true,
		"https://chase.example.evil": false,
		"http://play.chase.example":  false,
		"https://evil.example":       false,
	}
	for origin, want := range cases {
		assert.Equal(t, want, IsAllowedOrigin(origin, allowed), origin)
	}
}
