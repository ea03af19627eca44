package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(n int) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerWindow: n, Window: time.Minute, IdleTTL: 5 * time.Minute})
	rl.now = clock.Now
	return rl, clock
}

func TestAllowWithinWindow(t *testing.T) {
	rl, clock := newTestLimiter(2)

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "third request in the window is over the limit")
	assert.True(t, rl.Allow("b"), "clients are limited independently")

	clock.Advance(time.Minute)
	assert.True(t, rl.Allow("a"), "a new window resets the count")
}

func TestCleanExpired(t *testing.T) {
	rl, clock := newTestLimiter(5)
	rl.Allow("a")
	clock.Advance(3 * time.Minute)
	rl.Allow("b")
	clock.Advance(3 * time.Minute)

	assert.Equal(t, 1, rl.CleanExpired())
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestNewLimiterDefaults(t *testing.T) {
	rl := NewLimiter(Config{})
	def := DefaultConfig()
	assert.Equal(t, def.RequestsPerWindow, rl.requestsPerWindow)
	assert.Equal(t, def.Window, rl.window)
	assert.Equal(t, def.IdleTTL, rl.idleTTL)
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(1)
	ip := func(*http.Request) string { return "client" }
	h := rl.Middleware(ip, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
}

func TestMiddlewareCustomRejection(t *testing.T) {
	rl, _ := newTestLimiter(1)
	rl.Allow("client")
	called := false
	h := rl.Middleware(func(*http.Request) string { return "client" }, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTooManyRequests)
	})(http.NotFoundHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/chart", nil))
	assert.True(t, called)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}
