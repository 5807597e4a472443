package middleware

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter caps requests per client address over a fixed window. Counters
// live in memory, so limits are per process; that fits a single-instance
// deployment and keeps redis off the request path.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	limit   int
	window  time.Duration
}

type clientWindow struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientWindow),
		limit:   limit,
		window:  window,
	}
	go rl.sweep()
	return rl
}

// sweep drops lapsed windows so the map does not grow without bound.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		rl.mu.Lock()
		for addr, cw := range rl.clients {
			if now.After(cw.resetAt) {
				delete(rl.clients, addr)
			}
		}
		rl.mu.Unlock()
	}
}

// allow counts one request for addr and reports whether it stays within the
// limit for the current window.
func (rl *RateLimiter) allow(addr string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	cw, ok := rl.clients[addr]
	if !ok || now.After(cw.resetAt) {
		rl.clients[addr] = &clientWindow{count: 1, resetAt: now.Add(rl.window)}
		return true
	}

	cw.count++
	return cw.count <= rl.limit
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.RemoteAddr) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
