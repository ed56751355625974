package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/auth"
	"github.com/Ritika1223/jensieBackend/internal/transport"
)

// RateLimiter is a fixed-window counter per key. Expired windows are swept
// on every call so idle clients do not accumulate.
type RateLimiter struct {
	limit   int
	window  time.Duration
	mu      sync.Mutex
	windows map[string]*fixedWindow
	now     func() time.Time
}

type fixedWindow struct {
	count int
	reset time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]*fixedWindow),
		now:     time.Now,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	ok, _ := rl.take(key)
	return ok
}

// take counts one hit for key and reports whether it fits in the current
// window along with the time the window resets.
func (rl *RateLimiter) take(key string) (bool, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for k, w := range rl.windows {
		if now.After(w.reset) {
			delete(rl.windows, k)
		}
	}

	w, ok := rl.windows[key]
	if !ok {
		w = &fixedWindow{reset: now.Add(rl.window)}
		rl.windows[key] = w
	}
	if w.count >= rl.limit {
		return false, w.reset
	}
	w.count++
	return true, w.reset
}

// limitKey identifies the caller: the authenticated principal when there is
// one, otherwise the client address.
func limitKey(r *http.Request) string {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok && p.UserID != "" {
		return string(p.Role) + ":" + p.UserID
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		first, _, _ := strings.Cut(xf, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, reset := rl.take(limitKey(r) + ":" + r.URL.Path)
		if !ok {
			wait := max(int(reset.Sub(rl.now()).Seconds()+0.999), 1)
			w.Header().Set("Retry-After", strconv.Itoa(wait))
			transport.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
