package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RemoteIP returns the host part of the connection's remote address.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientIP returns a key function for RateLimit. With trustProxy set the
// client address comes from X-Real-IP, then the first hop of
// X-Forwarded-For; those headers are client-controlled, so only enable it
// when a reverse proxy overwrites them. Otherwise it is RemoteIP.
func ClientIP(trustProxy bool) func(*http.Request) string {
	if !trustProxy {
		return RemoteIP
	}
	return func(r *http.Request) string {
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		return RemoteIP(r)
	}
}

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow reports whether key is still within limit for the current window.
// When it is not, wait is the time until the window resets.
func (rl *RateLimiter) Allow(key string, limit int, per time.Duration) (ok bool, wait time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, found := rl.windows[key]
	if !found || !now.Before(w.resetAt) {
		rl.windows[key] = &window{count: 1, resetAt: now.Add(per)}
		return true, 0
	}
	w.count++
	if w.count <= limit {
		return true, 0
	}
	return false, w.resetAt.Sub(now)
}

// Cleanup drops windows that have ended.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, w := range rl.windows {
		if !now.Before(w.resetAt) {
			delete(rl.windows, key)
		}
	}
}

// RateLimit answers 429 with a Retry-After header once keyFunc's key has
// made more than limit requests in the window.
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string, limit int, per time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := limiter.Allow(keyFunc(r), limit, per)
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeDetail(w, http.StatusTooManyRequests, "Request was throttled. Expected available in "+strconv.Itoa(secs)+" seconds.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
