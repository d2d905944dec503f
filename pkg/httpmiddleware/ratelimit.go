package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per window.
	Max int
	// Window is the length of one window.
	Window time.Duration
	// KeyFunc extracts the client key from a request. ClientIP is used when nil.
	KeyFunc func(*http.Request) string
}

type window struct {
	prevCount float64
	prevStart time.Time
	currCount float64
	currStart time.Time
}

// Limiter is a per-key sliding window counter. The previous window's count
// is weighted by how much of it still overlaps the sliding window.
type Limiter struct {
	max     int
	size    time.Duration
	mu      sync.Mutex
	windows map[string]*window
}

// NewLimiter creates a Limiter allowing n requests per size.
func NewLimiter(n int, size time.Duration) *Limiter {
	return &Limiter{max: n, size: size, windows: make(map[string]*window)}
}

// Allow records a request for key at now. It returns the remaining budget,
// the end of the current window, and whether the request is allowed.
func (l *Limiter) Allow(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, found := l.windows[key]
	if !found {
		w = &window{currStart: now}
		l.windows[key] = w
	}
	if now.Sub(w.currStart) >= l.size {
		w.prevCount, w.prevStart = w.currCount, w.currStart
		w.currCount, w.currStart = 0, now.Truncate(l.size)
		if now.Sub(w.prevStart) >= 2*l.size {
			w.prevCount = 0
		}
	}

	overlap := max(0, 1-now.Sub(w.currStart).Seconds()/l.size.Seconds())
	count := w.prevCount*overlap + w.currCount
	resetAt = w.currStart.Add(l.size)
	if count >= float64(l.max) {
		return 0, resetAt, false
	}
	w.currCount++
	return max(0, int(float64(l.max)-count-1)), resetAt, true
}

// Sweep drops keys idle for two windows.
func (l *Limiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if now.Sub(w.currStart) >= 2*l.size {
			delete(l.windows, key)
		}
	}
}

// RateLimit returns a middleware enforcing cfg per client key. Rejected
// requests get 429 with a JSON body; every response carries X-RateLimit-*
// headers. Idle keys are swept every two windows until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := NewLimiter(cfg.Max, cfg.Window)
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.Sweep(now)
			}
		}
	}()

	limit := strconv.Itoa(cfg.Max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, resetAt, ok := l.Allow(keyFunc(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
			if !ok {
				retry := max(0, time.Until(resetAt))
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For entry, then X-Real-IP, then
// the host of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
