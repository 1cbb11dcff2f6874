package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"erbgo/internal/common/logging"
)

const (
	defaultMaxKeys     = 10000
	defaultIdleTimeout = 10 * time.Minute
)

// RateLimiter keeps one token bucket per client address.
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	maxKeys  int
	idle     time.Duration
	limiters map[string]*limiterEntry

	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewRateLimiter allows rps requests per second per client, with bursts of
// up to burst requests.
func NewRateLimiter(rps, burst int) *RateLimiter {
	return &RateLimiter{
		limit:       rate.Limit(rps),
		burst:       burst,
		maxKeys:     defaultMaxKeys,
		idle:        defaultIdleTimeout,
		limiters:    make(map[string]*limiterEntry),
		lastCleanup: time.Now(),
	}
}

// Allow takes a token from key's bucket.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiterFor(key).Allow()
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastCleanup) > rl.idle {
		rl.cleanup()
	}

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = entry
		if len(rl.limiters) > rl.maxKeys {
			rl.cleanup()
		}
	}
	entry.lastUsed = time.Now()
	return entry.limiter
}

// cleanup drops buckets idle longer than rl.idle. Caller holds rl.mu.
func (rl *RateLimiter) cleanup() {
	cutoff := time.Now().Add(-rl.idle)
	for key, entry := range rl.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
	rl.lastCleanup = time.Now()
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !rl.Allow(key) {
			logging.WithContext(r.Context()).Warn("rate limit exceeded",
				logging.String("client", key),
				logging.String("path", r.URL.Path),
			)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "rate limit exceeded",
				"type":  "rate_limited",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
