package daemonhttp

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter is a per-client-IP token bucket: one bucket per remote
// address so a single noisy client can't starve the others.
type RateLimiter interface {
	Allow(clientIP string) bool
}

type ipRateLimiter struct {
	mu                sync.Mutex
	limiters          map[string]*rate.Limiter
	requestsPerMinute int
	burst             int
}

// NewRateLimiter returns a per-IP token bucket limiter.
func NewRateLimiter(requestsPerMinute, burst int) RateLimiter {
	return &ipRateLimiter{
		limiters:          map[string]*rate.Limiter{},
		requestsPerMinute: requestsPerMinute,
		burst:             burst,
	}
}

func (rl *ipRateLimiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	limiter, ok := rl.limiters[clientIP]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(rl.requestsPerMinute)/60, rl.burst)
		rl.limiters[clientIP] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}

// rateLimitMiddleware enforces s.RateLimiter per remote IP, a no-op
// when no limiter is configured (the CLI's embedded use of
// daemonhttp, if any, and tests that don't care about throttling).
func rateLimitMiddleware(limiter RateLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !limiter.Allow(host) {
			respondJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
