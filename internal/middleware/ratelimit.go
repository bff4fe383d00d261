package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter *rate.Limiter
	last    time.Time
}

// RateLimiter hands out one token bucket per client IP. Buckets idle for
// longer than idleTTL are dropped by Sweep.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	idleTTL time.Duration

	mu       sync.Mutex
	limiters map[string]*ipLimiter
	now      func() time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		idleTTL:  30 * time.Minute,
		limiters: make(map[string]*ipLimiter),
		now:      time.Now,
	}
}

// Allow reports whether a request from ip may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	il, ok := rl.limiters[ip]
	if !ok {
		il = &ipLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[ip] = il
	}
	il.last = rl.now()
	rl.mu.Unlock()
	return il.limiter.Allow()
}

// Sweep removes buckets that have not been used within the idle TTL.
func (rl *RateLimiter) Sweep() {
	cutoff := rl.now().Add(-rl.idleTTL)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, il := range rl.limiters {
		if il.last.Before(cutoff) {
			delete(rl.limiters, ip)
		}
	}
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP relies on chi's RealIP middleware having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
