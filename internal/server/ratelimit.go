package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per client IP
type RateLimiter struct {
	mu       sync.Mutex
	enabled  bool
	limit    rate.Limit
	burst    int
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerMin per client with
// the given burst
func NewRateLimiter(enabled bool, requestsPerMin, burst int) *RateLimiter {
	rl := &RateLimiter{visitors: make(map[string]*visitor)}
	rl.SetLimits(enabled, requestsPerMin, burst)
	return rl
}

// SetLimits changes the limits for existing and future clients
func (rl *RateLimiter) SetLimits(enabled bool, requestsPerMin, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if burst < 1 {
		burst = 1
	}
	rl.enabled = enabled
	rl.limit = rate.Limit(float64(requestsPerMin) / 60.0) // per second
	rl.burst = burst

	for _, v := range rl.visitors {
		v.limiter.SetLimit(rl.limit)
		v.limiter.SetBurst(rl.burst)
	}
}

// Allow reports whether a request from clientIP may proceed
func (rl *RateLimiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	if !rl.enabled {
		rl.mu.Unlock()
		return true
	}

	v, ok := rl.visitors[clientIP]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[clientIP] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

// Cleanup removes clients not seen since cutoff
func (rl *RateLimiter) Cleanup(cutoff time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine forgets idle clients every interval until stop is closed
func (rl *RateLimiter) StartCleanupRoutine(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Now().Add(-time.Hour))
			case <-stop:
				return
			}
		}
	}()
}
