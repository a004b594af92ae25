// Package ratelimit provides client-side per-host rate limiting using a token bucket.
package ratelimit

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds the configuration for rate limiting
type Config struct {
	// Enabled enables rate limiting
	Enabled bool
	// RequestsPerSecond is the sustained request rate allowed per host
	RequestsPerSecond float64
	// BurstSize is the maximum burst size
	BurstSize int
	// CleanupMinutes is how often to drop limiters for idle hosts
	CleanupMinutes int
}

// hostLimiter tracks a rate limiter and its last access time
type hostLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages per-host rate limiters
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*hostLimiter
	rate     rate.Limit
	burst    int
	cleanup  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a new RateLimiter with the given configuration
func New(cfg Config) *RateLimiter {
	burst := cfg.BurstSize
	if burst < 1 {
		burst = 1
	}

	cleanupDuration := time.Duration(cfg.CleanupMinutes) * time.Minute
	if cleanupDuration <= 0 {
		cleanupDuration = 10 * time.Minute
	}

	rl := &RateLimiter{
		limiters: make(map[string]*hostLimiter),
		rate:     rate.Limit(cfg.RequestsPerSecond),
		burst:    burst,
		cleanup:  cleanupDuration,
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStale()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanupStale removes entries that haven't been used recently
func (rl *RateLimiter) cleanupStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.cleanup)
	for host, limiter := range rl.limiters {
		if limiter.lastSeen.Before(cutoff) {
			delete(rl.limiters, host)
		}
	}
}

// getLimiter gets or creates a rate limiter for the given host
func (rl *RateLimiter) getLimiter(host string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[host]; exists {
		limiter.lastSeen = time.Now()
		return limiter.limiter
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters[host] = &hostLimiter{
		limiter:  limiter,
		lastSeen: time.Now(),
	}
	return limiter
}

// RoundTripper wraps next so that each request waits for a token of its host's bucket.
// A request whose context ends while waiting fails without reaching next.
func (rl *RateLimiter) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}

	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if err := rl.getLimiter(req.URL.Host).Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		return next.RoundTrip(req)
	})
}

// RoundTripper returns a rate limiting RoundTripper with the given configuration,
// or next unchanged when rate limiting is disabled. The returned stop function
// releases the limiter's cleanup goroutine.
func RoundTripper(cfg Config, next http.RoundTripper) (http.RoundTripper, func()) {
	if next == nil {
		next = http.DefaultTransport
	}
	if !cfg.Enabled || cfg.RequestsPerSecond <= 0 {
		return next, func() {}
	}

	rl := New(cfg)
	return rl.RoundTripper(next), rl.Stop
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
