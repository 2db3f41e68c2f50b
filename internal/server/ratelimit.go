package server

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/anoncore/anoncore/internal/config"
)

// RateLimiter enforces a global and a per-client request budget using token
// buckets from golang.org/x/time/rate.
type RateLimiter struct {
	mu        sync.Mutex
	global    *rate.Limiter
	clients   map[string]*rate.Limiter
	perClient rate.Limit
	burst     int
}

// NewRateLimiter creates a rate limiter from the server config. Limits are
// expressed in requests per minute.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	globalBurst := cfg.GlobalPerMinute
	if globalBurst < 1 {
		globalBurst = 1
	}
	clientBurst := cfg.PerClientPerMinute
	if clientBurst < 1 {
		clientBurst = 1
	}
	return &RateLimiter{
		global:    rate.NewLimiter(rate.Limit(float64(cfg.GlobalPerMinute)/60.0), globalBurst),
		clients:   make(map[string]*rate.Limiter),
		perClient: rate.Limit(float64(cfg.PerClientPerMinute) / 60.0),
		burst:     clientBurst,
	}
}

// Allow reports whether a request from the given client IP may proceed.
func (rl *RateLimiter) Allow(clientIP string) bool {
	if !rl.global.Allow() {
		return false
	}
	rl.mu.Lock()
	limiter, ok := rl.clients[clientIP]
	if !ok {
		limiter = rate.NewLimiter(rl.perClient, rl.burst)
		rl.clients[clientIP] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}
