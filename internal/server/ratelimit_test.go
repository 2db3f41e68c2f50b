package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anoncore/anoncore/internal/config"
)

func TestRateLimiterPerClientBurst(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{
		GlobalPerMinute:    100,
		PerClientPerMinute: 3,
	})

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), "request %d should pass", i)
	}
	assert.False(t, rl.Allow("10.0.0.1"), "burst exhausted")

	// A different client has its own budget.
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiterGlobalCap(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{
		GlobalPerMinute:    2,
		PerClientPerMinute: 100,
	})

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
	assert.False(t, rl.Allow("10.0.0.3"), "global budget exhausted")
}
