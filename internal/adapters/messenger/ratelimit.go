package messenger

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds per-sender rate limiting configuration.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	MessagesPerMinute int  `yaml:"messages_per_minute"` // default: 20
	BurstSize         int  `yaml:"burst_size"`          // default: 5
}

// DefaultRateLimitConfig returns default rate limit configuration. Limiting
// is off until enabled, so every inbound message is handled.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled:           false,
		MessagesPerMinute: 20,
		BurstSize:         5,
	}
}

// RateLimiter keeps one token bucket per sender PSID.
type RateLimiter struct {
	config   *RateLimitConfig
	mu       sync.Mutex
	limiters map[string]*senderLimiter
}

type senderLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter. A nil config uses the defaults.
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return &RateLimiter{
		config:   config,
		limiters: make(map[string]*senderLimiter),
	}
}

// Allow reports whether psid may be answered now, consuming a token if so.
func (r *RateLimiter) Allow(psid string) bool {
	if r == nil || !r.config.Enabled {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sl, ok := r.limiters[psid]
	if !ok {
		burst := r.config.BurstSize
		if burst <= 0 || burst > r.config.MessagesPerMinute {
			burst = r.config.MessagesPerMinute
		}
		if burst <= 0 {
			burst = 1
		}
		perSecond := rate.Limit(float64(r.config.MessagesPerMinute) / 60.0)
		sl = &senderLimiter{limiter: rate.NewLimiter(perSecond, burst)}
		r.limiters[psid] = sl
	}
	sl.lastSeen = time.Now()
	return sl.limiter.Allow()
}

// Cleanup drops limiters for senders idle longer than maxIdle.
func (r *RateLimiter) Cleanup(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for psid, sl := range r.limiters {
		if sl.lastSeen.Before(cutoff) {
			delete(r.limiters, psid)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked senders.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}
