package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/diarizer/errors"
	"github.com/kbukum/diarizer/resilience"
)

const idleLimiterTTL = 10 * time.Minute

// RateLimitConfig configures per-client token buckets.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Rate is requests per second per client.
	Rate  float64 `yaml:"rate" mapstructure:"rate"`
	Burst int     `yaml:"burst" mapstructure:"burst"`
	// KeyFunc picks the client key. Defaults to the client IP.
	KeyFunc func(*gin.Context) string `yaml:"-" mapstructure:"-"`
}

// RateLimit rejects requests over the client's budget with 429 and a
// Retry-After header.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPBasedKey
	}
	limiters := newLimiterSet(resilience.RateLimiterConfig{Rate: cfg.Rate, Burst: cfg.Burst})

	return func(c *gin.Context) {
		rl := limiters.get(cfg.KeyFunc(c))
		if !rl.Allow() {
			secs := int(math.Ceil(rl.RetryAfter().Seconds()))
			c.Header("Retry-After", strconv.Itoa(max(1, secs)))
			abort(c, apperrors.RateLimited())
			return
		}
		c.Next()
	}
}

// IPBasedKey keys by client IP.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

// SubjectBasedKey keys by the authenticated subject, falling back to the
// client IP.
func SubjectBasedKey(c *gin.Context) string {
	if sub := c.GetString(ContextKeySubject); sub != "" {
		return sub
	}
	return c.ClientIP()
}

type limiterEntry struct {
	limiter  *resilience.RateLimiter
	lastSeen time.Time
}

// limiterSet holds one bucket per key and drops idle ones on access.
type limiterSet struct {
	cfg resilience.RateLimiterConfig

	mu        sync.Mutex
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

func newLimiterSet(cfg resilience.RateLimiterConfig) *limiterSet {
	return &limiterSet{cfg: cfg, entries: make(map[string]*limiterEntry), lastSweep: time.Now()}
}

func (s *limiterSet) get(key string) *resilience.RateLimiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if now.Sub(s.lastSweep) > idleLimiterTTL {
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) > idleLimiterTTL {
				delete(s.entries, k)
			}
		}
		s.lastSweep = now
	}

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: resilience.NewRateLimiter(s.cfg)}
		s.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter
}
