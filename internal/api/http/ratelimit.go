package http

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/spec-kit/order-tagger/internal/config"
	apperrors "github.com/spec-kit/order-tagger/pkg/util"
)

const limiterEntryTTL = 15 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter hands out one token bucket per client IP.
type ipRateLimiter struct {
	perMinute int
	burst     int
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*limiterEntry
}

func newIPRateLimiter(cfg config.RateLimitConfig) *ipRateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.PerMinute
	}
	return &ipRateLimiter{
		perMinute: cfg.PerMinute,
		burst:     burst,
		now:       time.Now,
		entries:   map[string]*limiterEntry{},
	}
}

// RateLimit throttles requests per client IP. A non-positive limit disables it.
func RateLimit(cfg config.RateLimitConfig) fiber.Handler {
	if cfg.PerMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return newIPRateLimiter(cfg).handler()
}

func (l *ipRateLimiter) handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l.allow(c.IP()) {
			return c.Next()
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(l.retryAfterSeconds()))
		return apperrors.NewTooManyRequests("too many login attempts; slow down")
	}
}

func (l *ipRateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.burst),
		}
		// Fiber reuses the IP string's backing buffer.
		l.entries[string([]byte(key))] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *ipRateLimiter) prune(now time.Time) {
	for k, v := range l.entries {
		if now.Sub(v.lastSeen) > limiterEntryTTL {
			delete(l.entries, k)
		}
	}
}

func (l *ipRateLimiter) retryAfterSeconds() int {
	seconds := int(math.Ceil(60.0 / float64(l.perMinute)))
	if seconds < 1 {
		return 1
	}
	return seconds
}
