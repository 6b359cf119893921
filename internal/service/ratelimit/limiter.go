package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a keyed token bucket. Every key shares the same burst and refill rate.
type Limiter struct {
	mu      sync.Mutex
	m       map[string]*bucket
	burst   float64
	perSec  float64
	idleTTL time.Duration
	lastGC  time.Time
	now     func() time.Time
}

// New allows burst requests per key and refills perSec tokens each second.
func New(burst int, perSec float64) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		m:       make(map[string]*bucket),
		burst:   float64(burst),
		perSec:  perSec,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.burst, last: now}
		l.m[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.perSec
		if b.tokens > l.burst {
			b.tokens = l.burst
		}
		b.last = now
	}
	l.gc(now)

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// gc drops buckets idle long enough to have refilled. Caller holds mu.
func (l *Limiter) gc(now time.Time) {
	if now.Sub(l.lastGC) < l.idleTTL {
		return
	}
	l.lastGC = now
	for k, b := range l.m {
		if now.Sub(b.last) > l.idleTTL {
			delete(l.m, k)
		}
	}
}

// Len reports how many keys are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// Middleware limits requests per client IP. Rejections answer 429 with the
// standard envelope.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l.Allow(c.RealIP()) {
				return next(c)
			}
			c.Response().Header().Set(echo.HeaderRetryAfter, "1")
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"status":  http.StatusTooManyRequests,
				"message": http.StatusText(http.StatusTooManyRequests),
				"data": []map[string]string{{
					"code":    "ERR_RATE_LIMITED",
					"message": "too many requests",
				}},
			})
		}
	}
}
