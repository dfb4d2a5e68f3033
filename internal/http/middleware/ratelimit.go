// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with one
// bucket per caller identity and opportunistic eviction of idle buckets.
// Deposit kiosks and courier apps retry aggressively when the hardware link
// is slow, so the limiter sits in front of every API route to keep a single
// misbehaving station from starving the rest of the bank.
//
// Notes:
//   - Buckets are process-local. A horizontally scaled deployment needs a
//     shared limiter (e.g., Redis-backed) to enforce a global budget; a
//     single locker bank is served by one process, so this is not built.
//   - Idempotent replays bypass the limiter entirely (see IsRateBypass):
//     re-sending a deposit that already succeeded must never be punished,
//     or flaky kiosks would wedge themselves out of their own retries.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc maps a request to the identity that owns its token bucket. The
// returned string must be stable for the duration of the request, e.g.
// "user:<courier>" or "ip:<station addr>".
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by the authenticated courier when one is set
// on the Gin context under "userID", falling back to the client IP for
// anonymous traffic (collection endpoints are hit by recipients who carry
// no account). Keys are namespaced so a user ID can never collide with an
// IP literal.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("userID"); ok {
			if s, ok := v.(string); ok && s != "" {
				return "user:" + s
			}
		}
		return "ip:" + c.ClientIP()
	}
}

// bucket pairs a limiter with the last time its owner was seen, so idle
// entries can be evicted.
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-identity token-bucket limit.
//
// Buckets are created on demand in a mutex-guarded map. Stations come and
// go (DHCP churn, courier shift changes), so idle buckets are swept after a
// TTL during lookups to keep the map bounded. Safe for concurrent use.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	keyFn   keyFunc
	mu      sync.Mutex
	buckets map[string]*bucket

	ttl     time.Duration
	lookups uint64
}

// NewRateLimiter returns a limiter replenishing rps tokens per second with
// the given burst size (values <= 0 are coerced to 1), keyed by keyFn.
// Install it with Handler().
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		buckets: make(map[string]*bucket),
		ttl:     10 * time.Minute,
	}
}

// bucketFor returns the limiter for key, creating it if absent, and sweeps
// idle entries roughly every 5000 lookups. The sweep runs before the
// requested bucket is touched, otherwise fetching an idle bucket would
// refresh it past eviction.
func (rl *RateLimiter) bucketFor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	rl.lookups++
	if rl.lookups >= 5000 {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		lim := b.limiter
		rl.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	rl.mu.Unlock()
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay of an already-completed deposit. Replays are served from the stored
// result and must not consume tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass) // set by IdempotencyValidator
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the enforcing middleware. Replays pass through untouched;
// everything else draws a token from its bucket or is rejected with 429 and
// the standard error envelope:
//
//	HTTP/1.1 429 Too Many Requests
//	{
//	  "request_id": "<uuid>",
//	  "code":       "rate_limited",
//	  "message":    "rate limit exceeded"
//	}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		lim := rl.bucketFor(rl.keyFn(c))
		if lim.Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
