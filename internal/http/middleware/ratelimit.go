// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a process-local token-bucket rate limiter with one
// bucket per identity (admin subject or client IP). Idle buckets are swept
// periodically. Idempotent replays flagged by IdempotencyValidator are not
// limited.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc selects the identity used to key a rate-limit bucket.
type KeyFunc func(*gin.Context) string

// KeyByAdminOrIP keys authenticated admins by subject and everyone else by
// client IP. The prefixes keep the namespaces apart.
func KeyByAdminOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if sub, ok := AdminSubject(c); ok && sub != "" {
			return "admin:" + sub
		}
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc

	mu        sync.Mutex
	buckets   map[string]*bucket
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter returns a limiter refilling rps tokens per second with the
// given burst (coerced to at least 1).
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByAdminOrIP()
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		buckets: make(map[string]*bucket),
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// limiterFor returns the bucket for key, sweeping idle buckets at most once
// per idle TTL before the lookup.
func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	return lim
}

// retryAfter is the whole number of seconds until one token is back.
func (rl *RateLimiter) retryAfter() string {
	if rl.rps <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Ceil(1 / float64(rl.rps))))
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay.
func IsRateBypass(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyRateBypass)
	b, _ := v.(bool)
	return b
}

// Handler enforces the limit, answering 429 too_many_requests with a
// Retry-After header when the bucket is empty.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) || rl.limiterFor(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", rl.retryAfter())
		abortJSON(c, http.StatusTooManyRequests, "too_many_requests", "rate limit exceeded")
	}
}
