// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Idempotency-Key handling for public writes (the
// offline inbox). The middleware validates the header, derives the scope
// "ip:<client address>", asks a lookup whether a completed result already
// exists, and annotates the context so the handler can replay it and the
// rate limiter can let the replay through.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemScope  = "idem.scope"
	ctxKeyIdemReplay = "idem.replay" // bool: a live record exists
	ctxKeyRateBypass = "rate.bypass" // bool: skip rate limiting
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key and its scope. ok is false
// when the request carried no key.
func GetIdempotencyKey(c *gin.Context) (scope, key string, ok bool) {
	k, _ := c.Get(ctxKeyIdemKey)
	s, _ := c.Get(ctxKeyIdemScope)
	key, scope = asString(k), asString(s)
	return scope, key, key != ""
}

// IsReplay reports whether the lookup found a live record for this key.
func IsReplay(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyIdemReplay)
	b, _ := v.(bool)
	return b
}

// IdempotencyScope is the namespace keys are stored under.
func IdempotencyScope(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// IdempotencyOptions configures header validation.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; defaults to ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether a live result exists for (scope, key).
// Errors are treated as a miss so a broken store never blocks writes.
type IdempotencyLookup func(ctx context.Context, scope, key string, now time.Time) (bool, error)

// IdempotencyValidator is a no-op without the header. A malformed key is
// rejected with 400; otherwise key and scope are stashed and, on a lookup
// hit, the request is marked as a replay that bypasses rate limiting.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			abortJSON(c, http.StatusBadRequest, "bad_request", "invalid Idempotency-Key")
			return
		}

		scope := IdempotencyScope(c)
		c.Set(ctxKeyIdemKey, key)
		c.Set(ctxKeyIdemScope, scope)

		if lookup != nil {
			hit, err := lookup(c.Request.Context(), scope, key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			}
			if hit {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
