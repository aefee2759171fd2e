// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger. Visitors submit
// emails through the inbox and admins pass tokens on websocket handshakes,
// so nothing identifying may reach the logs:
//   - request and response bodies are never logged
//   - emails, phone numbers and UUIDs are scrubbed from query strings and
//     header values
//   - sensitive headers (Authorization, Cookie, Set-Cookie, plus custom)
//     and sensitive query parameters (token, plus custom) are masked
package middleware

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const redacted = "[REDACTED]"

// RedactOptions configures additional masking for RedactingLogger.
// Header and parameter names are matched case-insensitively and merged with
// the built-in sets.
type RedactOptions struct {
	MaskHeaders     []string
	MaskQueryParams []string
}

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	// Digits only, so hex runs from UUIDs are never mistaken for phones.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// scrub replaces identifiers in s. UUIDs go first because the phone
// pattern would otherwise eat their digit groups.
func scrub(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

func lowerSet(base []string, extra []string) map[string]struct{} {
	out := make(map[string]struct{}, len(base)+len(extra))
	for _, s := range append(base, extra...) {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

// redactQuery masks sensitive parameters and scrubs the rest. Parameters are
// re-encoded in key order; an unparsable query is scrubbed as a whole.
func redactQuery(raw string, mask map[string]struct{}) string {
	if raw == "" {
		return ""
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return scrub(truncate(raw, maxQueryLogLength))
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range vals[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			if _, ok := mask[strings.ToLower(k)]; ok {
				b.WriteString(redacted)
			} else {
				b.WriteString(scrub(v))
			}
		}
	}
	return truncate(b.String(), maxQueryLogLength)
}

// RedactingLogger installs a request-scoped logger (request_id, method, path)
// for LoggerFrom and writes one scrubbed access log line per request: INFO
// for success, WARN for 4xx and ERROR for 5xx or recorded Gin errors.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := lowerSet([]string{"authorization", "cookie", "set-cookie"}, opts.MaskHeaders)
	maskParams := lowerSet([]string{"token"}, opts.MaskQueryParams)

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := redactQuery(c.Request.URL.RawQuery, maskParams)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = redacted
				continue
			}
			safeHeaders[k] = scrub(strings.Join(vv, ", "))
		}

		l := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &l)

		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = l.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", scrub(c.Errors.String()))
			}
		case status >= 400:
			ev = l.Warn()
		}
		if sub, ok := AdminSubject(c); ok {
			ev = ev.Str("admin", sub)
		}

		ev.
			Str("query", safeQuery).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
