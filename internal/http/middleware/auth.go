// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements admin authentication. Admin tokens are HMAC-signed
// JWTs carrying a "role" claim; only role "admin" is accepted. The token is
// read from the Authorization bearer header or the configured cookie, and,
// for websocket handshakes only, from the "token" query parameter.
package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tbourn/go-agent-backend/internal/sysutil"
)

// AdminRole is the role claim value that grants admin access.
const AdminRole = "admin"

const ctxKeyAdminSubject = "auth.subject"

var (
	// ErrMissingToken means no token was presented.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidToken covers bad signatures, expiry and malformed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotAdmin means the token is valid but lacks the admin role.
	ErrNotAdmin = errors.New("admin role required")
)

// Claims is the JWT payload issued to console users.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth verifies admin tokens.
type AdminAuth struct {
	secret []byte
	cookie string
}

// NewAdminAuth returns a verifier for tokens signed with secret. An empty
// secret rejects every token.
func NewAdminAuth(secret, cookie string) *AdminAuth {
	if cookie == "" {
		cookie = "jwt"
	}
	return &AdminAuth{secret: []byte(secret), cookie: cookie}
}

// IssueToken signs a token for subject with the given role. It backs the
// CLI token command and tests.
func (a *AdminAuth) IssueToken(subject, role string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", ErrInvalidToken
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses raw and returns the subject of an admin token.
func (a *AdminAuth) Verify(raw string) (string, error) {
	if raw == "" {
		return "", ErrMissingToken
	}
	if len(a.secret) == 0 {
		return "", ErrInvalidToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Role != AdminRole {
		return "", ErrNotAdmin
	}
	return claims.Subject, nil
}

// TokenFrom extracts the raw token. allowQuery enables the "token" query
// parameter, which browsers need for websocket handshakes.
func (a *AdminAuth) TokenFrom(r *http.Request, allowQuery bool) string {
	var query, bearer, cookie string
	if allowQuery {
		query = r.URL.Query().Get("token")
	}
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		bearer = h[7:]
	}
	if ck, err := r.Cookie(a.cookie); err == nil {
		cookie = ck.Value
	}
	return sysutil.FirstNonEmpty(query, bearer, cookie)
}

// Authenticate combines TokenFrom and Verify.
func (a *AdminAuth) Authenticate(r *http.Request, allowQuery bool) (string, error) {
	return a.Verify(a.TokenFrom(r, allowQuery))
}

// Identify stores the admin subject when a valid admin token is present and
// never rejects. It runs ahead of the rate limiter so admins get their own
// buckets.
func (a *AdminAuth) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sub, err := a.Authenticate(c.Request, false); err == nil {
			c.Set(ctxKeyAdminSubject, sub)
		}
		c.Next()
	}
}

// RequireAdmin rejects requests without an admin token: 401 when the token
// is missing or invalid, 403 when it lacks the admin role. On success the
// subject is stored for AdminSubject.
func (a *AdminAuth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := AdminSubject(c); ok {
			c.Next()
			return
		}
		sub, err := a.Authenticate(c.Request, false)
		switch {
		case errors.Is(err, ErrNotAdmin):
			abortJSON(c, http.StatusForbidden, "forbidden", "admin role required")
			return
		case err != nil:
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		c.Set(ctxKeyAdminSubject, sub)
		c.Next()
	}
}

// AdminSubject returns the authenticated admin subject, if any.
func AdminSubject(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyAdminSubject)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, true
}
