package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestIdempotencyValidator_NoHeader_NoLookup(t *testing.T) {
	called := false
	lookup := func(context.Context, string, string, time.Time) (bool, error) {
		called = true
		return false, nil
	}

	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	r.POST("/agent/inbox", func(c *gin.Context) {
		if _, _, ok := GetIdempotencyKey(c); ok || IsReplay(c) {
			t.Fatalf("nothing should be stashed without the header")
		}
		c.Status(http.StatusOK)
	})

	if w := do(r, httptest.NewRequest(http.MethodPost, "/agent/inbox", nil)); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if called {
		t.Fatalf("lookup should not run without a key")
	}
}

func TestIdempotencyValidator_RejectsMalformedKeys(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), IdempotencyValidator(IdempotencyOptions{MaxLen: 8, Pattern: regexp.MustCompile(`^[a-z]+$`)}, nil))
	r.POST("/agent/inbox", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, key := range []string{"toolongkey", "UPPER", "sp ace"} {
		req := httptest.NewRequest(http.MethodPost, "/agent/inbox", nil)
		req.Header.Set(HeaderIdempotencyKey, key)
		w := do(r, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("key %q: status = %d; want 400", key, w.Code)
		}
		if body := decodeBody(t, w); body["code"] != "bad_request" {
			t.Fatalf("key %q: body %v", key, body)
		}
	}
}

func TestIdempotencyValidator_ScopeHitMissAndError(t *testing.T) {
	var gotScope string
	store := map[string]bool{"seen-key": true}
	lookup := func(_ context.Context, scope, key string, _ time.Time) (bool, error) {
		gotScope = scope
		if key == "broken" {
			return false, errors.New("db down")
		}
		return store[key], nil
	}

	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	r.POST("/agent/inbox", func(c *gin.Context) {
		scope, key, ok := GetIdempotencyKey(c)
		if !ok || key == "" || !strings.HasPrefix(scope, "ip:") {
			t.Fatalf("key/scope not stashed: %q %q", scope, key)
		}
		if IsReplay(c) != IsRateBypass(c) {
			t.Fatalf("replay and bypass flags must agree")
		}
		if IsReplay(c) {
			c.Status(http.StatusAccepted)
			return
		}
		c.Status(http.StatusOK)
	})

	for key, want := range map[string]int{"fresh-key": http.StatusOK, "seen-key": http.StatusAccepted, "broken": http.StatusOK} {
		req := httptest.NewRequest(http.MethodPost, "/agent/inbox", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set(HeaderIdempotencyKey, key)
		if w := do(r, req); w.Code != want {
			t.Fatalf("key %q: status = %d; want %d", key, w.Code, want)
		}
	}
	if gotScope != "ip:203.0.113.7" {
		t.Fatalf("scope = %q", gotScope)
	}
}
