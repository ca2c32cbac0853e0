package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawcontext/engram-sub001/internal/auth"
)

func TestCheck_AllowsWithinLimit(t *testing.T) {
	l := New(3)
	d := l.Check("ratelimit:tok1", 0)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)
}

func TestCheck_RejectsOverLimit(t *testing.T) {
	l := New(2)
	l.Check("ratelimit:tok1", 0)
	l.Check("ratelimit:tok1", 0)
	d := l.Check("ratelimit:tok1", 0)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.RetryAfter, 0)
}

func TestCheck_ResetsAfterWindow(t *testing.T) {
	l := New(1)
	l.Check("ratelimit:tok1", 0)
	rejected := l.Check("ratelimit:tok1", 30_000)
	assert.False(t, rejected.Allowed)

	allowed := l.Check("ratelimit:tok1", 60_000)
	assert.True(t, allowed.Allowed)
}

func TestCheck_KeysAreIndependent(t *testing.T) {
	l := New(1)
	d1 := l.Check("ratelimit:tok1", 0)
	d2 := l.Check("ratelimit:tok2", 0)
	assert.True(t, d1.Allowed)
	assert.True(t, d2.Allowed)
}

func TestKey_FormatsAuthID(t *testing.T) {
	assert.Equal(t, "ratelimit:abc123", Key("abc123"))
}

func TestMiddleware_EmitsHeadersAndPassesThrough(t *testing.T) {
	limiter := New(5)
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	h := Middleware(limiter, nil)(next)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithContext(req.Context(), &auth.AuthContext{ID: "tok1"}))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestMiddleware_429WhenExceeded(t *testing.T) {
	limiter := New(1)
	var calls int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ })
	mw := Middleware(limiter, nil)(next)

	mkReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(auth.WithContext(req.Context(), &auth.AuthContext{ID: "tok1"}))
	}

	rec1 := httptest.NewRecorder()
	mw.ServeHTTP(rec1, mkReq())
	require.Equal(t, 1, calls)

	rec2 := httptest.NewRecorder()
	mw.ServeHTTP(rec2, mkReq())
	assert.Equal(t, 1, calls, "handler must not run once the limit is exceeded")
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.NotEmpty(t, rec2.Header().Get("Retry-After"))
}

func TestMiddleware_NoAuthContextPassesThrough(t *testing.T) {
	limiter := New(1)
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	h := Middleware(limiter, nil)(next)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, called)
}
