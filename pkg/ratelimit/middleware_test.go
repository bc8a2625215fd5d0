package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacmorgado/splice-core/pkg/ratelimit"
)

func newTestHandler(limiter *ratelimit.Limiter) http.Handler {
	mw := ratelimit.Middleware(limiter, func(r *http.Request) string {
		return "test:ip:" + r.RemoteAddr
	})
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestMiddlewareSetsHeaders(t *testing.T) {
	t.Parallel()

	limiter, err := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{
		MaxRequests: 2,
		Window:      time.Minute,
	}, discardLogger())
	require.NoError(t, err)

	handler := newTestHandler(limiter)

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.1:1000"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestMiddlewareDeniesWithRetryAfter(t *testing.T) {
	t.Parallel()

	limiter, err := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{
		MaxRequests: 1,
		Window:      time.Minute,
	}, discardLogger())
	require.NoError(t, err)

	handler := newTestHandler(limiter)

	for i := range 2 {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "203.0.113.2:1000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		if i == 0 {
			require.Equal(t, http.StatusOK, w.Code)
			continue
		}

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestMiddlewareSkipsEmptyKey(t *testing.T) {
	t.Parallel()

	limiter, err := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{
		MaxRequests: 1,
		Window:      time.Minute,
	}, discardLogger())
	require.NoError(t, err)

	mw := ratelimit.Middleware(limiter, func(r *http.Request) string { return "" })
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for range 5 {
		r := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
