package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"library-engine/internal/config"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	cfg := config.RateLimitConfig{
		Enabled: true,
		RPS:     0.5,
		Burst:   2,
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rl := NewRateLimiterMiddleware(ctx, cfg, logger)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("allows requests within the burst", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, send("127.0.0.1:12345").Code)
		assert.Equal(t, http.StatusOK, send("127.0.0.1:12345").Code)
	})

	t.Run("blocks requests beyond the burst", func(t *testing.T) {
		rec := send("127.0.0.1:12345")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("Retry-After"))

		var response map[string]map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "RATE_LIMITED", response["error"]["code"])
		assert.Equal(t, "Rate limit exceeded", response["error"]["message"])
	})

	t.Run("other clients have their own bucket", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, send("10.1.1.1:5000").Code)
	})

	t.Run("extractIP handles various headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.1, 10.0.0.1")
		assert.Equal(t, "192.168.1.1", rl.extractIP(req))

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", "10.0.0.1")
		assert.Equal(t, "10.0.0.1", rl.extractIP(req))

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.1:12345"
		assert.Equal(t, "127.0.0.1", rl.extractIP(req))
	})
}

func TestRateLimiterDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	rl := NewRateLimiterMiddleware(context.Background(), config.RateLimitConfig{Enabled: false, RPS: 1, Burst: 1}, logger)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestEvictIdleLimiters(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	rl := NewRateLimiterMiddleware(context.Background(), config.RateLimitConfig{Enabled: false, RPS: 1, Burst: 1}, logger)

	rl.getLimiter("10.0.0.1")
	rl.getLimiter("10.0.0.2")

	assert.Equal(t, 0, rl.evictIdle(time.Now()))
	assert.Equal(t, 2, rl.evictIdle(time.Now().Add(limiterIdleTTL+time.Second)))

	_, exists := rl.limiters.Load("10.0.0.1")
	assert.False(t, exists)
}
