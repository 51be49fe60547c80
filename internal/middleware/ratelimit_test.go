package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestLimiter_Allow(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		nilDB       bool
		wantAllowed []bool
		wantErr     bool
	}{
		{name: "test environment bypass", env: "test", nilDB: true, wantAllowed: []bool{true, true, true}},
		{name: "development environment bypass", env: "development", nilDB: true, wantAllowed: []bool{true, true, true}},
		{name: "production counts per window", env: "production", wantAllowed: []bool{true, true, false}},
		{name: "production without redis", env: "production", nilDB: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rdb *redis.Client
			if !tt.nilDB {
				rdb = newMiniredisClient(t)
			}
			l := NewLimiter(rdb, tt.env)

			if tt.wantErr {
				allowed, err := l.Allow(context.Background(), "login", "ip:1.2.3.4", 2, time.Minute)
				assert.Error(t, err)
				assert.False(t, allowed)
				return
			}
			for i, want := range tt.wantAllowed {
				allowed, err := l.Allow(context.Background(), "login", "ip:1.2.3.4", 2, time.Minute)
				require.NoError(t, err)
				assert.Equal(t, want, allowed, "request %d", i+1)
			}
		})
	}
}

func TestLimiter_SeparateKeys(t *testing.T) {
	l := NewLimiter(newMiniredisClient(t), "production")
	ctx := context.Background()

	allowed, err := l.Allow(ctx, "write", "user:1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = l.Allow(ctx, "write", "user:2", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "another caller has its own counter")

	allowed, err = l.Allow(ctx, "login", "user:1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "another resource has its own counter")
}

func TestLimiter_Handler(t *testing.T) {
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }

	do := func(t *testing.T, app *fiber.App) int {
		t.Helper()
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	t.Run("rejects over limit", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", NewLimiter(newMiniredisClient(t), "production").Handler("login", 1, time.Minute, FailClosed), ok)

		assert.Equal(t, http.StatusOK, do(t, app))
		assert.Equal(t, http.StatusTooManyRequests, do(t, app))
	})

	t.Run("fail open without redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", NewLimiter(nil, "production").Handler("write", 1, time.Minute, FailOpen), ok)

		assert.Equal(t, http.StatusOK, do(t, app))
	})

	t.Run("fail closed without redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", NewLimiter(nil, "production").Handler("login", 1, time.Minute, FailClosed), ok)

		assert.Equal(t, http.StatusServiceUnavailable, do(t, app))
	})

	t.Run("bypass in test mode", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", NewLimiter(nil, "test").Handler("login", 1, time.Minute, FailClosed), ok)

		assert.Equal(t, http.StatusOK, do(t, app))
		assert.Equal(t, http.StatusOK, do(t, app))
	})
}
