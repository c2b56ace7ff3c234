package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Limiter = (*MemoryLimiter)(nil)
	_ Limiter = (*RedisLimiter)(nil)
	_ Limiter = (*failingLimiter)(nil)
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("backend down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redisv9.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRateLimitMiddleware_Burst(t *testing.T) {
	mw := RateLimitMiddleware(NewMemoryLimiter(10, 2), 10)(okHandler())
	ip := "2.3.4.5:2345"

	// 2 requests allowed instantly (burst)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/sampledata/weatherforecasts", nil)
		req.RemoteAddr = ip
		mw.ServeHTTP(w, req)
		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d on request %d", w.Result().StatusCode, i+1)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/sampledata/weatherforecasts", nil)
	req.RemoteAddr = ip
	mw.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d on 3rd request", w.Result().StatusCode)
	}
	var resp map[string]interface{}
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if !strings.Contains(resp["error"].(string), "Rate limit exceeded") {
		t.Errorf("expected rate limit error, got %v", resp["error"])
	}
	if resp["message"] != "Too Many Requests" {
		t.Errorf("expected Too Many Requests message, got %v", resp["message"])
	}
}

func TestRateLimitMiddleware_PerClient(t *testing.T) {
	mw := RateLimitMiddleware(NewMemoryLimiter(10, 1), 10)(okHandler())

	for _, ip := range []string{"1.1.1.1:1", "2.2.2.2:2", "3.3.3.3:3"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = ip
		mw.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "first request from %s", ip)
	}
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	mw := RateLimitMiddleware(failingLimiter{}, 10)(okHandler())

	w := httptest.NewRecorder()
	mw.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{name: "remote addr with port", remoteAddr: "10.0.0.1:5555", want: "10.0.0.1"},
		{name: "forwarded for wins", remoteAddr: "10.0.0.1:5555", xff: "203.0.113.7, 10.0.0.2", want: "203.0.113.7"},
		{name: "remote addr without port", remoteAddr: "10.0.0.9", want: "10.0.0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, getIP(req))
		})
	}
}

func TestMemoryLimiter_Cleanup(t *testing.T) {
	l := NewMemoryLimiter(60, 5)
	current := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }

	_, _ = l.Allow(context.Background(), "stale")
	current = current.Add(2 * time.Minute)
	_, _ = l.Allow(context.Background(), "fresh")
	current = current.Add(2 * time.Minute)

	l.Cleanup(3 * time.Minute)
	assert.Equal(t, 1, l.visitorCount())

	l.Reset()
	assert.Equal(t, 0, l.visitorCount())
}

func TestMemoryLimiter_StartCleanupStops(t *testing.T) {
	l := NewMemoryLimiter(60, 5)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.StartCleanup(ctx, time.Minute)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop after cancel")
	}
}

func TestRedisLimiter_Allow(t *testing.T) {
	mr, client := newMiniredisClient(t)
	l := NewRedisLimiter(client, 3)
	l.now = func() time.Time { return time.Date(2026, time.October, 19, 12, 0, 30, 0, time.UTC) }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i+1)
	}
	allowed, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, allowed)

	// other clients have their own counter
	allowed, err = l.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, allowed)

	key := l.windowKey("1.2.3.4")
	assert.True(t, strings.HasPrefix(key, rateLimitKeyPrefix+"1.2.3.4:"))
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "4", got)
	assert.Equal(t, time.Minute, mr.TTL(key))
}

func TestRedisLimiter_NewWindowResets(t *testing.T) {
	_, client := newMiniredisClient(t)
	l := NewRedisLimiter(client, 1)
	current := time.Date(2026, time.October, 19, 12, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return current }
	ctx := context.Background()

	allowed, _ := l.Allow(ctx, "ip")
	assert.True(t, allowed)
	allowed, _ = l.Allow(ctx, "ip")
	assert.False(t, allowed)

	current = current.Add(time.Minute)
	allowed, err := l.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLimiter_ServerDown(t *testing.T) {
	mr, client := newMiniredisClient(t)
	mr.Close()

	_, err := NewRedisLimiter(client, 1).Allow(context.Background(), "ip")
	assert.Error(t, err)
}

func TestNewLimiterFromConfig(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	viper.Set("rate_limiter.backend", "memory")
	l, err := NewLimiterFromConfig(ctx)
	require.NoError(t, err)
	assert.IsType(t, &MemoryLimiter{}, l)

	_, client := newMiniredisClient(t)
	prev := redisClient
	redisClient = func() redisv9.Cmdable { return client }
	t.Cleanup(func() { redisClient = prev })

	viper.Set("rate_limiter.backend", "redis")
	l, err = NewLimiterFromConfig(ctx)
	require.NoError(t, err)
	assert.IsType(t, &RedisLimiter{}, l)

	viper.Set("rate_limiter.backend", "carrier-pigeon")
	_, err = NewLimiterFromConfig(ctx)
	assert.ErrorIs(t, err, ErrUnknownBackend)

	viper.Set("rate_limiter.backend", "memory")
}
