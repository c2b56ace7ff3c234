package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/fakhrymubarak/sampledata-api/internal/config"
	"github.com/fakhrymubarak/sampledata-api/internal/model"
)

var ErrUnknownBackend = errors.New("unknown rate limiter backend")

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// getIP extracts the client's IP address from the HTTP request, considering X-Forwarded-For headers.
func getIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr // fallback
	}
	return ip
}

// RateLimitMiddleware returns an HTTP middleware that enforces per-client rate limiting.
// Requests pass through when the limiter itself fails.
func RateLimitMiddleware(l Limiter, perMinute int) func(http.Handler) http.Handler {
	errMsg := fmt.Sprintf("Rate limit exceeded: max %d requests per minute per user/IP", perMinute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getIP(r)
			allowed, err := l.Allow(r.Context(), ip)
			if err != nil {
				config.GetLogger().Errorw("Rate limiter unavailable, allowing request", "ip", ip, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(model.ErrorResponse(errMsg, "Too Many Requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewLimiterFromConfig builds the limiter selected by rate_limiter.backend.
// The memory limiter's cleanup loop stops when ctx is cancelled.
func NewLimiterFromConfig(ctx context.Context) (Limiter, error) {
	perMinute, burst := config.GetGlobalRateLimiterConfig()
	switch backend := config.GetRateLimiterBackend(); backend {
	case "memory":
		l := NewMemoryLimiter(perMinute, burst)
		go l.StartCleanup(ctx, config.GetRateLimiterCleanupTimeout())
		return l, nil
	case "redis":
		return NewRedisLimiter(redisClient(), int(perMinute)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
