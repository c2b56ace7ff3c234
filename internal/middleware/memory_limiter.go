package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// the visitor holds the rate limiter and last seen time for a specific IP address.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per client in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewMemoryLimiter allows perMinute requests per client with the given burst.
func NewMemoryLimiter(perMinute float64, burst int) *MemoryLimiter {
	return &MemoryLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perMinute / 60.0),
		burst:    burst,
		now:      time.Now,
	}
}

// getLimiter returns the rate limiter for the given key, creating one if it does not exist.
func (m *MemoryLimiter) getLimiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, exists := m.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(m.limit, m.burst)
		m.visitors[key] = &visitor{limiter, m.now()}
		return limiter
	}
	v.lastSeen = m.now()
	return v.limiter
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	return m.getLimiter(key).Allow(), nil
}

// Cleanup removes visitors that have not been seen for longer than maxIdle.
func (m *MemoryLimiter) Cleanup(maxIdle time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, v := range m.visitors {
		if m.now().Sub(v.lastSeen) > maxIdle {
			delete(m.visitors, key)
		}
	}
}

// StartCleanup runs Cleanup every minute until ctx is done.
func (m *MemoryLimiter) StartCleanup(ctx context.Context, maxIdle time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup(maxIdle)
		}
	}
}

// Reset clears all visitor state. Used primarily for testing.
func (m *MemoryLimiter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.visitors {
		delete(m.visitors, k)
	}
}

func (m *MemoryLimiter) visitorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visitors)
}
