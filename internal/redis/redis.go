package redis

import (
	"context"
	"sync"

	"github.com/fakhrymubarak/sampledata-api/internal/config"
	redisv9 "github.com/redis/go-redis/v9"
)

var (
	client *redisv9.Client
	once   sync.Once
	mu     sync.Mutex
)

// GetClient returns the shared client for redis.addr, creating it on first use.
func GetClient() *redisv9.Client {
	mu.Lock()
	defer mu.Unlock()
	once.Do(func() {
		client = redisv9.NewClient(&redisv9.Options{
			Addr: config.GetRedisAddr(),
		})
	})
	return client
}

// Ping checks that the shared client can reach the server.
func Ping(ctx context.Context) error {
	return GetClient().Ping(ctx).Err()
}

// Close closes the shared client if it was created.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if client == nil {
		return nil
	}
	err := client.Close()
	once = sync.Once{}
	client = nil
	return err
}

// ResetClientForTest resets the Redis client singleton. Use only in tests.
func ResetClientForTest() {
	mu.Lock()
	defer mu.Unlock()
	once = sync.Once{}
	client = nil
}
