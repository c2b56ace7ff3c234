package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fakhrymubarak/sampledata-api/internal/config"
	"github.com/fakhrymubarak/sampledata-api/internal/handler"
	"github.com/fakhrymubarak/sampledata-api/internal/middleware"
	"github.com/fakhrymubarak/sampledata-api/internal/redis"
	"github.com/fakhrymubarak/sampledata-api/internal/service"
	"github.com/fakhrymubarak/sampledata-api/internal/telemetry"
)

// newServer wires service, handler, limiter and router into an http.Server.
func newServer(ctx context.Context) (*http.Server, error) {
	limiter, err := middleware.NewLimiterFromConfig(ctx)
	if err != nil {
		return nil, err
	}
	perMinute, _ := config.GetGlobalRateLimiterConfig()

	sampleDataHandler := handler.NewSampleDataHandler(service.NewWeatherService())
	router := handler.NewRouter(sampleDataHandler, middleware.RateLimitMiddleware(limiter, int(perMinute)))

	return &http.Server{
		Addr:              ":" + config.GetServerPort(),
		Handler:           router,
		ReadHeaderTimeout: config.GetServerTimeoutDuration("read_header_timeout", 15*time.Second),
		ReadTimeout:       config.GetServerTimeoutDuration("read_timeout", 15*time.Second),
		WriteTimeout:      config.GetServerTimeoutDuration("write_timeout", 10*time.Second),
		IdleTimeout:       config.GetServerTimeoutDuration("idle_timeout", 30*time.Second),
	}, nil
}

func main() {
	logger := config.GetLogger()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, config.GetServiceName(), config.GetOTLPEndpoint())
	if err != nil {
		logger.Fatalw("Failed to initialise tracing", "error", err)
	}

	if config.GetRateLimiterBackend() == "redis" {
		if err := redis.Ping(ctx); err != nil {
			logger.Warnw("Redis unreachable, rate limiter will fail open", "addr", config.GetRedisAddr(), "error", err)
		}
		defer func() { _ = redis.Close() }()
	}

	srv, err := newServer(ctx)
	if err != nil {
		logger.Fatalw("Failed to build server", "error", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infow("Sample data API server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Errorw("Server error", "error", err)
	case <-ctx.Done():
		logger.Infow("Shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetServerTimeoutDuration("shutdown_timeout", 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("Error during shutdown", "error", err)
		_ = srv.Close()
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Errorw("Error flushing traces", "error", err)
	}
	logger.Infow("Server stopped")
}
