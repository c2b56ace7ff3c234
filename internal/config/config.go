package config

import (
	"flag"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var once sync.Once
var logger *zap.SugaredLogger
var loggerOnce sync.Once

// isTestRun returns true if the current process is a Go test binary.
func isTestRun() bool {
	return flag.Lookup("test.v") != nil || filepath.Ext(os.Args[0]) == ".test"
}

func initConfig() {
	once.Do(func() {
		_ = godotenv.Load()

		root, err := getProjectRoot()
		if err != nil {
			GetLogger().Errorw("Error finding project root", "error", err)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
		viper.AddConfigPath(root)
		if err = viper.ReadInConfig(); err != nil {
			GetLogger().Errorw("Error reading config file", "error", err)
		}

		if isTestRun() {
			viper.SetConfigName("config_test")
			if err = viper.MergeInConfig(); err != nil {
				GetLogger().Errorw("Error merging test config file", "error", err)
			}
		}
	})
}

func getProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// GetServerPort returns the listen port. PORT in the environment wins over server.port.
func GetServerPort() string {
	initConfig()
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	port := viper.GetString("server.port")
	if port == "" {
		port = "8080"
	}
	return port
}

func GetServerTimeout(key string) string {
	initConfig()
	return viper.GetString("server." + key)
}

// GetServerTimeoutDuration parses server.<key> as a duration.
func GetServerTimeoutDuration(key string, fallback time.Duration) time.Duration {
	return GetDuration("server."+key, fallback)
}

// GetDuration reads key as a duration string, returning fallback when unset or invalid.
func GetDuration(key string, fallback time.Duration) time.Duration {
	initConfig()
	durStr := viper.GetString(key)
	if durStr == "" {
		return fallback
	}
	dur, err := time.ParseDuration(durStr)
	if err != nil {
		GetLogger().Warnw("Invalid duration in config, using fallback", "key", key, "value", durStr, "fallback", fallback)
		return fallback
	}
	return dur
}

func GetRedisAddr() string {
	initConfig()
	return viper.GetString("redis.addr")
}

// GetRateLimiterBackend returns "memory" or "redis". Defaults to "memory".
func GetRateLimiterBackend() string {
	initConfig()
	backend := viper.GetString("rate_limiter.backend")
	if backend == "" {
		return "memory"
	}
	return backend
}

// GetRateLimiterCleanupTimeout returns the rate limiter cleanup timeout as a time.Duration.
// Defaults to 3m if not set or invalid.
func GetRateLimiterCleanupTimeout() time.Duration {
	return GetDuration("rate_limiter.cleanup_timeout", 3*time.Minute)
}

// GetGlobalRateLimiterConfig returns the per-minute rate and burst for the per-client limiter.
func GetGlobalRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.global.rate")
	if rate == 0 {
		rate = 60
	}
	burst = viper.GetInt("rate_limiter.global.burst")
	if burst == 0 {
		burst = 10
	}
	return
}

func GetServiceName() string {
	initConfig()
	name := viper.GetString("telemetry.service_name")
	if name == "" {
		name = "sampledata-api"
	}
	return name
}

// GetOTLPEndpoint returns the OTLP/gRPC collector endpoint. Empty disables trace export.
func GetOTLPEndpoint() string {
	initConfig()
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
}

// ReloadConfigForTest resets the config singleton and reloads Viper config. Use only in tests.
func ReloadConfigForTest() {
	once = sync.Once{}
	initConfig()
}

func GetLogger() *zap.SugaredLogger {
	loggerOnce.Do(func() {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		logger = l.Sugar()
	})
	return logger
}
