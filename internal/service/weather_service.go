package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/fakhrymubarak/sampledata-api/internal/config"
	"github.com/fakhrymubarak/sampledata-api/internal/model"
)

const (
	// ForecastDays is the number of entries returned by GetForecast.
	ForecastDays = 5

	// MinTemperatureC is inclusive, MaxTemperatureC is exclusive.
	MinTemperatureC = -20
	MaxTemperatureC = 55

	// DateLayout formats DateFormatted, e.g. "Tue, 20 Oct 2026".
	DateLayout = "Mon, 02 Jan 2006"
)

// Summaries is the fixed vocabulary of forecast descriptors.
var Summaries = []string{
	"Freezing", "Bracing", "Chilly", "Cool", "Mild", "Warm", "Balmy", "Hot", "Sweltering", "Scorching",
}

var ErrClockUnavailable = errors.New("clock unavailable")

// IsSummary reports whether s is one of Summaries.
func IsSummary(s string) bool {
	for _, summary := range Summaries {
		if summary == s {
			return true
		}
	}
	return false
}

// Clock supplies the current time.
type Clock interface {
	Now() (time.Time, error)
}

// RandomSource returns a value in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	IntN(n int) int
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() (time.Time, error) {
	now := time.Now()
	if now.IsZero() {
		return time.Time{}, ErrClockUnavailable
	}
	return now, nil
}

// globalRand uses the package-level generator, which is safe for concurrent use.
type globalRand struct{}

func (globalRand) IntN(n int) int {
	return rand.IntN(n)
}

// WeatherServiceInterface is implemented by anything that can produce a forecast.
type WeatherServiceInterface interface {
	GetForecast(ctx context.Context) ([]model.WeatherForecast, error)
}

// WeatherService generates sample forecasts. It holds no mutable state.
type WeatherService struct {
	Clock Clock
	Rand  RandomSource
}

// NewWeatherService creates a WeatherService backed by the system clock and global random source.
func NewWeatherService() *WeatherService {
	return &WeatherService{
		Clock: SystemClock{},
		Rand:  globalRand{},
	}
}

// GetForecast returns ForecastDays entries starting tomorrow. Each call builds a fresh slice.
func (s *WeatherService) GetForecast(ctx context.Context) ([]model.WeatherForecast, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if s.Clock == nil {
		return nil, ErrClockUnavailable
	}
	now, err := s.Clock.Now()
	if err != nil {
		config.GetLogger().Errorw("Failed to read clock", "error", err)
		return nil, err
	}

	rng := s.Rand
	if rng == nil {
		rng = globalRand{}
	}

	forecasts := make([]model.WeatherForecast, 0, ForecastDays)
	for i := 1; i <= ForecastDays; i++ {
		tempC := MinTemperatureC + rng.IntN(MaxTemperatureC-MinTemperatureC)
		summary := Summaries[rng.IntN(len(Summaries))]
		forecasts = append(forecasts, model.NewWeatherForecast(
			now.AddDate(0, 0, i).Format(DateLayout),
			tempC,
			summary,
		))
	}
	return forecasts, nil
}
