package model

// WeatherForecast is one day of sample forecast data.
type WeatherForecast struct {
	DateFormatted string `json:"dateFormatted"`
	TemperatureC  int    `json:"temperatureC"`
	TemperatureF  int    `json:"temperatureF"`
	Summary       string `json:"summary"`
}

// NewWeatherForecast builds a forecast entry, deriving TemperatureF from tempC.
func NewWeatherForecast(dateFormatted string, tempC int, summary string) WeatherForecast {
	return WeatherForecast{
		DateFormatted: dateFormatted,
		TemperatureC:  tempC,
		TemperatureF:  CelsiusToFahrenheit(tempC),
		Summary:       summary,
	}
}

// CelsiusToFahrenheit returns 32 + c/0.9, truncated toward zero.
func CelsiusToFahrenheit(c int) int {
	return 32 + int(float64(c)/0.9)
}
