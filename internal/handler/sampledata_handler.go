package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fakhrymubarak/sampledata-api/internal/config"
	"github.com/fakhrymubarak/sampledata-api/internal/model"
	"github.com/fakhrymubarak/sampledata-api/internal/service"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "sampledata-api/handler"

type SampleDataHandler struct {
	WeatherService service.WeatherServiceInterface
}

func NewSampleDataHandler(svc ...service.WeatherServiceInterface) *SampleDataHandler {
	var weatherService service.WeatherServiceInterface
	if len(svc) > 0 && svc[0] != nil {
		weatherService = svc[0]
	} else {
		weatherService = service.NewWeatherService()
	}
	return &SampleDataHandler{
		WeatherService: weatherService,
	}
}

func (h *SampleDataHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		config.GetLogger().Errorw("could not encode json", "error", err)
	}
}

// HandleWeatherForecasts responds with the generated forecasts as a bare JSON array.
func (h *SampleDataHandler) HandleWeatherForecasts(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "sampledata: weather-forecasts")
	defer span.End()

	forecasts, err := h.WeatherService.GetForecast(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to generate weather forecast")
		config.GetLogger().Errorw("Failed to generate weather forecast", "error", err)
		h.writeJSONResponse(w, http.StatusInternalServerError,
			model.ErrorResponse("Failed to generate weather forecast", "Error"))
		return
	}

	span.SetAttributes(attribute.Int("forecast.count", len(forecasts)))
	span.SetStatus(codes.Ok, "")
	h.writeJSONResponse(w, http.StatusOK, forecasts)
}
