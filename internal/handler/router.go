package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RoutePattern is the only route served.
const RoutePattern = "/api/sampledata/weatherforecasts"

// NewRouter mounts h on a chi router. Extra middlewares run after the standard chi stack.
func NewRouter(h *SampleDataHandler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middlewares...)

	r.Get(RoutePattern, h.HandleWeatherForecasts)

	return otelhttp.NewHandler(r, "sampledata-api-server")
}
