package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rideaware/internal/commute"
	"rideaware/internal/core"
	"rideaware/internal/eval"
	"rideaware/internal/types"
)

// RouteWeatherEvaluator checks weather along a route. Implemented by
// commute.RouteWeatherService.
type RouteWeatherEvaluator interface {
	EvaluateRoute(ctx context.Context, points []types.GeoPoint, at time.Time, limits types.ComfortLimits) (eval.RouteResult, error)
	SurveyWind(ctx context.Context, points []types.GeoPoint, at time.Time) ([]commute.WindSample, error)
}

// RouteWeatherHandler serves route evaluation and wind survey endpoints.
type RouteWeatherHandler struct {
	service   RouteWeatherEvaluator
	validator *core.Validator
	logger    *slog.Logger
}

// NewRouteWeatherHandler creates a RouteWeatherHandler.
func NewRouteWeatherHandler(service RouteWeatherEvaluator, val *core.Validator, logger *slog.Logger) *RouteWeatherHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RouteWeatherHandler{service: service, validator: val, logger: logger}
}

// RegisterRoutes mounts the route weather endpoints onto the mux.
func (h *RouteWeatherHandler) RegisterRoutes(r chi.Router) {
	r.Post("/evaluate", h.HandleEvaluate)
	r.Post("/wind", h.HandleWindSurvey)
}

// routeWeatherRequest is the evaluation payload. A zero time means "now".
type routeWeatherRequest struct {
	Points []types.GeoPoint    `json:"points" validate:"required,min=1,dive"`
	Time   time.Time           `json:"time"`
	Limits types.ComfortLimits `json:"weather_limits"`
}

// HandleEvaluate handles POST /v1/route-weather/evaluate: one forecast
// sample per point, checked against the limits with wind relative to the
// route bearing.
func (h *RouteWeatherHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req routeWeatherRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	at := req.Time
	if at.IsZero() {
		at = time.Now()
	}

	res, err := h.service.EvaluateRoute(r.Context(), req.Points, at, req.Limits)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: res})
}

// windSurveyRequest is the wind survey payload.
type windSurveyRequest struct {
	Points []types.GeoPoint `json:"points" validate:"required,min=1,dive"`
}

// HandleWindSurvey handles POST /v1/route-weather/wind: wind direction at
// kilometer samples along the route.
func (h *RouteWeatherHandler) HandleWindSurvey(w http.ResponseWriter, r *http.Request) {
	var req windSurveyRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	samples, err := h.service.SurveyWind(r.Context(), req.Points, time.Now())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if samples == nil {
		samples = []commute.WindSample{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: samples})
}
