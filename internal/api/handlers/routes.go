package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rideaware/internal/core"
	"rideaware/internal/types"
)

// RouteStore is the route persistence the route handler needs. Implemented
// by db.RouteRepository.
type RouteStore interface {
	Upsert(ctx context.Context, route *types.Route) error
	GetByDevice(ctx context.Context, deviceID string) (*types.Route, error)
}

// RouteHandler serves saving and fetching a device's commute route.
type RouteHandler struct {
	routes    RouteStore
	validator *core.Validator
	logger    *slog.Logger
}

// NewRouteHandler creates a RouteHandler.
func NewRouteHandler(routes RouteStore, val *core.Validator, logger *slog.Logger) *RouteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RouteHandler{routes: routes, validator: val, logger: logger}
}

// RegisterRoutes mounts the route endpoints onto the mux.
func (h *RouteHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleUpsert)
	r.Get("/{deviceID}", h.HandleGet)
}

// HandleUpsert handles POST /v1/routes: replaces the device's saved route.
func (h *RouteHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var route types.Route
	if err := core.DecodeJSON(w, r, &route); err != nil {
		core.Error(w, r, err)
		return
	}
	if route.DeviceID == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField, "device_id is required", nil))
		return
	}
	if len(route.Points) < 2 {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidPayload, "a route needs at least two points", nil))
		return
	}
	if err := h.validator.ValidateStruct(route); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.routes.Upsert(r.Context(), &route); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("route saved",
		"device_id", route.DeviceID,
		"points", len(route.Points),
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: route})
}

// HandleGet handles GET /v1/routes/{deviceID}.
func (h *RouteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	if deviceID == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField, "deviceID path parameter is required", nil))
		return
	}

	route, err := h.routes.GetByDevice(r.Context(), deviceID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: route})
}
