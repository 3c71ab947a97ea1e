package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rideaware/internal/core"
	"rideaware/internal/types"
)

// HistoryService joins rides with their recorded weather. Implemented by
// history.Service.
type HistoryService interface {
	FetchHistory(ctx context.Context, rideID string) ([]types.Snapshot, error)
	FetchRides(ctx context.Context, deviceID string, limit int) ([]types.RideRecord, error)
}

// HistoryHandler serves ride history lookups.
type HistoryHandler struct {
	service HistoryService
	logger  *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(service HistoryService, logger *slog.Logger) *HistoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryHandler{service: service, logger: logger}
}

// RegisterRoutes mounts the history endpoints onto the mux.
func (h *HistoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/rides/{deviceID}", h.HandleListRides)
	r.Get("/weather/{rideID}", h.HandleRideWeather)
}

// HandleListRides handles GET /v1/history/rides/{deviceID}: the device's
// rides, newest first, hydrated with their weather snapshots. The optional
// limit query parameter caps the listing.
func (h *HistoryHandler) HandleListRides(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	if deviceID == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField, "deviceID path parameter is required", nil))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationInvalidPayload, "limit must be a positive integer", err))
			return
		}
		limit = n
	}

	rides, err := h.service.FetchRides(r.Context(), deviceID, limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if rides == nil {
		rides = []types.RideRecord{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rides})
}

// HandleRideWeather handles GET /v1/history/weather/{rideID}: the weather
// snapshots recorded for one ride. An empty history is a valid response, not
// an error.
func (h *HistoryHandler) HandleRideWeather(w http.ResponseWriter, r *http.Request) {
	rideID := chi.URLParam(r, "rideID")
	if rideID == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField, "rideID path parameter is required", nil))
		return
	}

	snaps, err := h.service.FetchHistory(r.Context(), rideID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if snaps == nil {
		snaps = []types.Snapshot{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: snaps})
}
