package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rideaware/internal/commute"
	"rideaware/internal/core"
	"rideaware/internal/types"
)

// CommuteStatusService evaluates today's morning and evening commute legs.
// Implemented by commute.StatusService.
type CommuteStatusService interface {
	CommuteStatus(ctx context.Context, deviceID string) (*commute.Status, error)
}

// StatusHandler serves the commute outlook endpoint.
type StatusHandler struct {
	service CommuteStatusService
	logger  *slog.Logger
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(service CommuteStatusService, logger *slog.Logger) *StatusHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusHandler{service: service, logger: logger}
}

// RegisterRoutes mounts the status endpoint onto the mux.
func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{deviceID}", h.HandleGet)
}

// HandleGet handles GET /v1/commute-status/{deviceID}.
func (h *StatusHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	if deviceID == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField, "deviceID path parameter is required", nil))
		return
	}

	status, err := h.service.CommuteStatus(r.Context(), deviceID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: status})
}
