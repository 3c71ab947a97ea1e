package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rideaware/internal/core"
	"rideaware/internal/types"
)

// DeviceTokenStore persists push-notification tokens. Implemented by
// db.DeviceTokenRepository.
type DeviceTokenStore interface {
	Upsert(ctx context.Context, tok *types.DeviceToken) error
}

// DeviceHandler serves push-token registration.
type DeviceHandler struct {
	store     DeviceTokenStore
	validator *core.Validator
	logger    *slog.Logger
}

// NewDeviceHandler creates a DeviceHandler.
func NewDeviceHandler(store DeviceTokenStore, val *core.Validator, logger *slog.Logger) *DeviceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeviceHandler{store: store, validator: val, logger: logger}
}

// RegisterRoutes mounts the device endpoints onto the mux.
func (h *DeviceHandler) RegisterRoutes(r chi.Router) {
	r.Post("/token", h.HandleRegisterToken)
}

// HandleRegisterToken handles POST /v1/devices/token: registers or
// refreshes the push token used by the alert scheduler.
func (h *DeviceHandler) HandleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var tok types.DeviceToken
	if err := core.DecodeJSON(w, r, &tok); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(tok); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.store.Upsert(r.Context(), &tok); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("push token registered", "device_id", tok.DeviceID)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: tok})
}
