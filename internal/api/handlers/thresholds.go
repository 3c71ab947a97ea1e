// Package handlers contains the HTTP handler implementations for the
// RideAware API. Each handler declares the service interfaces it consumes
// locally and maps requests onto them; transport concerns stay here, domain
// logic stays in the services.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rideaware/internal/commute"
	"rideaware/internal/core"
	"rideaware/internal/types"
)

// ThresholdWindowStore is the ride window persistence the threshold handler
// needs. Implemented by db.WindowRepository.
type ThresholdWindowStore interface {
	Upsert(ctx context.Context, rw *types.RideWindow) error
	GetCurrent(ctx context.Context, deviceID string, date string) (*types.RideWindow, error)
	Delete(ctx context.Context, rideID string) error
}

// RideStarter arms and disarms the snapshot and alert schedulers for a ride
// window. Implemented by scheduler.Coordinator.
type RideStarter interface {
	StartRide(ctx context.Context, rw *types.RideWindow) (commute.Window, error)
	StopRide(rideID string)
}

// ThresholdHandler serves threshold upserts and lookups. Upserting a
// threshold window persists it and immediately arms collection and alerts
// for the ride.
type ThresholdHandler struct {
	windows   ThresholdWindowStore
	starter   RideStarter
	validator *core.Validator
	logger    *slog.Logger

	// background is what scheduler tasks outlive the request on.
	background context.Context
}

// NewThresholdHandler creates a ThresholdHandler. background is the
// process-lifetime context scheduler tasks are bound to.
func NewThresholdHandler(background context.Context, windows ThresholdWindowStore, starter RideStarter, val *core.Validator, logger *slog.Logger) *ThresholdHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if background == nil {
		background = context.Background()
	}
	return &ThresholdHandler{
		windows:    windows,
		starter:    starter,
		validator:  val,
		logger:     logger,
		background: background,
	}
}

// RegisterRoutes mounts the threshold endpoints onto the mux.
func (h *ThresholdHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleUpsert)
	r.Get("/{deviceID}", h.HandleGetCurrent)
	r.Delete("/ride/{rideID}", h.HandleDelete)
}

// thresholdResponse is the upsert result: the stable ride id plus the
// resolved absolute window the schedulers will honor.
type thresholdResponse struct {
	RideID      string    `json:"ride_id"`
	DeviceID    string    `json:"device_id"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

// HandleUpsert handles POST /v1/thresholds.
//  1. Decode and validate the ride window payload.
//  2. Upsert the window; the stored ride id is stable across re-submissions.
//  3. Arm snapshot collection and alerts for the ride.
func (h *ThresholdHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var rw types.RideWindow
	if err := core.DecodeJSON(w, r, &rw); err != nil {
		core.Error(w, r, err)
		return
	}
	rw.RideID = "" // assigned by the store, never by the client
	if err := h.validator.ValidateStruct(rw); err != nil {
		core.Error(w, r, err)
		return
	}
	// Reject unparseable windows before persisting anything.
	if _, err := commute.WindowFor(rw); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.windows.Upsert(r.Context(), &rw); err != nil {
		core.Error(w, r, err)
		return
	}

	win, err := h.starter.StartRide(h.background, &rw)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("threshold window upserted",
		"ride_id", rw.RideID,
		"device_id", rw.DeviceID,
		"window_start", win.Start.Format(time.RFC3339),
		"window_end", win.End.Format(time.RFC3339),
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: thresholdResponse{
		RideID:      rw.RideID,
		DeviceID:    rw.DeviceID,
		WindowStart: win.Start,
		WindowEnd:   win.End,
	}})
}

// HandleGetCurrent handles GET /v1/thresholds/{deviceID}: the device's
// window for today, or its latest window when today has none.
func (h *ThresholdHandler) HandleGetCurrent(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	if deviceID == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField, "deviceID path parameter is required", nil))
		return
	}

	rw, err := h.windows.GetCurrent(r.Context(), deviceID, time.Now().UTC().Format("2006-01-02"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rw})
}

// HandleDelete handles DELETE /v1/thresholds/ride/{rideID}: removes the window
// and cancels its collection and alert tasks. Snapshots already recorded for
// the ride are kept.
func (h *ThresholdHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	rideID := chi.URLParam(r, "rideID")
	if rideID == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField, "rideID path parameter is required", nil))
		return
	}

	if err := h.windows.Delete(r.Context(), rideID); err != nil {
		core.Error(w, r, err)
		return
	}
	h.starter.StopRide(rideID)

	h.logger.Info("threshold window deleted", "ride_id", rideID)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]string{"ride_id": rideID}})
}
