package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rideaware/internal/core"
	"rideaware/internal/types"
)

// FeedbackStore persists rider feedback. Implemented by
// db.FeedbackRepository.
type FeedbackStore interface {
	Insert(ctx context.Context, fb *types.Feedback) error
	ListByRide(ctx context.Context, rideID string) ([]types.Feedback, error)
}

// FeedbackHandler serves post-ride feedback endpoints.
type FeedbackHandler struct {
	store     FeedbackStore
	validator *core.Validator
	logger    *slog.Logger
}

// NewFeedbackHandler creates a FeedbackHandler.
func NewFeedbackHandler(store FeedbackStore, val *core.Validator, logger *slog.Logger) *FeedbackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackHandler{store: store, validator: val, logger: logger}
}

// RegisterRoutes mounts the feedback endpoints onto the mux.
func (h *FeedbackHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleSubmit)
	r.Get("/{rideID}", h.HandleListByRide)
}

// HandleSubmit handles POST /v1/feedback: records how the ride actually
// felt against the conditions that were forecast.
func (h *FeedbackHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var fb types.Feedback
	if err := core.DecodeJSON(w, r, &fb); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(fb); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.store.Insert(r.Context(), &fb); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("feedback recorded", "device_id", fb.DeviceID, "ride_id", fb.RideID)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: fb})
}

// HandleListByRide handles GET /v1/feedback/{rideID}.
func (h *FeedbackHandler) HandleListByRide(w http.ResponseWriter, r *http.Request) {
	rideID := chi.URLParam(r, "rideID")
	if rideID == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "ride id is required", nil))
		return
	}

	entries, err := h.store.ListByRide(r.Context(), rideID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if entries == nil {
		entries = []types.Feedback{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: entries})
}
