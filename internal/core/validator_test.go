package core

import (
	"errors"
	"log/slog"
	"testing"

	"rideaware/internal/types"
)

type validatedPayload struct {
	DeviceID string         `validate:"required,min=6,max=64"`
	Limits   embeddedLimits `validate:"required"`
}

type embeddedLimits struct {
	MaxWindSpeed *float64 `validate:"omitempty,gt=0,lte=200"`
}

func TestValidateStruct_Valid(t *testing.T) {
	v := NewValidator(slog.Default())

	wind := 25.0
	payload := validatedPayload{
		DeviceID: "device-abc",
		Limits:   embeddedLimits{MaxWindSpeed: &wind},
	}
	if err := v.ValidateStruct(payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateStruct_FieldDetails(t *testing.T) {
	v := NewValidator(slog.Default())

	wind := -5.0
	payload := validatedPayload{
		DeviceID: "abc", // too short
		Limits:   embeddedLimits{MaxWindSpeed: &wind},
	}

	err := v.ValidateStruct(payload)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeValidationInvalidPayload {
		t.Errorf("expected code %s, got %s", types.ErrCodeValidationInvalidPayload, appErr.Code)
	}
	if appErr.Details["DeviceID"] != "min=6" {
		t.Errorf("expected DeviceID rule min=6, got %v", appErr.Details["DeviceID"])
	}
	// The top-level struct name is stripped from nested field paths.
	if appErr.Details["Limits.MaxWindSpeed"] != "gt=0" {
		t.Errorf("expected nested field rule gt=0, got %v", appErr.Details["Limits.MaxWindSpeed"])
	}
}

func TestValidateStruct_NilLoggerDefaults(t *testing.T) {
	v := NewValidator(nil)
	if err := v.ValidateStruct(validatedPayload{DeviceID: "device-abc"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
