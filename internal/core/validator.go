package core

import (
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"rideaware/internal/types"
)

// Validator wraps go-playground/validator for request payload validation.
// The same instance is shared across handlers; validator.Validate is safe
// for concurrent use.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// ValidateStruct validates a payload against its struct tags. Failures come
// back as a single ErrCodeValidationInvalidPayload AppError whose details map
// each offending field to the rule it broke.
func (v *Validator) ValidateStruct(payload any) error {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return types.NewAppError(types.ErrCodeValidationInvalidPayload, "invalid request payload", err)
	}

	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[fieldPath(fe)] = rule
	}
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationInvalidPayload,
		"request payload failed validation",
		err,
		details,
	)
}

// fieldPath strips the top-level struct name from the validator namespace so
// clients see "Limits.MaxWindSpeed" rather than "Payload.Limits.MaxWindSpeed".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
