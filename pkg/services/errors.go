package services

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to the API layer. Unknown-entity errors map to
// 404, access denial to 403, signature failures to 401.
var (
	ErrUserNotFound      = errors.New("unknown user")
	ErrRoleNotFound      = errors.New("unknown role")
	ErrPhaseNotFound     = errors.New("unknown phase")
	ErrProjectNotFound   = errors.New("unknown project")
	ErrEmbeddingNotFound = errors.New("unknown embedding")
	ErrScheduleNotFound  = errors.New("unknown schedule")

	ErrAccessDenied  = errors.New("access denied")
	ErrInvalidAction = errors.New("invalid action")

	ErrInvalidSignature     = errors.New("invalid signature")
	ErrMissingSigningSecret = errors.New("signing secret not configured")
)

// ValidationError represents a validation failure with field context.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewValidationError creates a validation error for a specific field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
