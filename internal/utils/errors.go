package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain-level errors used by the service layer. Controllers match them with
// errors.Is and translate to HTTP through ToAppError.
var (
	ErrValidation       = errors.New("validation_error")
	ErrPermissionDenied = errors.New("permission_denied")
	ErrNotFound         = errors.New("not_found")
	ErrIntegrity        = errors.New("integrity_error")

	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrDuplicateUnitNumber = fmt.Errorf("duplicate_unit_number: %w", ErrIntegrity)
	ErrMembershipExists    = fmt.Errorf("membership_exists: %w", ErrIntegrity)
	ErrNotArchivable       = errors.New("work_order_not_archivable")
	ErrSnoozeInPast        = errors.New("snooze_in_past")

	ErrNotificationNotFound = fmt.Errorf("notification_not_found: %w", ErrNotFound)

	// For concurrency conflicts
	ErrRowVersionConflict = errors.New("row_version_conflict")
	ErrNoRowsUpdated      = errors.New("no_rows_updated")
)

// ValidationError is a user-correctable input problem. Field is empty for
// errors that apply to the whole payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AppError carries an HTTP-ready failure from services to controllers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// ToAppError maps domain errors onto status codes. NotFound is used for
// resources outside the caller's visibility so their existence is not leaked.
func ToAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return &AppError{StatusCode: http.StatusBadRequest, Code: ErrCodeValidation, Message: vErr.Error(), Err: err}
	case errors.Is(err, ErrSnoozeInPast):
		return &AppError{StatusCode: http.StatusBadRequest, Code: ErrCodeValidation, Message: "Snooze date cannot be in the past", Err: err}
	case errors.Is(err, ErrNotArchivable):
		return &AppError{StatusCode: http.StatusConflict, Code: ErrCodeConflict, Message: "Only completed work orders can be archived", Err: err}
	case errors.Is(err, ErrUnauthenticated):
		return &AppError{StatusCode: http.StatusUnauthorized, Code: ErrCodeUnauthorized, Message: "Authentication required", Err: err}
	case errors.Is(err, ErrPermissionDenied):
		return &AppError{StatusCode: http.StatusForbidden, Code: ErrCodeForbidden, Message: "Permission denied", Err: err}
	case errors.Is(err, ErrNotFound):
		return &AppError{StatusCode: http.StatusNotFound, Code: ErrCodeNotFound, Message: "Not found", Err: err}
	case errors.Is(err, ErrIntegrity):
		return &AppError{StatusCode: http.StatusConflict, Code: ErrCodeConflict, Message: "Conflicts with existing data", Err: err}
	case errors.Is(err, ErrRowVersionConflict):
		return &AppError{StatusCode: http.StatusConflict, Code: ErrCodeRowVersionConflict, Message: "Record was modified concurrently", Err: err}
	default:
		return &AppError{StatusCode: http.StatusInternalServerError, Code: ErrCodeInternal, Message: "An unexpected error occurred", Err: err}
	}
}

// HandleAppError centralizes responding to service errors.
func HandleAppError(w http.ResponseWriter, err error) {
	appErr := ToAppError(err)
	RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
}
