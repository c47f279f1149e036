package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Subject    string `json:"subject,omitempty"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := e.Message
	if e.Subject != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Subject)
	}
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", msg, e.Internal)
	}

	return msg
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is reports whether target is an AppError of the same kind. Copies produced by the
// constructors below match their sentinel through errors.Is.
func (e *AppError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*AppError)
	if !ok || t == nil {
		return false
	}
	return t.Code == e.Code
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithSubject returns a copy of the AppError naming the offending entity.
func (e *AppError) WithSubject(subject string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Subject = subject
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Permission denied",
		StatusCode: http.StatusForbidden,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// Access-control error kinds. Callers match them with errors.Is.
var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrInvalidInput = &AppError{
		Code:       "INVALID_INPUT",
		Message:    "Invalid input",
		StatusCode: http.StatusBadRequest,
	}

	ErrAlreadyResolved = &AppError{
		Code:       "ALREADY_RESOLVED",
		Message:    "Change request is already resolved",
		StatusCode: http.StatusConflict,
	}

	ErrSelfApprovalForbidden = &AppError{
		Code:       "SELF_APPROVAL_FORBIDDEN",
		Message:    "Requesters cannot approve their own change requests",
		StatusCode: http.StatusForbidden,
	}

	ErrStoreUnavailable = &AppError{
		Code:       "STORE_UNAVAILABLE",
		Message:    "Store unavailable",
		StatusCode: http.StatusServiceUnavailable,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NotFound reports a missing entity of the given kind, e.g. NotFound("profile", "12").
func NotFound(kind, id string) *AppError {
	cpy := *ErrNotFound
	cpy.Message = kind + " not found"
	cpy.Subject = id
	return &cpy
}

// InvalidInput reports a malformed payload or an unknown reference.
func InvalidInput(message, subject string) *AppError {
	cpy := *ErrInvalidInput
	cpy.Message = message
	cpy.Subject = subject
	return &cpy
}

// AlreadyResolved reports a change request that left the pending state.
func AlreadyResolved(requestID, status string) *AppError {
	cpy := *ErrAlreadyResolved
	cpy.Message = "change request is already " + status
	cpy.Subject = requestID
	return &cpy
}

// SelfApprovalForbidden reports a segregation-of-duties violation.
func SelfApprovalForbidden(requestID string) *AppError {
	return ErrSelfApprovalForbidden.WithSubject(requestID)
}

// StoreUnavailable wraps a persistence failure. Returns nil for a nil error.
func StoreUnavailable(op string, err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	cpy := *ErrStoreUnavailable
	cpy.Message = "store unavailable: " + op
	cpy.Internal = err
	return &cpy
}

// Retryable reports whether a caller may reasonably retry the failed operation.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}
