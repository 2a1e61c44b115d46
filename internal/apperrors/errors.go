package apperrors

import (
	"errors"
	"strings"
)

// Common errors
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("invalid token")
)

// Student errors
var (
	ErrStudentNotFound     = &CustomError{Err: ErrResourceNotFound, Message: "Student not found"}
	ErrEmailAlreadyExists  = &CustomError{Err: ErrConflict, Message: "Email already exists"}
	ErrNoStudentsToExport  = &CustomError{Err: ErrResourceNotFound, Message: "No students found to export"}
	ErrUserNotFound        = &CustomError{Err: ErrResourceNotFound, Message: "User not found"}
	ErrUserEmailRegistered = &CustomError{Err: ErrConflict, Message: "User already exists"}
)

// CustomError pairs a sentinel with a message that is safe to show to API clients.
type CustomError struct {
	Err     error
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewResourceNotFoundError creates a not-found error with a client-facing message.
func NewResourceNotFoundError(message string) error {
	return &CustomError{Err: ErrResourceNotFound, Message: message}
}

// NewConflictError creates a conflict error with a client-facing message.
func NewConflictError(message string) error {
	return &CustomError{Err: ErrConflict, Message: message}
}

// NewBadRequestError creates a bad-request error with a client-facing message.
func NewBadRequestError(message string) error {
	return &CustomError{Err: ErrBadRequest, Message: message}
}

// FieldError describes a single failed rule on a request field.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError carries every field-level failure found in one request.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Path+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError builds a ValidationError from field errors.
func NewValidationError(errs ...FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// Message returns the client-facing message of err, or fallback when err
// carries no CustomError.
func Message(err error, fallback string) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return fallback
}
