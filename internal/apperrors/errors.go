// Package apperrors provides coded application errors shared across
// repositories, services and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for propagation decisions and HTTP mapping.
type Code string

const (
	ErrCodeValidation Code = "validation"
	ErrCodeNotFound   Code = "not_found"
	ErrCodeConflict   Code = "conflict"
	ErrCodeExternal   Code = "external"
	ErrCodeInternal   Code = "internal"
)

// AppError is an error with a classification code.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError with the given code and message.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap annotates err with a code and message, preserving the cause.
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// InvalidInput reports a validation failure on a named field.
func InvalidInput(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: fmt.Sprintf("%s: %s", field, message)}
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s not found: %s", resource, id)}
}

// CodeOf extracts the code from err, defaulting to internal.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps an error to the HTTP status the handler should return.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
