// Package errors defines the application errors returned to HTTP clients.
// Anything that is not an *AppError is reported as an internal error.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels wrapped by the constructors below, for errors.Is checks.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrBadRequest      = errors.New("bad request")
	ErrConflict        = errors.New("resource conflict")
	ErrValidation      = errors.New("validation error")
	ErrUnprocessable   = errors.New("unprocessable entity")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Codes reported in error responses.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeBadRequest      = "BAD_REQUEST"
	CodeConflict        = "CONFLICT"
	CodeValidation      = "VALIDATION_ERROR"
	CodeUnprocessable   = "UNPROCESSABLE"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeInternal        = "INTERNAL_ERROR"
)

// AppError is an error with a client-facing code, message and HTTP status.
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(sentinel error, code, message string, status int) *AppError {
	return &AppError{Err: sentinel, Code: code, Message: message, StatusCode: status}
}

// NotFound reports a missing resource, e.g. an expired extraction job.
func NotFound(resource string) *AppError {
	return newAppError(ErrNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func BadRequest(message string) *AppError {
	return newAppError(ErrBadRequest, CodeBadRequest, message, http.StatusBadRequest)
}

func Conflict(message string) *AppError {
	return newAppError(ErrConflict, CodeConflict, message, http.StatusConflict)
}

// Validation reports invalid input fields. details maps field to problem.
func Validation(details map[string]string) *AppError {
	e := newAppError(ErrValidation, CodeValidation, "validation failed", http.StatusBadRequest)
	e.Details = details
	return e
}

// Unprocessable is returned when input is well-formed but cannot be decoded,
// e.g. text without a recognizable MRZ.
func Unprocessable(message string) *AppError {
	return newAppError(ErrUnprocessable, CodeUnprocessable, message, http.StatusUnprocessableEntity)
}

// UnprocessableCause is Unprocessable with cause kept in the chain, so
// callers can still match it with Is. The message is the cause's text.
func UnprocessableCause(cause error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %w", ErrUnprocessable, cause),
		Code:       CodeUnprocessable,
		Message:    cause.Error(),
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func PayloadTooLarge(limit int64) *AppError {
	return newAppError(ErrPayloadTooLarge, CodePayloadTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
}

// HTTPStatus returns the status code for err: the AppError's own status, or
// 500 for anything else.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
