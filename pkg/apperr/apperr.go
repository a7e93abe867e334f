// Package apperr defines the closed set of error kinds surfaced by the
// game engine. Callers branch on Code rather than on error string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error category.
type Code string

const (
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvalidState Code = "INVALID_STATE"
	CodeUpstream     Code = "UPSTREAM_UNAVAILABLE"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// Error is the engine's error value. Retryable marks errors the caller may
// safely retry, such as generator-chain exhaustion.
type Error struct {
	Code      Code           `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Detail    map[string]any `json:"detail,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// HTTPStatus maps the error code to an HTTP status for the API layer.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState:
		return http.StatusConflict
	case CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func BadRequest(message string, detail map[string]any) *Error {
	return &Error{Code: CodeBadRequest, Message: message, Detail: detail}
}

func NotFound(message string, detail map[string]any) *Error {
	return &Error{Code: CodeNotFound, Message: message, Detail: detail}
}

// InvalidState reports an action attempted in the wrong game status. The
// offending status is always attached so clients can recover.
func InvalidState(message string, status string) *Error {
	return &Error{
		Code:    CodeInvalidState,
		Message: message,
		Detail:  map[string]any{"status": status},
	}
}

// Upstream reports generator-chain exhaustion. These are the only retryable
// errors the engine produces.
func Upstream(message string, cause error) *Error {
	return &Error{Code: CodeUpstream, Message: message, Retryable: true, cause: cause}
}

func Internal(message string, detail map[string]any) *Error {
	return &Error{Code: CodeInternal, Message: message, Detail: detail}
}

// WithDetail attaches a detail entry and returns the same error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Detail == nil {
		e.Detail = make(map[string]any)
	}
	e.Detail[key] = value
	return e
}

// From extracts an *Error from err, or wraps err as an internal error.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Code: CodeInternal, Message: "unexpected error", cause: err}
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
