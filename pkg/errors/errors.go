// Package errors carries typed application errors so handlers can pick a
// status code without string matching.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeBadRequest   ErrorType = "BAD_REQUEST"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeInternal     ErrorType = "INTERNAL"
)

// AppError is an error with a type and a message that is safe to show a client.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(t ErrorType, message string) error {
	return &AppError{Type: t, Message: message}
}

func Wrap(t ErrorType, message string, err error) error {
	return &AppError{Type: t, Message: message, Err: err}
}

func NotFound(message string) error     { return New(ErrorTypeNotFound, message) }
func BadRequest(message string) error   { return New(ErrorTypeBadRequest, message) }
func Conflict(message string) error     { return New(ErrorTypeConflict, message) }
func Unauthorized(message string) error { return New(ErrorTypeUnauthorized, message) }
func Forbidden(message string) error    { return New(ErrorTypeForbidden, message) }
func Internal(message string) error     { return New(ErrorTypeInternal, message) }

// TypeOf returns the type of the outermost AppError in err's chain, or the
// empty string when there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

func IsNotFound(err error) bool     { return TypeOf(err) == ErrorTypeNotFound }
func IsBadRequest(err error) bool   { return TypeOf(err) == ErrorTypeBadRequest }
func IsConflict(err error) bool     { return TypeOf(err) == ErrorTypeConflict }
func IsUnauthorized(err error) bool { return TypeOf(err) == ErrorTypeUnauthorized }
func IsForbidden(err error) bool    { return TypeOf(err) == ErrorTypeForbidden }
func IsInternal(err error) bool     { return TypeOf(err) == ErrorTypeInternal }

// HTTPStatus maps err to a response code. Untyped errors are store or
// programming failures and map to 500.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeBadRequest:
		return http.StatusBadRequest
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text a client may see for err. Internal details never
// leak; untyped and internal errors get a generic message.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type != ErrorTypeInternal {
		return appErr.Message
	}
	return "internal error"
}
