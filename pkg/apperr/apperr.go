package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so handlers can map it to an HTTP status
// and a machine-readable code without string matching.
type Kind int

const (
	KindValidation Kind = iota
	KindConflict
	KindNotFound
	KindAuth
	KindState
	KindInternal
)

// Error carries a kind, a stable code for clients and a human message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error kind to the status the API responds with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth:
		return http.StatusUnauthorized
	case KindState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func newf(kind Kind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validationf(code, format string, args ...interface{}) *Error {
	return newf(KindValidation, code, format, args...)
}

func Conflictf(code, format string, args ...interface{}) *Error {
	return newf(KindConflict, code, format, args...)
}

func NotFoundf(code, format string, args ...interface{}) *Error {
	return newf(KindNotFound, code, format, args...)
}

func Authf(code, format string, args ...interface{}) *Error {
	return newf(KindAuth, code, format, args...)
}

func Statef(code, format string, args ...interface{}) *Error {
	return newf(KindState, code, format, args...)
}

// Internalf wraps an unexpected error so it still renders as the envelope.
func Internalf(err error, format string, args ...interface{}) *Error {
	e := newf(KindInternal, "internal_error", format, args...)
	e.Err = err
	return e
}

// From extracts an *Error from err, wrapping unknown errors as internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internalf(err, "unexpected error")
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
