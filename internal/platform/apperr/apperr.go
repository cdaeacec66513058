// Package apperr defines the error kinds shared by every module. Handlers map
// a kind to an HTTP status; services and repositories only ever construct them.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalid
	KindConflict
	KindForbidden
	KindUnauthorized
	KindUnavailable
)

// Sentinels usable with errors.Is.
var (
	ErrNotFound     = &Error{kind: KindNotFound, msg: "not found"}
	ErrInvalid      = &Error{kind: KindInvalid, msg: "invalid request"}
	ErrConflict     = &Error{kind: KindConflict, msg: "conflict"}
	ErrForbidden    = &Error{kind: KindForbidden, msg: "forbidden"}
	ErrUnauthorized = &Error{kind: KindUnauthorized, msg: "unauthorized"}
	ErrUnavailable  = &Error{kind: KindUnavailable, msg: "service unavailable"}
)

// Error is a classified error with a client-safe message.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

// Message returns the client-facing message without the wrapped cause.
func (e *Error) Message() string { return e.msg }

func (e *Error) Kind() Kind { return e.kind }

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.kind == e.kind
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error     { return newf(KindNotFound, format, args...) }
func Invalid(format string, args ...any) error      { return newf(KindInvalid, format, args...) }
func Conflict(format string, args ...any) error     { return newf(KindConflict, format, args...) }
func Forbidden(format string, args ...any) error    { return newf(KindForbidden, format, args...) }
func Unauthorized(format string, args ...any) error { return newf(KindUnauthorized, format, args...) }

// Unavailable wraps a failure of an upstream dependency (payment provider, SMTP, storage).
func Unavailable(cause error, format string, args ...any) error {
	e := newf(KindUnavailable, format, args...)
	e.cause = cause
	return e
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message of a classified error, or "" for internal errors.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return ""
}
