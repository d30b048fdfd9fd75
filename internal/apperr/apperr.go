// Package apperr defines the error taxonomy shared by services and HTTP
// handlers. Handlers branch on Kind, never on error text, and internal
// kinds never expose the underlying error to clients.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
	KindUnavailable
)

type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Auth(msg string) *Error {
	return &Error{Kind: KindAuth, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func RateLimited(msg string) *Error {
	return &Error{Kind: KindRateLimited, Message: msg}
}

func Unavailable(msg string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: msg, Err: err}
}

// Internal wraps an unexpected failure with its originating operation name.
// The wrapped error shows up in logs only; clients see a generic message.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Op: op, Err: err}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the message safe to surface to a client. Internal
// and unavailable kinds get generic text so backend details never leak.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "something went wrong"
	}
	switch e.Kind {
	case KindInternal:
		return "something went wrong"
	case KindUnavailable:
		return "service temporarily unavailable"
	default:
		return e.Message
	}
}

// Code returns the stable machine-readable category for a kind.
func Code(err error) string {
	switch KindOf(err) {
	case KindValidation:
		return "validation_error"
	case KindAuth:
		return "auth_required"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal_error"
	}
}
