package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of protocol-level error kinds surfaced at the API
// boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindBadRequest
	KindPreconditionFailed
	KindConflict
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindPreconditionFailed:
		return "precondition_failed"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a domain error with a protocol kind attached.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error with an explicit kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error with an explicit kind and formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Unauthorized(message string) *Error       { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error          { return New(KindForbidden, message) }
func NotFound(message string) *Error           { return New(KindNotFound, message) }
func BadRequest(message string) *Error         { return New(KindBadRequest, message) }
func PreconditionFailed(message string) *Error { return New(KindPreconditionFailed, message) }
func Conflict(message string) *Error           { return New(KindConflict, message) }
func Internal(message string) *Error           { return New(KindInternal, message) }

// translation rules for free-text domain errors, checked in order, first
// match wins. Matching is case-insensitive.
var translations = []struct {
	substr string
	kind   Kind
}{
	{"limit reached", KindPreconditionFailed},
	{"unauthorized", KindUnauthorized},
	{"not a member", KindForbidden},
	{"not found", KindNotFound},
}

// Translate normalizes err into an *Error. Errors that already carry a kind
// pass through unchanged. Free-text errors are classified by substring; an
// unmatched error becomes KindInternal.
func Translate(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, t := range translations {
		if strings.Contains(lower, t.substr) {
			return &Error{Kind: t.kind, Message: msg, Err: err}
		}
	}
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind Translate would assign to err.
func KindOf(err error) Kind {
	return Translate(err).Kind
}
