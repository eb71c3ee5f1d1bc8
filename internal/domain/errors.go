package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies failures so the HTTP layer can map them to a status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindDependency:
		return "dependency"
	default:
		return "internal"
	}
}

// Error is a classified application error.
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

// ErrValidation returns a validation failure.
func ErrValidation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ErrUnauthorized returns an authentication failure.
func ErrUnauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// ErrForbidden returns an authorization failure.
func ErrForbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// ErrNotFound returns a not-found failure.
func ErrNotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// ErrConflict returns a uniqueness failure.
func ErrConflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// ErrDependency wraps a failure of an external service.
func ErrDependency(err error, msg string) error {
	return &Error{Kind: KindDependency, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
