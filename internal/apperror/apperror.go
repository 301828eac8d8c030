// Package apperror defines the error taxonomy shared by the gate, the
// services and the HTTP error translator.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into an externally visible outcome.
type Kind int

const (
	// KindInternal is any failure that was not classified.
	KindInternal Kind = iota
	// KindInvalidArgument covers malformed input, bad names and bad emails.
	KindInvalidArgument
	// KindUnauthenticated means the identity header is missing.
	KindUnauthenticated
	// KindNotFound means the record is absent or owned by someone else.
	KindNotFound
	// KindConflict means a uniqueness rule was violated.
	KindConflict
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified failure carrying a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels for errors.Is checks. Any *Error of the same kind matches.
var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
)

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// InvalidArgument returns a KindInvalidArgument error with the given message.
func InvalidArgument(msg string) error {
	return &Error{Kind: KindInvalidArgument, Message: msg}
}

// Unauthenticated returns a KindUnauthenticated error with the given message.
func Unauthenticated(msg string) error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// NotFound returns a KindNotFound error with the given message.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict returns a KindConflict error with the given message.
// cause may be nil.
func Conflict(msg string, cause error) error {
	return &Error{Kind: KindConflict, Message: msg, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-safe message of the first *Error in err's chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
