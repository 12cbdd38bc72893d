package shared

import (
	"errors"
	"fmt"
)

// Kind classifies user-visible failures. Everything else is internal.
type Kind int

const (
	KindInternal Kind = iota
	// KindNotFound covers absent entities and entities owned by another
	// tenant. Both produce the same message so existence does not leak.
	KindNotFound
	// KindBadRequest covers input validation and policy violations.
	KindBadRequest
	// KindConflict covers optimistic-concurrency version mismatches and
	// duplicate month locks.
	KindConflict
)

// Error is the stable failure shape crossing the service boundary: a kind for
// transport mapping, a machine-readable code, and a human message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.err }

// NotFound builds a KindNotFound error.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// BadRequest builds a KindBadRequest error.
func BadRequest(code, message string) *Error {
	return &Error{Kind: KindBadRequest, Code: code, Message: message}
}

// Conflict builds a KindConflict error.
func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Wrap attaches a cause without changing the user-visible shape.
func (e *Error) Wrap(err error) *Error {
	clone := *e
	clone.err = err
	return &clone
}

// KindOf returns the classification of err, KindInternal when unclassified.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// CodeOf returns the machine code of err, empty when unclassified.
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsNotFound reports whether err carries KindNotFound.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsBadRequest reports whether err carries KindBadRequest.
func IsBadRequest(err error) bool { return KindOf(err) == KindBadRequest }

// IsConflict reports whether err carries KindConflict.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }
