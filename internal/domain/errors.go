package domain

import (
	"errors"
	"fmt"
)

// Error kinds returned by the core. Callers match them with errors.Is and
// map them to transport statuses.
var (
	// ErrNotFound is returned when a referenced user or card does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRequest is returned for business-rule violations: a bad card
	// number, a non-active card, insufficient funds, a self-transfer or a
	// foreign card.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidInput is a malformed field value such as a password that
	// fails the policy. It is also an ErrInvalidRequest.
	ErrInvalidInput = fmt.Errorf("%w: invalid input", ErrInvalidRequest)

	// ErrConflict is returned on uniqueness violations and on attempts to
	// revive an expired card.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized covers missing or malformed bearer credentials,
	// invalid, expired or revoked tokens, and bad passwords.
	ErrUnauthorized = errors.New("unauthorized")
)

// Kind tags an error with the category a transport layer decodes.
type Kind string

// Error kinds.
const (
	KindNotFound       Kind = "NotFound"
	KindInvalidRequest Kind = "InvalidRequest"
	KindInvalidInput   Kind = "InvalidInput"
	KindConflict       Kind = "Conflict"
	KindUnauthorized   Kind = "Unauthorized"
	KindInternal       Kind = "Internal"
)

// KindOf classifies err. Anything that does not wrap one of the kind
// sentinels is KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	default:
		return KindInternal
	}
}

// Error is a kind-tagged error with a human-readable message and an
// optional underlying cause.
type Error struct {
	Kind    error // one of the kind sentinels above
	Message string
	Err     error
}

// NewError creates an Error of the given kind.
func NewError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Errorf creates an Error of the given kind with a formatted message.
func Errorf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind and the cause to errors.Is/errors.As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}
