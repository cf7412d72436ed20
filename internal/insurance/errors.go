package insurance

import (
	"errors"
	"fmt"
)

// Kind classifies a claims-engine failure into the fixed taxonomy callers
// dispatch on. Only Transient is ever retried automatically, and only once.
type Kind string

const (
	KindInvalidMemberID          Kind = "InvalidMemberId"
	KindUnverifiedMember         Kind = "UnverifiedMember"
	KindInactiveMember           Kind = "InactiveMember"
	KindTransient                Kind = "Transient"
	KindNoSession                Kind = "NoSession"
	KindNoAuthorization          Kind = "NoAuthorization"
	KindDuplicateClaim           Kind = "DuplicateClaim"
	KindEmptyBasket              Kind = "EmptyBasket"
	KindProviderValidationFailed Kind = "ProviderValidationFailed"
	KindUnknown                  Kind = "Unknown"
)

// Error carries a taxonomy kind plus an operator-actionable message. The
// message states what happened and what the operator should do next; the
// engine never papers over a failure with a fabricated identifier.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a taxonomy error.
func NewError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// WrapError builds a taxonomy error around an underlying cause.
func WrapError(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf extracts the taxonomy kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsTransient reports whether the error is safe to retry with backoff.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}
