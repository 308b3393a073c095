// Package apperror classifies failures of the account and friendship core into a
// small set of outcome kinds that the HTTP layer maps to status codes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable outcome code.
type Kind string

const (
	KindInternal Kind = "INTERNAL"

	// Caller faults
	KindValidation Kind = "VALIDATION"
	KindNotFound   Kind = "NOT_FOUND"

	// Relationship and uniqueness conflicts
	KindConflict         Kind = "CONFLICT"
	KindAlreadyRequested Kind = "ALREADY_REQUESTED"
	KindNoPendingRequest Kind = "NO_PENDING_REQUEST"
	KindNotFriends       Kind = "NOT_FRIENDS"

	// Credential failures
	KindInvalidCode        Kind = "INVALID_CODE"
	KindExpired            Kind = "EXPIRED"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindAccountLocked      Kind = "ACCOUNT_LOCKED"

	// Collaborator failures
	KindDelivery Kind = "DELIVERY"
	KindStore    Kind = "STORE"
)

// HTTPStatus maps an outcome kind to the status code the HTTP layer answers with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindInvalidCode, KindExpired, KindNoPendingRequest:
		return http.StatusBadRequest
	case KindNotFound, KindNotFriends:
		return http.StatusNotFound
	case KindConflict, KindAlreadyRequested:
		return http.StatusConflict
	case KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindAccountLocked:
		return http.StatusForbidden
	case KindDelivery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Message is safe to show to callers; Err keeps
// the underlying cause for logs and errors.Is/As.
type Error struct {
	Kind      Kind
	Message   string
	Field     string
	Remaining int
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a classified error around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation reports which input field failed.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

// InvalidCredentials carries the number of password attempts left before lockout.
func InvalidCredentials(remaining int) *Error {
	return &Error{
		Kind:      KindInvalidCredentials,
		Message:   fmt.Sprintf("login failed, %d attempt(s) remaining", remaining),
		Remaining: remaining,
	}
}

// KindOf extracts the kind from any error. Unclassified errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsConflict reports true for generic conflicts and duplicate friend requests.
func IsConflict(err error) bool {
	k := KindOf(err)
	return err != nil && (k == KindConflict || k == KindAlreadyRequested)
}

// As returns the classified error, or wraps an unclassified one as internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(KindInternal, "an unexpected error occurred", err)
}
