package orders

import (
	"errors"
	"fmt"
)

// Kind classifies an order-path failure. The request-handling layer maps each
// kind to a distinct status code; kinds are never mixed.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindRiskRejected Kind = "risk_rejected"
	KindStore        Kind = "store"
	KindExecution    Kind = "execution"
)

// Error is a typed order-path failure with a machine kind and a
// human-readable reason.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidationError reports a malformed or semantically invalid order
// request. Never retried.
func NewValidationError(reason string) *Error {
	return &Error{Kind: KindValidation, Reason: reason}
}

// NewUnauthorizedError reports an identity that does not own the target
// order.
func NewUnauthorizedError(reason string) *Error {
	return &Error{Kind: KindUnauthorized, Reason: reason}
}

// NewNotFoundError reports an order id absent from every store.
func NewNotFoundError(reason string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

// NewInvalidStateError reports an operation not permitted by the order's
// current status.
func NewInvalidStateError(reason string) *Error {
	return &Error{Kind: KindInvalidState, Reason: reason}
}

// NewRiskRejectedError reports a risk gate decline. Not retried
// automatically; the caller may resubmit a changed order.
func NewRiskRejectedError(reason string) *Error {
	return &Error{Kind: KindRiskRejected, Reason: reason}
}

// NewStoreError reports a transient cache or durable store failure. The
// failed sub-operation is safe to retry.
func NewStoreError(reason string, err error) *Error {
	return &Error{Kind: KindStore, Reason: reason, Err: err}
}

// NewExecutionError reports an execution gate failure during drain.
func NewExecutionError(reason string, err error) *Error {
	return &Error{Kind: KindExecution, Reason: reason, Err: err}
}

// KindOf extracts the kind of an order-path error, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
