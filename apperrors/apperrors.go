// Package apperrors holds the error taxonomy shared by the dispatch core.
// Every error leaving a service is an *Error carrying a Kind so callers can
// branch with errors.Is against the Err* sentinels.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound                   Kind = "not_found"
	KindNoResourceAvailable        Kind = "no_resource_available"
	KindAlreadyHandled             Kind = "already_handled"
	KindInvalidTransition          Kind = "invalid_transition"
	KindExternalServiceUnavailable Kind = "external_service_unavailable"
	KindPaymentFailed              Kind = "payment_failed"
	KindInvalidArgument            Kind = "invalid_argument"
	KindInternal                   Kind = "internal"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrNotFound                   = &Error{Kind: KindNotFound}
	ErrNoResourceAvailable        = &Error{Kind: KindNoResourceAvailable}
	ErrAlreadyHandled             = &Error{Kind: KindAlreadyHandled}
	ErrInvalidTransition          = &Error{Kind: KindInvalidTransition}
	ErrExternalServiceUnavailable = &Error{Kind: KindExternalServiceUnavailable}
	ErrPaymentFailed              = &Error{Kind: KindPaymentFailed}
	ErrInvalidArgument            = &Error{Kind: KindInvalidArgument}
	ErrInternal                   = &Error{Kind: KindInternal}
)

// Error is a tagged failure. Op names the operation that failed, Err the cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality so wrapped errors compare against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, op, message string) error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func NotFound(op, format string, args ...any) error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func InvalidTransition(op, format string, args ...any) error {
	return &Error{Kind: KindInvalidTransition, Op: op, Message: fmt.Sprintf(format, args...)}
}

func AlreadyHandled(op, format string, args ...any) error {
	return &Error{Kind: KindAlreadyHandled, Op: op, Message: fmt.Sprintf(format, args...)}
}

func InvalidArgument(op, format string, args ...any) error {
	return &Error{Kind: KindInvalidArgument, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected store or runtime failure. Tagged errors pass
// through unchanged so their kind is preserved.
func Internal(op string, err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code the handlers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindNoResourceAvailable, KindAlreadyHandled:
		return http.StatusConflict
	case KindInvalidTransition:
		return http.StatusUnprocessableEntity
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindExternalServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindPaymentFailed:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
