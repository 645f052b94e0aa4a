// Package fault defines the error taxonomy shared by every component.
//
// All faults are recoverable: they are surfaced to the initiating actor,
// core state is left unchanged, and the actor may retry. Nothing in this
// package represents a fatal condition.
package fault

import (
	"errors"
	"fmt"
)

// Code categorizes a fault.
type Code string

const (
	// CodeNotFound indicates a product, category, order or user lookup miss.
	CodeNotFound Code = "NOT_FOUND"

	// CodeInvalidInput indicates a non-numeric or out-of-range value.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeStockExceeded indicates a requested quantity above the product's stock.
	CodeStockExceeded Code = "STOCK_EXCEEDED"

	// CodeForbidden indicates a caller outside the administrator identity set,
	// or a user blocked by the subscription gate.
	CodeForbidden Code = "FORBIDDEN"

	// CodeNoActiveSession indicates a checkout operation with no session in flight.
	CodeNoActiveSession Code = "NO_ACTIVE_SESSION"

	// CodeMissingIdentity indicates a user with no displayable handle.
	// A handle is a hard precondition for any checkout.
	CodeMissingIdentity Code = "MISSING_IDENTITY"

	// CodeTransportFailure indicates a notification send that failed.
	CodeTransportFailure Code = "TRANSPORT_FAILURE"
)

// Error is a structured fault with a category code and optional
// entity/reference fields for diagnostics.
type Error struct {
	// Code identifies the fault category.
	Code Code

	// Message is a human-readable description, suitable for the initiating actor.
	Message string

	// Entity names the affected entity kind ("product", "order", ...).
	Entity string

	// Ref identifies the specific entity instance, if known.
	Ref string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Entity != "" && e.Ref != "" {
		return fmt.Sprintf("%s: %s (%s=%s)", e.Code, e.Message, e.Entity, e.Ref)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Entity)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a lookup-miss Error for the given entity and reference.
func NotFound(entity, ref string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: entity + " not found",
		Entity:  entity,
		Ref:     ref,
	}
}

// Is reports whether err is (or wraps) an Error with the given code.
func Is(err error, code Code) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// IsNotFound reports whether err is a lookup miss.
func IsNotFound(err error) bool { return Is(err, CodeNotFound) }

// IsForbidden reports whether err is an authorization failure.
func IsForbidden(err error) bool { return Is(err, CodeForbidden) }

// CodeOf returns the code of err, or "" if err is not a fault Error.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}
