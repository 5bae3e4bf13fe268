// Package derrors defines the domain error taxonomy shared by services and
// transports. Stores return infrastructure sentinels (pkg/platform/sentinel);
// services translate them into coded domain errors; the HTTP layer maps codes
// to status responses.
package derrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, user-visible error kind. Codes are part of the API
// contract; messages are not.
type Code string

const (
	// CodeBadRequest covers missing or malformed input the caller can fix.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized covers missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden covers callers lacking the required capability.
	CodeForbidden Code = "forbidden"
	// CodeNotFound covers identifiers that do not resolve to a record.
	CodeNotFound Code = "not_found"
	// CodeConflict covers state transitions rejected because of the record's
	// current state or a concurrent writer.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks a domain invariant breach detected inside a
	// model. Services normally translate it to CodeConflict or CodeBadRequest
	// before it reaches a caller.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeUnavailable covers dependent store or object-storage failures that
	// the caller may retry.
	CodeUnavailable Code = "unavailable"
	// CodeTimeout covers operations abandoned at a deadline.
	CodeTimeout Code = "timeout"
	// CodeInternal covers everything unexpected.
	CodeInternal Code = "internal"
)

// Error carries a code, a human message, and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates err with a code and message while preserving the cause chain.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the domain message from an error chain. Returns an empty
// string for non-domain errors so transports never leak internals by accident.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvariantViolation:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
