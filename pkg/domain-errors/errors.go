// Package domainerrors defines the typed error taxonomy shared by every
// service in the core. Stores return sentinel errors (pkg/platform/sentinel);
// services translate them into coded errors so callers and transports can
// branch on the code without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure. Codes are part of the external API
// contract: transports map them to HTTP statuses and clients branch on them.
type Code string

const (
	// CodeValidation covers malformed input: non-positive amounts, unknown
	// payment methods, malformed identifier strings.
	CodeValidation Code = "validation"

	// CodeMissingTransactionReference is raised when an electronic payment
	// method is used without a transaction reference.
	CodeMissingTransactionReference Code = "missing_transaction_reference"

	// CodeNotFound means the entity does not exist within the caller's scope.
	CodeNotFound Code = "not_found"

	// CodeScopeViolation means a caller attempted to reach across its tenant
	// boundary. Always rejected outright, never silently filtered.
	CodeScopeViolation Code = "scope_violation"

	// CodeForbidden means the caller's role is not permitted to perform the
	// operation at all, regardless of scope.
	CodeForbidden Code = "forbidden"

	// CodeConflict covers duplicate creation attempts and concurrent update
	// races that are not retryable as-is.
	CodeConflict Code = "conflict"

	// CodeWindowClosed means an exam attempt was started outside its
	// scheduled [start, end] window.
	CodeWindowClosed Code = "window_closed"

	// CodeInvalidTransition means the requested examination state change is
	// not in the transition table.
	CodeInvalidTransition Code = "invalid_transition"

	// CodeNotYetAvailable guards result confidentiality: attempts that are
	// not Verified return this instead of partial data.
	CodeNotYetAvailable Code = "not_yet_available"

	// CodeSequenceOverflow means a counter exceeded its identifier format
	// capacity. Fatal for that scope; never retried, never wrapped around.
	CodeSequenceOverflow Code = "sequence_overflow"

	// CodeAllocationConflict is a transient allocation failure after bounded
	// retry. Callers retry the whole logical operation.
	CodeAllocationConflict Code = "allocation_conflict"

	// CodeAlreadyFinalized rejects payroll regeneration for a finalized
	// period.
	CodeAlreadyFinalized Code = "already_finalized"

	// CodeTimeout signals a cancelled or expired context.
	CodeTimeout Code = "timeout"

	// CodeInternal is the fallback for unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error carries a code, a caller-facing message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. A nil cause
// yields nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost coded error, or CodeInternal when
// the error is not coded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Retryable reports whether the caller is expected to retry the logical
// operation. Only transient allocation conflicts qualify; sequence overflow
// in particular must never be retried.
func Retryable(err error) bool {
	return HasCode(err, CodeAllocationConflict)
}
