// Package errors provides standardized domain errors with codes for the PageTurn engine.
//
// Usage:
//
//	// In services - return typed errors
//	if plan == nil {
//	    return errors.NotFound("no reading plan for book")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrStaleWrite) {
//	    // drop silently, log only
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeInvalidGoalDate:
//	        // surface to the user
//	    case errors.CodeSyncUnavailable:
//	        // log, retry on the next trigger
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the engine.
const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeAlreadyExists     Code = "ALREADY_EXISTS"
	CodeValidation        Code = "VALIDATION"
	CodeStaleWrite        Code = "STALE_WRITE"
	CodeSyncUnavailable   Code = "SYNC_UNAVAILABLE"
	CodeInvalidGoalDate   Code = "INVALID_GOAL_DATE"
	CodeMigrationConflict Code = "MIGRATION_CONFLICT"
	CodeInternal          Code = "INTERNAL"
)

// Recoverable reports whether the error code denotes a condition the engine
// absorbs on its own (logged, retried, or treated as success) rather than
// surfacing to the user.
func (c Code) Recoverable() bool {
	switch c {
	case CodeStaleWrite, CodeSyncUnavailable, CodeMigrationConflict:
		return true
	default:
		return false
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists     = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrStaleWrite        = &Error{Code: CodeStaleWrite, Message: "stale write"}
	ErrSyncUnavailable   = &Error{Code: CodeSyncUnavailable, Message: "sync unavailable"}
	ErrInvalidGoalDate   = &Error{Code: CodeInvalidGoalDate, Message: "invalid goal date"}
	ErrMigrationConflict = &Error{Code: CodeMigrationConflict, Message: "migration conflict"}
	ErrInternal          = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// StaleWrite creates a stale write error. Callers log and drop these;
// they never reach the user.
func StaleWrite(msg string) *Error {
	return &Error{Code: CodeStaleWrite, Message: msg}
}

// StaleWritef creates a stale write error with formatted message.
func StaleWritef(format string, args ...any) *Error {
	return &Error{Code: CodeStaleWrite, Message: fmt.Sprintf(format, args...)}
}

// SyncUnavailable creates a sync unavailable error.
func SyncUnavailable(msg string) *Error {
	return &Error{Code: CodeSyncUnavailable, Message: msg}
}

// InvalidGoalDate creates an invalid goal date error.
func InvalidGoalDate(msg string) *Error {
	return &Error{Code: CodeInvalidGoalDate, Message: msg}
}

// InvalidGoalDatef creates an invalid goal date error with formatted message.
func InvalidGoalDatef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidGoalDate, Message: fmt.Sprintf(format, args...)}
}

// MigrationConflict creates a migration conflict error. A concurrent
// migration of the same record is benign; callers treat this as success.
func MigrationConflict(msg string) *Error {
	return &Error{Code: CodeMigrationConflict, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
