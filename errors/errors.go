package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of failure. Codes are stable and safe to
// compare in tests.
type ErrorCode string

const (
	ErrUnknown  ErrorCode = "UNKNOWN"
	ErrInternal ErrorCode = "INTERNAL"

	// ErrRead: a file could not be opened, stat'ed or hashed while building
	// an index. Recoverable per file.
	ErrRead ErrorCode = "READ"

	// ErrFSMutation: a delete, move or replace failed. Recoverable per file.
	ErrFSMutation ErrorCode = "FS_MUTATION"

	// ErrConfig: a root path or config file is unusable. Fatal, raised before
	// any tree work starts.
	ErrConfig ErrorCode = "CONFIG"

	ErrCancelled ErrorCode = "CANCELLED"
	ErrDatabase  ErrorCode = "DATABASE"
	ErrNotFound  ErrorCode = "NOT_FOUND"
)

// FsreconError is a structured error with a code and optional details.
type FsreconError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

func (e *FsreconError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *FsreconError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an FsreconError with the same code.
func (e *FsreconError) Is(target error) bool {
	var targetErr *FsreconError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new FsreconError with the given code and message
func New(code ErrorCode, message string) *FsreconError {
	return &FsreconError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new FsreconError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *FsreconError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps err with a code and message. It returns nil when err is nil.
func Wrap(err error, code ErrorCode, message string) *FsreconError {
	if err == nil {
		return nil
	}
	return &FsreconError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps err with a code and a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *FsreconError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WithDetail adds a detail to the error
func (e *FsreconError) WithDetail(key string, value interface{}) *FsreconError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var fe *FsreconError
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not an FsreconError
func GetErrorCode(err error) ErrorCode {
	var fe *FsreconError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not an FsreconError
func GetErrorDetails(err error) map[string]interface{} {
	var fe *FsreconError
	if errors.As(err, &fe) {
		return fe.Details
	}
	return nil
}
