package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies an error category with a stable string value,
// so tests and callers can match on the category instead of message text.
type ErrorCode string

const (
	// General errors
	ErrUnknown       ErrorCode = "UNKNOWN"
	ErrInternal      ErrorCode = "INTERNAL"
	ErrInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// Recipe errors
	ErrRecipeNotFound ErrorCode = "RECIPE_NOT_FOUND"
	ErrRecipeInvalid  ErrorCode = "RECIPE_INVALID"
	ErrRecipeStore    ErrorCode = "RECIPE_STORE"

	// Fetch errors
	ErrFetchFailed    ErrorCode = "FETCH_FAILED"
	ErrFetcherUnknown ErrorCode = "FETCHER_UNKNOWN"

	// Build and install errors
	ErrFingerprintIO  ErrorCode = "FINGERPRINT_IO"
	ErrPackageInvalid ErrorCode = "PACKAGE_INVALID"
	ErrInstallFailed  ErrorCode = "INSTALL_FAILED"
	ErrCacheIO        ErrorCode = "CACHE_IO"

	// Scheduler errors
	ErrDependencyStall ErrorCode = "DEPENDENCY_STALL"

	// Version errors
	ErrVersionParse ErrorCode = "VERSION_PARSE"
)

// Error is a structured error carrying a code, a message, optional
// key/value details, and an optional wrapped cause.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is matches two Errors by code, which lets errors.Is work across
// independently constructed instances of the same category.
func (e *Error) Is(target error) bool {
	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new Error with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error, preserving it as the cause.
// Returns nil when err is nil so call sites can wrap unconditionally.
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if
// the error is not a structured Error.
func GetErrorCode(err error) ErrorCode {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if the
// error is not a structured Error.
func GetErrorDetails(err error) map[string]interface{} {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Details
	}
	return nil
}
