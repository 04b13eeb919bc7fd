package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource (usually a portal) was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
	// ErrCodeConfiguration indicates missing or invalid portal/OIDC settings.
	ErrCodeConfiguration ErrorCode = "configuration"
	// ErrCodeDecryptionFailed indicates a protected configuration value could not be recovered.
	ErrCodeDecryptionFailed ErrorCode = "decryption_failed"
	// ErrCodeUnregisteredScheme indicates a challenge for a scheme that was not registered at startup.
	ErrCodeUnregisteredScheme ErrorCode = "unregistered_scheme"
	// ErrCodeRemoteProvider indicates the identity provider reported or caused a failure.
	ErrCodeRemoteProvider ErrorCode = "remote_provider"
	// ErrCodeCacheUnavailable indicates the ticket cache could not be reached. Retryable.
	ErrCodeCacheUnavailable ErrorCode = "cache_unavailable"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// Configurationf creates a new Configuration error with formatted message.
func Configurationf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeConfiguration,
		Message: fmt.Sprintf(format, args...),
	}
}

// UnregisteredSchemef creates a new UnregisteredScheme error with formatted message.
func UnregisteredSchemef(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeUnregisteredScheme,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsConfiguration checks if an error is a Configuration error.
func IsConfiguration(err error) bool {
	return isCode(err, ErrCodeConfiguration)
}

// IsDecryptionFailed checks if an error is a DecryptionFailed error.
func IsDecryptionFailed(err error) bool {
	return isCode(err, ErrCodeDecryptionFailed)
}

// IsUnregisteredScheme checks if an error is an UnregisteredScheme error.
func IsUnregisteredScheme(err error) bool {
	return isCode(err, ErrCodeUnregisteredScheme)
}

// IsRemoteProvider checks if an error is a RemoteProvider error.
func IsRemoteProvider(err error) bool {
	return isCode(err, ErrCodeRemoteProvider)
}

// IsCacheUnavailable checks if an error is a CacheUnavailable error.
func IsCacheUnavailable(err error) bool {
	return isCode(err, ErrCodeCacheUnavailable)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
