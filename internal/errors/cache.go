package errors

import (
	"context"
	"errors"
)

// MapCacheError maps ticket cache failures to AppError instances.
//
// Context timeouts and cancellations keep their own codes so request-scoped
// aborts are not reported as an outage; everything else becomes
// CacheUnavailable, which callers must surface as a retryable failure and
// never as "not authenticated".
func MapCacheError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{
			Code:    ErrCodeTimeout,
			Message: "ticket cache request timed out",
			Cause:   err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{
			Code:    ErrCodeCanceled,
			Message: "ticket cache request was canceled",
			Cause:   err,
		}
	}

	return &AppError{
		Code:    ErrCodeCacheUnavailable,
		Message: "ticket cache unavailable",
		Cause:   err,
	}
}

// IsTransient reports whether err is a retryable infrastructure failure.
func IsTransient(err error) bool {
	switch GetCode(err) {
	case ErrCodeCacheUnavailable, ErrCodeTimeout:
		return true
	default:
		return false
	}
}
