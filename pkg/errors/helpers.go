package errors

import (
	"context"
	"errors"
)

// Is forwards to the standard library so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

// As forwards to the standard library so callers need a single import.
func As(err error, target any) bool { return errors.As(err, target) }

// IsNotFound checks if an error indicates a resource was not found.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr) || errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsDataSourceUnavailable checks if an error means the head had nothing to query.
func IsDataSourceUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var dsErr *DataSourceUnavailableError
	return errors.As(err, &dsErr)
}

// IsTimeout checks if an error indicates a timeout, including context deadlines.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr) || errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// IsCancelled checks if the error comes from a cancelled context.
func IsCancelled(err error) bool {
	return err != nil && errors.Is(err, context.Canceled)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	if err == nil {
		return CodeOK
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return customErr.Code()
	}

	switch {
	case IsNotFound(err):
		return CodeNotFound
	case IsTimeout(err):
		return CodeTimeout
	case IsCancelled(err):
		return CodeCancelled
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidArgument
	case errors.Is(err, ErrServiceUnavailable):
		return CodeUnavailable
	case errors.Is(err, ErrUnsupported):
		return CodeUnimplemented
	default:
		return CodeInternal
	}
}

// GetErrorMessage extracts a human-readable message from an error.
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var customErr Error
	if errors.As(err, &customErr) {
		return customErr.Message()
	}
	return err.Error()
}
