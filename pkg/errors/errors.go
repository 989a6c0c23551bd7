package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Common sentinel errors for quick checks
var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when request input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("operation timeout")

	// ErrServiceUnavailable is returned when a required service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInternal is returned when an internal error occurs.
	ErrInternal = errors.New("internal error")

	// ErrUnsupported is returned for request shapes the head does not serve yet.
	ErrUnsupported = errors.New("not supported")
)

// Error is the base interface for all custom errors in the system.
// It extends the standard error interface with additional context.
type Error interface {
	error
	// Code returns the error code
	Code() string
	// Message returns the human-readable error message
	Message() string
	// Unwrap returns the underlying cause
	Unwrap() error
}

// BaseError provides a foundation for all typed errors.
type BaseError struct {
	code    string
	message string
	cause   error
	stack   []uintptr
}

// Error implements the error interface.
func (e *BaseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *BaseError) Code() string {
	return e.code
}

// Message returns the error message.
func (e *BaseError) Message() string {
	return e.message
}

// Unwrap returns the underlying cause.
func (e *BaseError) Unwrap() error {
	return e.cause
}

func captureStack(skip int) []uintptr {
	const maxDepth = 32
	stack := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, stack)
	return stack[:n]
}

// StackTrace returns a formatted stack trace string.
func (e *BaseError) StackTrace() string {
	if len(e.stack) == 0 {
		return ""
	}

	var buf strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return buf.String()
}

// ValidationError represents an input validation error. Requests failing
// validation are answered without dispatching to any collaborator.
type ValidationError struct {
	*BaseError
	Field string
	Value interface{}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		BaseError: &BaseError{
			code:    CodeValidation,
			message: message,
			stack:   captureStack(1),
		},
		Field: field,
		Value: value,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.message)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

// Is lets errors.Is(err, ErrInvalidInput) match any validation error.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	*BaseError
	Resource string
	ID       string
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		BaseError: &BaseError{
			code:    CodeNotFound,
			message: fmt.Sprintf("%s not found", resource),
			stack:   captureStack(1),
		},
		Resource: resource,
		ID:       id,
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with ID '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is lets errors.Is(err, ErrNotFound) match any not-found error.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// DataSourceUnavailableError is raised when the head has no source to
// query at all: the control plane is unreachable, or every node queried
// failed. It is the only fault the list and log handlers translate into
// a success=false reply instead of an internal error.
type DataSourceUnavailableError struct {
	*BaseError
	Source string
}

// NewDataSourceUnavailableError creates a new data source unavailable error.
func NewDataSourceUnavailableError(source, message string, cause error) *DataSourceUnavailableError {
	if message == "" {
		message = fmt.Sprintf("failed to query the data source %s", source)
	}
	return &DataSourceUnavailableError{
		BaseError: &BaseError{
			code:    CodeUnavailable,
			message: message,
			cause:   cause,
			stack:   captureStack(1),
		},
		Source: source,
	}
}

// Is lets errors.Is(err, ErrServiceUnavailable) match.
func (e *DataSourceUnavailableError) Is(target error) bool {
	return target == ErrServiceUnavailable
}

// AgentError represents a per-node agent reply that was not successful.
type AgentError struct {
	*BaseError
	NodeID     string
	StatusCode int
}

// NewAgentError creates a new agent error.
func NewAgentError(nodeID string, statusCode int, message string) *AgentError {
	if message == "" {
		message = fmt.Sprintf("agent on node %s replied %d", nodeID, statusCode)
	}
	return &AgentError{
		BaseError: &BaseError{
			code:    CodeAgentError,
			message: message,
			stack:   captureStack(1),
		},
		NodeID:     nodeID,
		StatusCode: statusCode,
	}
}

// TimeoutError represents a timeout error.
type TimeoutError struct {
	*BaseError
	Operation string
	Duration  string
}

// NewTimeoutError creates a new timeout error.
func NewTimeoutError(operation, duration string) *TimeoutError {
	message := "operation timeout"
	if operation != "" {
		message = fmt.Sprintf("%s timeout", operation)
	}
	return &TimeoutError{
		BaseError: &BaseError{
			code:    CodeTimeout,
			message: message,
			stack:   captureStack(1),
		},
		Operation: operation,
		Duration:  duration,
	}
}

// Is lets errors.Is(err, ErrTimeout) match.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// InternalError represents an internal server error.
type InternalError struct {
	*BaseError
}

// Wrap wraps an error with additional context.
// If the error is already one of our custom types, it preserves the code
// and adds the cause chain. Otherwise, it creates an InternalError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var e Error
	if errors.As(err, &e) {
		return &BaseError{
			code:    e.Code(),
			message: message,
			cause:   err,
			stack:   captureStack(1),
		}
	}

	return &InternalError{
		BaseError: &BaseError{
			code:    CodeInternal,
			message: message,
			cause:   err,
			stack:   captureStack(1),
		},
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// New creates a new error with a message.
func New(message string) error {
	return &BaseError{
		code:    CodeInternal,
		message: message,
		stack:   captureStack(1),
	}
}
