package errors

// Error codes for categorizing errors.
// These codes map to HTTP status codes where applicable.
const (
	// CodeOK indicates success (not an error).
	CodeOK = "OK"

	// CodeCancelled indicates the operation was cancelled, usually by the client going away.
	CodeCancelled = "CANCELLED"

	// CodeInvalidArgument indicates client specified an invalid argument.
	CodeInvalidArgument = "INVALID_ARGUMENT"

	// CodeDeadlineExceeded indicates operation deadline was exceeded.
	CodeDeadlineExceeded = "DEADLINE_EXCEEDED"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound = "NOT_FOUND"

	// CodeUnimplemented indicates operation is not implemented or not supported.
	CodeUnimplemented = "UNIMPLEMENTED"

	// CodeInternal indicates internal errors.
	CodeInternal = "INTERNAL"

	// CodeUnavailable indicates the data source behind the head cannot be reached.
	CodeUnavailable = "UNAVAILABLE"

	// Domain-specific error codes

	// CodeValidation indicates input validation failed.
	CodeValidation = "VALIDATION_ERROR"

	// CodeTimeout indicates an operation timed out.
	CodeTimeout = "TIMEOUT"

	// CodeAgentError indicates a per-node agent replied with an error.
	CodeAgentError = "AGENT_ERROR"

	// CodeStreamError indicates a failure while producing a log stream.
	CodeStreamError = "STREAM_ERROR"
)
