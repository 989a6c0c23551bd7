package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("filter_keys", "filter_keys and filter_values must have the same length", 3)

	if got := err.Error(); got != "validation error: filter_keys: filter_keys and filter_values must have the same length" {
		t.Errorf("Error() = %q", got)
	}
	if err.Code() != CodeValidation {
		t.Errorf("Code() = %q, want %q", err.Code(), CodeValidation)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("validation error should match ErrInvalidInput")
	}
	if !IsValidation(fmt.Errorf("parse: %w", err)) {
		t.Error("IsValidation should see through wrapping")
	}
	if err.StackTrace() == "" {
		t.Error("expected a captured stack trace")
	}
}

func TestDataSourceUnavailableError(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:4001: connection refused")
	err := NewDataSourceUnavailableError("control plane", "", cause)

	if !IsDataSourceUnavailable(err) {
		t.Fatal("IsDataSourceUnavailable() = false")
	}
	if !IsDataSourceUnavailable(fmt.Errorf("list actors: %w", err)) {
		t.Fatal("IsDataSourceUnavailable() should see through wrapping")
	}
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Error("should match ErrServiceUnavailable")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() = %q, want cause included", err.Error())
	}
	if err.Message() != "failed to query the data source control plane" {
		t.Errorf("Message() = %q", err.Message())
	}
	if IsDataSourceUnavailable(errors.New("boom")) {
		t.Error("plain error must not be classified as data source unavailable")
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("node", "abc")
	if err.Error() != "node with ID 'abc' not found" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !IsNotFound(err) || !errors.Is(err, ErrNotFound) {
		t.Error("expected not-found classification")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Fatal("Wrap(nil) should be nil")
	}

	typed := NewTimeoutError("list tasks", "30s")
	wrapped := Wrap(typed, "fan-out")
	if GetErrorCode(wrapped) != CodeTimeout {
		t.Errorf("GetErrorCode() = %q, want %q", GetErrorCode(wrapped), CodeTimeout)
	}
	if !errors.Is(wrapped, ErrTimeout) {
		t.Error("wrapped timeout should match ErrTimeout")
	}

	plain := Wrapf(errors.New("eof"), "reading %s", "chunk")
	var internal *InternalError
	if !errors.As(plain, &internal) {
		t.Fatal("plain errors should be wrapped as InternalError")
	}
	if plain.Error() != "reading chunk: eof" {
		t.Errorf("Error() = %q", plain.Error())
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, CodeOK},
		{"validation", NewValidationError("limit", "not a number", "x"), CodeValidation},
		{"unavailable", NewDataSourceUnavailableError("gcs", "", nil), CodeUnavailable},
		{"agent", NewAgentError("n1", 500, ""), CodeAgentError},
		{"deadline", context.DeadlineExceeded, CodeTimeout},
		{"cancelled", context.Canceled, CodeCancelled},
		{"unsupported", fmt.Errorf("task_id: %w", ErrUnsupported), CodeUnimplemented},
		{"plain", errors.New("boom"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.want {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", NewValidationError("lines", "bad", "x"), http.StatusBadRequest},
		{"not found", NewNotFoundError("log file", "raylet.out"), http.StatusNotFound},
		{"unavailable", NewDataSourceUnavailableError("gcs", "", nil), http.StatusServiceUnavailable},
		{"agent", NewAgentError("n1", 500, ""), http.StatusBadGateway},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unsupported", ErrUnsupported, http.StatusNotImplemented},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
