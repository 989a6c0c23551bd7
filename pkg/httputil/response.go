package httputil

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code.
// It sets the Content-Type header to application/json and encodes the value as JSON.
// Any encoding errors are silently ignored (best-effort).
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a standardized JSON error response.
// The response format is: {"error": "message"}
func WriteError(w http.ResponseWriter, code int, msg string) {
	WriteJSON(w, code, map[string]any{"error": msg})
}

// PrepareStream commits the headers of a chunked plain-text response and
// flushes them so the client sees the channel open before any data exists.
// It returns the flusher, or nil when the writer cannot stream.
func PrepareStream(w http.ResponseWriter, contentType string) http.Flusher {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil
	}
	flusher.Flush()
	return flusher
}
