package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		data       any
		wantStatus int
		wantBody   string
	}{
		{
			name:       "envelope",
			code:       http.StatusOK,
			data:       map[string]any{"success": true, "message": "", "result": []string{}},
			wantStatus: http.StatusOK,
			wantBody:   `{"message":"","result":[],"success":true}`,
		},
		{
			name:       "array",
			code:       http.StatusCreated,
			data:       []string{"a", "b", "c"},
			wantStatus: http.StatusCreated,
			wantBody:   `["a","b","c"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteJSON(w, tt.code, tt.data)

			if w.Code != tt.wantStatus {
				t.Errorf("WriteJSON() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if contentType := w.Header().Get("Content-Type"); contentType != "application/json" {
				t.Errorf("WriteJSON() Content-Type = %v, want application/json", contentType)
			}

			var got, want any
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if err := json.Unmarshal([]byte(tt.wantBody), &want); err != nil {
				t.Fatalf("failed to unmarshal expected: %v", err)
			}
			gotJSON, _ := json.Marshal(got)
			wantJSON, _ := json.Marshal(want)
			if string(gotJSON) != string(wantJSON) {
				t.Errorf("WriteJSON() body = %s, want %s", gotJSON, wantJSON)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusBadRequest, "limit must be an integer")

	if w.Code != http.StatusBadRequest {
		t.Errorf("WriteError() status = %v, want %v", w.Code, http.StatusBadRequest)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body["error"] != "limit must be an integer" {
		t.Errorf("WriteError() error = %v", body["error"])
	}
}

func TestPrepareStream(t *testing.T) {
	w := httptest.NewRecorder()
	flusher := PrepareStream(w, "text/plain")

	if flusher == nil {
		t.Fatal("PrepareStream() returned nil flusher for a recorder")
	}
	if !w.Flushed {
		t.Error("PrepareStream() did not flush headers")
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
