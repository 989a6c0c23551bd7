package gateway

import (
	"bufio"
	"fmt"
	"net"
	"net/http"

	"github.com/DeBrosOfficial/statehead/pkg/errors"
	"github.com/DeBrosOfficial/statehead/pkg/httputil"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

type statusResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Flush keeps streamed log responses incremental behind the logger.
func (w *statusResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the WebSocket upgrader take over the connection.
func (w *statusResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// writeEnvelope writes a query reply.
func writeEnvelope(w http.ResponseWriter, code int, env state.Envelope) {
	httputil.WriteJSON(w, code, env)
}

// writeFailure writes success=false with the status the error maps to:
// 400 for bad input, 200 for an unreachable data source (the query was
// understood, the answer is just not available), the error's own status
// otherwise.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.IsValidation(err):
		writeEnvelope(w, http.StatusBadRequest, state.Fail(err.Error()))
	case errors.IsDataSourceUnavailable(err):
		writeEnvelope(w, http.StatusOK, state.Fail(err.Error()))
	default:
		writeInternalError(w, err)
	}
}

// writeInternalError hands an unexpected error to the transport layer.
func writeInternalError(w http.ResponseWriter, err error) {
	code := errors.StatusCode(err)
	if code < http.StatusBadRequest {
		code = http.StatusInternalServerError
	}
	writeEnvelope(w, code, state.Fail(errors.GetErrorMessage(err)))
}
