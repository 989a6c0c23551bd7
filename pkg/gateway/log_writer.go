package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DeBrosOfficial/statehead/pkg/httputil"
)

const wsWriteTimeout = 10 * time.Second

// logWriter is the open response channel of a log retrieval.
type logWriter interface {
	// WriteChunk delivers log bytes. An error means the client is gone.
	WriteChunk(b []byte) error
	// WriteFault reports a failure as text. Nothing else is written after it.
	WriteFault(msg string) error
	Close() error
}

// httpLogWriter streams over a chunked text/plain response.
type httpLogWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newHTTPLogWriter(w http.ResponseWriter) *httpLogWriter {
	return &httpLogWriter{w: w, flusher: httputil.PrepareStream(w, "text/plain; charset=utf-8")}
}

func (h *httpLogWriter) WriteChunk(b []byte) error {
	if _, err := h.w.Write(b); err != nil {
		return err
	}
	if h.flusher != nil {
		h.flusher.Flush()
	}
	return nil
}

func (h *httpLogWriter) WriteFault(msg string) error {
	return h.WriteChunk([]byte(msg))
}

func (h *httpLogWriter) Close() error { return nil }

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsLogWriter streams log bytes as binary frames. A fault is a text frame.
type wsLogWriter struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

// newWSLogWriter upgrades the request. The reader goroutine exists only to
// notice the client closing; it cancels the retrieval when it does.
func newWSLogWriter(w http.ResponseWriter, r *http.Request, streamID string, cancel context.CancelFunc) (*wsLogWriter, error) {
	hdr := http.Header{}
	hdr.Set(headerStreamID, streamID)
	conn, err := wsUpgrader.Upgrade(w, r, hdr)
	if err != nil {
		return nil, err
	}
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return &wsLogWriter{conn: conn}, nil
}

func (s *wsLogWriter) WriteChunk(b []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteMessage(websocket.BinaryMessage, b)
}

func (s *wsLogWriter) WriteFault(msg string) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (s *wsLogWriter) Close() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}
