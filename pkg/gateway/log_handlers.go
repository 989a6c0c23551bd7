package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/statehead/pkg/errors"
	"github.com/DeBrosOfficial/statehead/pkg/httputil"
	"github.com/DeBrosOfficial/statehead/pkg/logging"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

const (
	msgNoNode      = "Both node id and node ip are not provided. Please provide at least one of them."
	msgUnknownIP   = "Cannot find matching node_id for a given node ip %s"
	msgStreamFault = "Closing HTTP stream due to internal server error:\n%s"
	msgStreamEnded = "Closing HTTP stream because the server is shutting down\n"
	headerStreamID = "X-Log-Stream-Id"
)

// resolveNode picks the target node: node_id wins, otherwise node_ip is
// looked up. It returns a non-empty message when neither works.
func (g *Gateway) resolveNode(opts state.LogOptions) (state.NodeID, string, error) {
	if opts.NodeID != "" {
		if !httputil.ValidateNodeID(string(opts.NodeID)) {
			return "", "", errors.NewValidationError("node_id", "invalid node id", opts.NodeID)
		}
		return opts.NodeID, "", nil
	}
	if opts.NodeIP == "" {
		return "", msgNoNode, nil
	}
	if !httputil.ValidateIP(opts.NodeIP) {
		return "", "", errors.NewValidationError("node_ip", "invalid ip address", opts.NodeIP)
	}
	id, ok := g.logs.IPToNodeID(opts.NodeIP)
	if !ok {
		return "", fmt.Sprintf(msgUnknownIP, opts.NodeIP), nil
	}
	return id, "", nil
}

// listLogsHandler handles GET /logs?glob=&node_id=&node_ip=&timeout=
func (g *Gateway) listLogsHandler(w http.ResponseWriter, r *http.Request) {
	opts, err := state.ParseLogListOptions(r.URL.Query())
	if err != nil {
		writeFailure(w, err)
		return
	}
	nodeID, msg, err := g.resolveNode(opts)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if msg != "" {
		writeEnvelope(w, http.StatusOK, state.Fail(msg))
		return
	}

	glob := httputil.QueryParam(r, "glob", state.DefaultLogGlob)
	if !httputil.ValidateGlob(glob) {
		writeFailure(w, errors.NewValidationError("glob", "malformed glob pattern", glob))
		return
	}

	names, err := g.logs.ListLogs(r.Context(), nodeID, opts.Timeout, glob)
	if err != nil {
		g.logger.ComponentWarn(logging.ComponentGateway, "Log listing failed",
			zap.String("node_id", string(nodeID)), zap.Error(err))
		writeFailure(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, state.OK(names, ""))
}

// retrieveLogsHandler handles GET /logs/{media_type}. Once the node is
// resolved the response channel is opened before any data exists; from
// then on every failure is reported inline and the channel closed.
func (g *Gateway) retrieveLogsHandler(w http.ResponseWriter, r *http.Request) {
	opts, err := state.ParseLogOptions(r.URL.Query(), chi.URLParam(r, "media_type"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	nodeID, msg, err := g.resolveNode(opts)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if msg != "" {
		writeEnvelope(w, http.StatusOK, state.Fail(msg))
		return
	}
	opts.NodeID = nodeID

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(g.streams, cancel)
	defer stop()

	streamID := uuid.NewString()
	var out logWriter
	if g.cfg.EnableWebSocket && websocket.IsWebSocketUpgrade(r) {
		out, err = newWSLogWriter(w, r, streamID, cancel)
		if err != nil {
			g.logger.ComponentWarn(logging.ComponentGateway, "WebSocket upgrade failed", zap.Error(err))
			return
		}
	} else {
		w.Header().Set(headerStreamID, streamID)
		out = newHTTPLogWriter(w)
	}
	defer out.Close()

	mt := string(opts.MediaType)
	g.metrics.LogStreamOpened(mt)
	defer g.metrics.LogStreamClosed(mt)

	log := func(msg string, fields ...zap.Field) {
		g.logger.ComponentDebug(logging.ComponentGateway, msg, append([]zap.Field{
			zap.String("stream_id", streamID),
			zap.String("node_id", string(nodeID)),
			zap.String("media_type", mt),
		}, fields...)...)
	}
	log("Log stream opened")

	chunks, err := g.logs.StreamLogs(ctx, opts)
	if err != nil {
		g.streamFault(out, streamID, err)
		return
	}

	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				if g.streams.Err() != nil {
					g.streamShutdown(out, log)
					return
				}
				log("Log stream finished")
				return
			}
			if c.Err != nil {
				g.streamFault(out, streamID, c.Err)
				return
			}
			if err := out.WriteChunk(c.Data); err != nil {
				log("Client went away", zap.Error(err))
				return
			}
		case <-ctx.Done():
			if g.streams.Err() != nil {
				g.streamShutdown(out, log)
				return
			}
			log("Log stream cancelled")
			return
		}
	}
}

// streamShutdown tells the client the stream ended on purpose, so a
// followed log that stops at shutdown is not read as a truncated one.
func (g *Gateway) streamShutdown(out logWriter, log func(string, ...zap.Field)) {
	log("Log stream closed by shutdown")
	_ = out.WriteFault(msgStreamEnded)
}

// streamFault reports a failure on an already open channel.
func (g *Gateway) streamFault(out logWriter, streamID string, err error) {
	g.logger.ComponentError(logging.ComponentGateway, "Log stream failed",
		zap.String("stream_id", streamID),
		zap.String("code", errors.GetErrorCode(err)),
		zap.Error(err))
	_ = out.WriteFault(fmt.Sprintf(msgStreamFault, err.Error()))
}
