// Package agent is the per-node process the head fans out to. The primary
// agent reports the node's tasks and objects; the sidecar agent reports
// runtime envs and serves the node's log directory.
package agent

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/statehead/pkg/errors"
	"github.com/DeBrosOfficial/statehead/pkg/httputil"
	"github.com/DeBrosOfficial/statehead/pkg/logging"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

// Server serves a node's local state over HTTP.
type Server struct {
	nodeID   state.NodeID
	store    *LocalState
	logDir   string
	interval time.Duration
	logger   *logging.ColoredLogger
}

// NewServer creates an agent server. interval is the default poll period
// for followed logs.
func NewServer(nodeID state.NodeID, store *LocalState, logDir string, interval time.Duration, logger *logging.ColoredLogger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	if store == nil {
		store = NewLocalState()
	}
	return &Server{nodeID: nodeID, store: store, logDir: logDir, interval: interval, logger: logger}
}

// PrimaryRoutes returns the primary agent's handler.
func (s *Server) PrimaryRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/api/local/health", s.healthHandler)
	r.Get("/api/local/tasks", s.listHandler(state.KindTasks))
	r.Get("/api/local/objects", s.listHandler(state.KindObjects))
	return r
}

// SidecarRoutes returns the sidecar agent's handler.
func (s *Server) SidecarRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/api/local/health", s.healthHandler)
	r.Get("/api/local/runtime_envs", s.listHandler(state.KindRuntimeEnvs))
	r.Get("/api/local/logs", s.listLogsHandler)
	r.Get("/api/local/logs/{media_type}", s.tailLogHandler)
	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"node_id": s.nodeID,
	})
}

func (s *Server) listHandler(kind state.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := state.ParseListOptions(r.URL.Query())
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"result": s.store.List(kind, opts.Filters, opts.Limit),
		})
	}
}

func (s *Server) listLogsHandler(w http.ResponseWriter, r *http.Request) {
	glob := httputil.QueryParam(r, "glob", state.DefaultLogGlob)
	if !httputil.ValidateGlob(glob) || strings.ContainsAny(glob, `/\`) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid glob "+glob)
		return
	}
	files, err := s.listLogs(glob)
	if err != nil {
		s.logger.ComponentError(logging.ComponentAgent, "Failed to list logs", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"result": files})
}

func (s *Server) listLogs(glob string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.logDir, glob))
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, filepath.Base(m))
	}
	sort.Strings(files)
	return files, nil
}

func (s *Server) tailLogHandler(w http.ResponseWriter, r *http.Request) {
	opts, err := state.ParseLogOptions(r.URL.Query(), chi.URLParam(r, "media_type"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !httputil.ValidateLogFilename(opts.Filename) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid filename "+opts.Filename)
		return
	}
	path := filepath.Join(s.logDir, opts.Filename)

	data, offset, err := TailLines(path, opts.Lines)
	if err != nil {
		if os.IsNotExist(err) {
			httputil.WriteError(w, http.StatusNotFound, errors.NewNotFoundError("log file", opts.Filename).Error())
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	flusher := httputil.PrepareStream(w, "text/plain")
	emit := func(b []byte) error {
		if _, err := w.Write(b); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}
	if len(data) > 0 {
		if err := emit(data); err != nil {
			return
		}
	}
	if opts.MediaType != state.MediaStream {
		return
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = s.interval
	}
	s.logger.ComponentDebug(logging.ComponentAgent, "Following log",
		zap.String("file", opts.Filename),
		zap.Duration("interval", interval))
	if err := Follow(r.Context(), path, offset, interval, emit); err != nil && r.Context().Err() == nil {
		s.logger.ComponentWarn(logging.ComponentAgent, "Log follow ended",
			zap.String("file", opts.Filename),
			zap.Error(err))
	}
}
