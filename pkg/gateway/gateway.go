// Package gateway is the head's HTTP query surface: one list endpoint per
// entity kind and the log listing and retrieval endpoints.
package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/statehead/pkg/logging"
	"github.com/DeBrosOfficial/statehead/pkg/metrics"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

// Config holds configuration for the gateway server
type Config struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
	EnableWebSocket bool
	EnableMetrics   bool
}

// ListFunc serves one entity kind. The dispatcher calls it after the
// query string has been translated.
type ListFunc func(ctx context.Context, opts state.ListOptions) (*state.ListResult, error)

// LogService lists and retrieves node log files.
type LogService interface {
	ListLogs(ctx context.Context, nodeID state.NodeID, timeout time.Duration, glob string) ([]string, error)
	IPToNodeID(ip string) (state.NodeID, bool)
	StreamLogs(ctx context.Context, opts state.LogOptions) (<-chan state.LogChunk, error)
}

// RegistryStats reports how many agents of each kind are registered.
type RegistryStats interface {
	Len() (primary, sidecar int)
}

type Gateway struct {
	logger    *logging.ColoredLogger
	cfg       *Config
	lists     map[state.Kind]ListFunc
	logs      LogService
	registry  RegistryStats
	metrics   metrics.HeadMetrics
	gatherer  prometheus.Gatherer
	startedAt time.Time
	mu        sync.Mutex
	server    *http.Server
	closed    bool

	// streams is cancelled on shutdown so followed log streams end.
	streams     context.Context
	stopStreams context.CancelFunc
}

// New creates a gateway from its dependencies.
func New(logger *logging.ColoredLogger, cfg *Config, deps *Dependencies) *Gateway {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.Nop()
	}
	gw := &Gateway{
		logger:    logger,
		cfg:       cfg,
		lists:     deps.Lists(),
		logs:      deps.Logs,
		registry:  deps.Registry,
		metrics:   m,
		gatherer:  deps.Gatherer,
		startedAt: time.Now(),
	}
	gw.streams, gw.stopStreams = context.WithCancel(context.Background())
	logger.ComponentInfo(logging.ComponentGateway, "Gateway created",
		zap.String("listen_addr", cfg.ListenAddr),
		zap.Int("list_routes", len(gw.lists)),
		zap.Bool("websocket", cfg.EnableWebSocket),
		zap.Bool("metrics", cfg.EnableMetrics && gw.gatherer != nil))
	return gw
}
