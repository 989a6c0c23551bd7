package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/statehead/pkg/logging"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

// NodeWriter stores node rows.
type NodeWriter interface {
	UpsertNode(ctx context.Context, n state.NodeRecord) error
}

// Registrar keeps this node's row in the control plane fresh and marks it
// DEAD on shutdown.
type Registrar struct {
	writer   NodeWriter
	node     state.NodeRecord
	interval time.Duration
	logger   *logging.ColoredLogger
}

// NewRegistrar creates a registrar for node.
func NewRegistrar(writer NodeWriter, node state.NodeRecord, interval time.Duration, logger *logging.ColoredLogger) *Registrar {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registrar{writer: writer, node: node, interval: interval, logger: logger}
}

// Run heartbeats until ctx ends. Write failures are logged and retried on
// the next tick.
func (r *Registrar) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.beat(ctx, state.NodeAlive)
		select {
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			r.beat(stopCtx, state.NodeDead)
			cancel()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Registrar) beat(ctx context.Context, status string) {
	n := r.node
	n.State = status
	n.LastHeartbeat = time.Now()
	if err := r.writer.UpsertNode(ctx, n); err != nil {
		if ctx.Err() == nil {
			r.logger.ComponentWarn(logging.ComponentAgent, "Failed to write node row",
				zap.String("node_id", string(n.NodeID)),
				zap.String("state", status),
				zap.Error(err))
		}
		return
	}
	if status == state.NodeDead {
		r.logger.ComponentInfo(logging.ComponentAgent, "Node marked dead", zap.String("node_id", string(n.NodeID)))
	}
}
