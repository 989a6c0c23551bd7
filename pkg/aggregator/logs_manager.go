package aggregator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/statehead/pkg/controlplane"
	"github.com/DeBrosOfficial/statehead/pkg/errors"
	"github.com/DeBrosOfficial/statehead/pkg/logging"
	"github.com/DeBrosOfficial/statehead/pkg/metrics"
	"github.com/DeBrosOfficial/statehead/pkg/registry"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

const readChunkSize = 32 * 1024

// Sidecars looks up the log-serving agent of a node.
type Sidecars interface {
	Sidecar(id state.NodeID) (registry.Entry, bool)
}

// IPResolver maps a node ip to its node id.
type IPResolver interface {
	IPToNodeID(ip string) (state.NodeID, bool)
}

// LogsManager lists and retrieves log files through sidecar agents.
type LogsManager struct {
	cp       controlplane.ControlPlane
	sidecars Sidecars
	ips      IPResolver
	buffer   int
	logger   *logging.ColoredLogger
	metrics  metrics.HeadMetrics
}

// NewLogsManager creates a logs manager. buffer is the capacity of the
// chunk channel handed to the gateway; it bounds how far the producer can
// run ahead of a slow client.
func NewLogsManager(cp controlplane.ControlPlane, sidecars Sidecars, ips IPResolver, buffer int, logger *logging.ColoredLogger, m metrics.HeadMetrics) *LogsManager {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &LogsManager{cp: cp, sidecars: sidecars, ips: ips, buffer: buffer, logger: logger, metrics: m}
}

// IPToNodeID resolves a node ip using the current membership snapshot.
func (lm *LogsManager) IPToNodeID(ip string) (state.NodeID, bool) {
	if lm.ips == nil {
		return "", false
	}
	return lm.ips.IPToNodeID(ip)
}

// ListLogs returns the log file names on a node matching glob, sorted.
func (lm *LogsManager) ListLogs(ctx context.Context, nodeID state.NodeID, timeout time.Duration, glob string) ([]string, error) {
	entry, err := lm.sidecar(nodeID)
	if err != nil {
		return nil, err
	}
	if glob == "" {
		glob = state.DefaultLogGlob
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	names, err := entry.Stub.ListLogs(ctx, glob)
	if err != nil {
		return nil, lm.agentFailure(nodeID, err)
	}
	sort.Strings(names)
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// StreamLogs resolves the target file, opens it on the node's agent and
// returns a channel of chunks. The channel is closed when the file (file
// mode) or the follow (stream mode) ends. A failure after the first chunk
// arrives as a final chunk with Err set. Cancelling ctx stops the producer.
func (lm *LogsManager) StreamLogs(ctx context.Context, opts state.LogOptions) (<-chan state.LogChunk, error) {
	if opts.NodeID == "" {
		return nil, errors.NewValidationError("node_id", "a resolved node id is required", nil)
	}
	entry, err := lm.sidecar(opts.NodeID)
	if err != nil {
		return nil, err
	}

	// A file retrieval must finish within the timeout, transfer included.
	// A followed stream runs until the caller goes away.
	var (
		openCtx    context.Context
		cancelOpen context.CancelFunc
	)
	if opts.MediaType != state.MediaStream && opts.Timeout > 0 {
		openCtx, cancelOpen = context.WithTimeout(ctx, opts.Timeout)
	} else {
		openCtx, cancelOpen = context.WithCancel(ctx)
	}

	filename, err := lm.resolveFilename(openCtx, entry, opts)
	if err != nil {
		cancelOpen()
		return nil, err
	}

	body, err := entry.Stub.TailLog(openCtx, state.TailRequest{
		Filename: filename,
		Lines:    opts.Lines,
		Follow:   opts.MediaType == state.MediaStream,
		Interval: opts.Interval,
	})
	if err != nil {
		cancelOpen()
		if errors.IsNotFound(err) || errors.IsValidation(err) {
			return nil, err
		}
		return nil, lm.agentFailure(opts.NodeID, err)
	}

	lm.logger.ComponentDebug(logging.ComponentAggregator, "Log stream opened",
		zap.String("node_id", string(opts.NodeID)),
		zap.String("filename", filename),
		zap.String("media_type", string(opts.MediaType)))

	out := make(chan state.LogChunk, lm.buffer)
	go lm.pump(ctx, cancelOpen, body, out)
	return out, nil
}

// pump copies the agent body into out. Sends wait on the caller's ctx, not
// the retrieval deadline, so a timeout still reaches the consumer.
func (lm *LogsManager) pump(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, out chan<- state.LogChunk) {
	defer close(out)
	defer cancel()
	defer body.Close()

	send := func(c state.LogChunk) bool {
		select {
		case out <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}

	buf := make([]byte, readChunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			lm.metrics.LogBytesStreamed(n)
			if !send(state.LogChunk{Data: bytes.Clone(buf[:n])}) {
				return
			}
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			send(state.LogChunk{Err: errors.Wrap(err, "log stream interrupted")})
			return
		}
	}
}

// resolveFilename picks the file to read: an explicit filename wins, then
// the actor's worker pid, then a pid.
func (lm *LogsManager) resolveFilename(ctx context.Context, entry registry.Entry, opts state.LogOptions) (string, error) {
	switch {
	case opts.Filename != "":
		return opts.Filename, nil
	case opts.ActorID != "":
		pid, err := lm.actorPID(ctx, opts.ActorID, opts.NodeID)
		if err != nil {
			return "", err
		}
		return lm.fileForPID(ctx, entry, pid)
	case opts.TaskID != "":
		return "", errors.NewValidationError("task_id", "not supported yet", opts.TaskID)
	case opts.PID != "":
		return lm.fileForPID(ctx, entry, opts.PID)
	}
	return "", errors.NewValidationError("filename",
		"one of filename, actor_id, task_id or pid must be provided", nil)
}

func (lm *LogsManager) actorPID(ctx context.Context, actorID string, nodeID state.NodeID) (string, error) {
	rec, err := lm.cp.GetRecord(ctx, state.KindActors, actorID)
	if err != nil {
		return "", err
	}
	if on := rec.Field("node_id"); on != "" && on != string(nodeID) {
		return "", errors.NewValidationError("actor_id",
			fmt.Sprintf("actor %s runs on node %s, not %s", actorID, on, nodeID), actorID)
	}
	pid := rec.Field("pid")
	if pid == "" || pid == "0" {
		return "", errors.NewNotFoundError("worker pid of actor", actorID)
	}
	return pid, nil
}

func (lm *LogsManager) fileForPID(ctx context.Context, entry registry.Entry, pid string) (string, error) {
	if !state.ValidPID(pid) {
		return "", errors.NewValidationError("pid", "must be a positive integer", pid)
	}
	names, err := entry.Stub.ListLogs(ctx, "*-"+pid+".out")
	if err != nil {
		return "", lm.agentFailure(entry.NodeID, err)
	}
	if len(names) == 0 {
		return "", errors.NewNotFoundError("log file of pid", pid)
	}
	sort.Strings(names)
	return names[0], nil
}

func (lm *LogsManager) sidecar(nodeID state.NodeID) (registry.Entry, error) {
	entry, ok := lm.sidecars.Sidecar(nodeID)
	if !ok || entry.Stub == nil {
		return registry.Entry{}, errors.NewDataSourceUnavailableError("agent",
			fmt.Sprintf("node %s is not available: it is either dead or not registered yet", nodeID), nil)
	}
	return entry, nil
}

// agentFailure keeps agent-reported input errors as they are and turns
// transport failures into DataSourceUnavailable.
func (lm *LogsManager) agentFailure(nodeID state.NodeID, err error) error {
	var ae *errors.AgentError
	if errors.As(err, &ae) && ae.StatusCode >= 400 && ae.StatusCode < 500 {
		return err
	}
	if errors.IsNotFound(err) || errors.IsCancelled(err) {
		return err
	}
	return errors.NewDataSourceUnavailableError("agent",
		fmt.Sprintf("failed to reach the agent of node %s", nodeID), err)
}
