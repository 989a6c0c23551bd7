// Package membership turns the control plane's node table into registry
// change events. It polls the table, diffs it against the last snapshot and
// submits one event per endpoint that appeared, moved or went away. It also
// serves as the head's node directory (id to ip, ip to id).
package membership

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/DeBrosOfficial/statehead/pkg/logging"
	"github.com/DeBrosOfficial/statehead/pkg/metrics"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

// NodeSource lists the cluster's nodes.
type NodeSource interface {
	ListNodes(ctx context.Context) ([]state.NodeRecord, error)
}

// EventSink receives change events in order.
type EventSink interface {
	Submit(ctx context.Context, ev state.ChangeEvent) error
}

const defaultInterval = 5 * time.Second

// Watcher polls a NodeSource and feeds an EventSink.
type Watcher struct {
	source   NodeSource
	sink     EventSink
	interval time.Duration
	logger   *logging.ColoredLogger
	metrics  metrics.HeadMetrics

	// sf also keeps refreshes from overlapping, so events leave in snapshot order.
	sf singleflight.Group

	mu    sync.RWMutex
	nodes map[state.NodeID]state.NodeRecord
	byIP  map[string]state.NodeID
}

// New creates a watcher. interval is the poll period of Run.
func New(source NodeSource, sink EventSink, interval time.Duration, logger *logging.ColoredLogger, m metrics.HeadMetrics) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Watcher{
		source:   source,
		sink:     sink,
		interval: interval,
		logger:   logger,
		metrics:  m,
		nodes:    make(map[state.NodeID]state.NodeRecord),
		byIP:     make(map[string]state.NodeID),
	}
}

// Run refreshes once immediately, then every interval until ctx ends.
// Refresh failures are logged and retried on the next tick.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.ComponentInfo(logging.ComponentMembership, "Membership watcher started",
		zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.Refresh(ctx); err != nil && ctx.Err() == nil {
			w.logger.ComponentWarn(logging.ComponentMembership, "Failed to refresh node table", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.logger.ComponentInfo(logging.ComponentMembership, "Membership watcher stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Refresh reads the node table once and submits the resulting events.
// Concurrent callers share a single read.
func (w *Watcher) Refresh(ctx context.Context) error {
	_, err, _ := w.sf.Do("refresh", func() (interface{}, error) {
		return nil, w.refresh(ctx)
	})
	return err
}

func (w *Watcher) refresh(ctx context.Context) error {
	start := time.Now()
	records, err := w.source.ListNodes(ctx)
	w.metrics.MembershipRefreshed(time.Since(start), err)
	if err != nil {
		return err
	}

	next := make(map[state.NodeID]state.NodeRecord, len(records))
	for _, n := range records {
		if n.NodeID == "" || !n.Alive() {
			continue
		}
		next[n.NodeID] = n
	}

	w.mu.Lock()
	prev := w.nodes
	w.nodes = next
	w.byIP = make(map[string]state.NodeID, len(next))
	for _, id := range sortedIDs(next) {
		if ip := next[id].NodeIP; ip != "" {
			if _, taken := w.byIP[ip]; !taken {
				w.byIP[ip] = id
			}
		}
	}
	w.mu.Unlock()

	events := Diff(prev, next)
	if len(events) > 0 {
		w.logger.ComponentInfo(logging.ComponentMembership, "Membership changed",
			zap.Int("events", len(events)),
			zap.Int("nodes", len(next)))
	}
	for _, ev := range events {
		if err := w.sink.Submit(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// NodeIP returns the address of a live node.
func (w *Watcher) NodeIP(id state.NodeID) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n, ok := w.nodes[id]
	if !ok || n.NodeIP == "" {
		return "", false
	}
	return n.NodeIP, true
}

// IPToNodeID returns the live node that has ip. If several nodes share an
// address the smallest id wins.
func (w *Watcher) IPToNodeID(ip string) (state.NodeID, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	id, ok := w.byIP[ip]
	return id, ok
}

// Diff computes the change events that turn prev into next. Both maps hold
// live nodes only. Events are ordered by node id, primary before sidecar.
func Diff(prev, next map[state.NodeID]state.NodeRecord) []state.ChangeEvent {
	ids := make(map[state.NodeID]struct{}, len(prev)+len(next))
	for id := range prev {
		ids[id] = struct{}{}
	}
	for id := range next {
		ids[id] = struct{}{}
	}
	ordered := make([]state.NodeID, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	var events []state.ChangeEvent
	for _, id := range ordered {
		before, had := prev[id]
		after, has := next[id]

		if ev, ok := endpointChange(state.EndpointPrimary, id,
			primaryOf(before, had), primaryOf(after, has)); ok {
			events = append(events, ev)
		}
		if ev, ok := endpointChange(state.EndpointSidecar, id,
			sidecarOf(before, had), sidecarOf(after, has)); ok {
			events = append(events, ev)
		}
	}
	return events
}

func primaryOf(n state.NodeRecord, present bool) *state.NodeInfo {
	if !present || n.PrimaryPort <= 0 {
		return nil
	}
	return &state.NodeInfo{Address: n.NodeIP, Port: n.PrimaryPort}
}

// Sidecar events carry the port only; the address is tracked so that a node
// moving to a new IP still produces an overwrite.
func sidecarOf(n state.NodeRecord, present bool) *state.NodeInfo {
	if !present || n.SidecarPort <= 0 {
		return nil
	}
	return &state.NodeInfo{Address: n.NodeIP, Port: n.SidecarPort}
}

func endpointChange(kind state.EndpointKind, id state.NodeID, before, after *state.NodeInfo) (state.ChangeEvent, bool) {
	if before == nil && after == nil {
		return state.ChangeEvent{}, false
	}
	if before != nil && after != nil && *before == *after {
		return state.ChangeEvent{}, false
	}
	ev := state.ChangeEvent{Kind: kind}
	if before != nil {
		ev.Old = &state.NodeChange{NodeID: id, Info: wire(kind, *before)}
	}
	if after != nil {
		ev.New = &state.NodeChange{NodeID: id, Info: wire(kind, *after)}
	}
	return ev, true
}

func wire(kind state.EndpointKind, info state.NodeInfo) state.NodeInfo {
	if kind == state.EndpointSidecar {
		return state.NodeInfo{Port: info.Port}
	}
	return info
}

func sortedIDs(m map[state.NodeID]state.NodeRecord) []state.NodeID {
	ids := make([]state.NodeID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
