// Package registry keeps the head's view of reachable per-node agents. It is
// mutated only by membership ChangeEvents, which a single owner goroutine
// applies in arrival order; request handlers only read it.
package registry

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/statehead/pkg/errors"
	"github.com/DeBrosOfficial/statehead/pkg/logging"
	"github.com/DeBrosOfficial/statehead/pkg/metrics"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

// Stub is the head-side client of one agent endpoint.
type Stub interface {
	List(ctx context.Context, kind state.Kind, opts state.ListOptions) ([]state.Record, error)
	ListLogs(ctx context.Context, glob string) ([]string, error)
	TailLog(ctx context.Context, req state.TailRequest) (io.ReadCloser, error)
	Close() error
}

// Dialer builds a Stub for an endpoint. It must not block on the network.
type Dialer func(ep state.Endpoint) (Stub, error)

// NodeDirectory resolves a node's IP address. Sidecar change events carry
// only a port, so the address comes from here.
type NodeDirectory interface {
	NodeIP(id state.NodeID) (string, bool)
}

// Entry is a registered endpoint together with its client stub.
type Entry struct {
	state.Endpoint
	Stub Stub
}

const eventBuffer = 64

// Registry holds two independent sub-registries keyed by node id: one for
// primary agents and one for sidecar agents.
type Registry struct {
	mu      sync.RWMutex
	primary map[state.NodeID]Entry
	sidecar map[state.NodeID]Entry

	events  chan state.ChangeEvent
	dial    Dialer
	dir     NodeDirectory
	logger  *logging.ColoredLogger
	metrics metrics.HeadMetrics
}

// New creates an empty registry.
func New(dial Dialer, dir NodeDirectory, logger *logging.ColoredLogger, m metrics.HeadMetrics) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Registry{
		primary: make(map[state.NodeID]Entry),
		sidecar: make(map[state.NodeID]Entry),
		events:  make(chan state.ChangeEvent, eventBuffer),
		dial:    dial,
		dir:     dir,
		logger:  logger,
		metrics: m,
	}
}

// Submit enqueues an event for the owner goroutine. It blocks while the
// queue is full and returns ctx.Err() if ctx ends first.
func (r *Registry) Submit(ctx context.Context, ev state.ChangeEvent) error {
	select {
	case r.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies submitted events in order until ctx is cancelled. A rejected
// event is logged and does not stop the loop.
func (r *Registry) Run(ctx context.Context) error {
	r.logger.ComponentInfo(logging.ComponentRegistry, "Registry started")
	for {
		select {
		case <-ctx.Done():
			r.logger.ComponentInfo(logging.ComponentRegistry, "Registry stopped")
			return ctx.Err()
		case ev := <-r.events:
			if err := r.Apply(ev); err != nil {
				r.logger.ComponentWarn(logging.ComponentRegistry, "Rejected change event",
					zap.String("endpoint", ev.Kind.String()),
					zap.Error(err))
			}
		}
	}
}

// Apply processes one event synchronously. For an overwrite the old entry
// is removed and the new one added under a single lock hold, so readers see
// either the old endpoint or the new one, never both or neither. If the new
// side cannot be built the removal still takes effect and an error is
// returned.
func (r *Registry) Apply(ev state.ChangeEvent) error {
	var (
		added  Entry
		hasNew bool
		addErr error
	)
	if ev.New != nil {
		added, addErr = r.build(ev.Kind, ev.New)
		hasNew = addErr == nil
	}

	target := r.primary
	if ev.Kind == state.EndpointSidecar {
		target = r.sidecar
	}

	var closed []Stub
	r.mu.Lock()
	if ev.Old != nil {
		if e, ok := target[ev.Old.NodeID]; ok {
			closed = append(closed, e.Stub)
			delete(target, ev.Old.NodeID)
		}
	}
	if hasNew {
		if e, ok := target[added.NodeID]; ok {
			closed = append(closed, e.Stub)
		}
		target[added.NodeID] = added
	}
	n := len(target)
	r.mu.Unlock()

	for _, s := range closed {
		if s != nil {
			_ = s.Close()
		}
	}
	r.metrics.RegistrySize(ev.Kind.String(), n)

	if ev.Old != nil {
		r.logger.ComponentDebug(logging.ComponentRegistry, "Endpoint removed",
			zap.String("endpoint", ev.Kind.String()),
			zap.String("node_id", string(ev.Old.NodeID)))
	}
	if hasNew {
		r.logger.ComponentInfo(logging.ComponentRegistry, "Endpoint registered",
			zap.String("endpoint", ev.Kind.String()),
			zap.String("node_id", string(added.NodeID)),
			zap.String("address", added.HostPort()))
	}
	return addErr
}

func (r *Registry) build(kind state.EndpointKind, change *state.NodeChange) (Entry, error) {
	if change.NodeID == "" {
		return Entry{}, errors.NewValidationError("node_id", "must not be empty", nil)
	}
	addr := change.Info.Address
	if kind == state.EndpointSidecar {
		if r.dir == nil {
			return Entry{}, fmt.Errorf("no node directory to resolve sidecar of node %s", change.NodeID)
		}
		ip, ok := r.dir.NodeIP(change.NodeID)
		if !ok {
			return Entry{}, errors.NewNotFoundError("node ip", string(change.NodeID))
		}
		addr = ip
	}
	if addr == "" {
		return Entry{}, errors.NewValidationError("address", "must not be empty", nil)
	}
	if change.Info.Port <= 0 || change.Info.Port > 65535 {
		return Entry{}, errors.NewValidationError("port", "must be between 1 and 65535", change.Info.Port)
	}

	ep := state.Endpoint{NodeID: change.NodeID, Address: addr, Port: change.Info.Port}
	var stub Stub
	if r.dial != nil {
		s, err := r.dial(ep)
		if err != nil {
			return Entry{}, errors.Wrapf(err, "dial %s agent of node %s", kind, change.NodeID)
		}
		stub = s
	}
	return Entry{Endpoint: ep, Stub: stub}, nil
}

// Primary returns the primary agent entry of a node.
func (r *Registry) Primary(id state.NodeID) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.primary[id]
	return e, ok
}

// Sidecar returns the sidecar agent entry of a node.
func (r *Registry) Sidecar(id state.NodeID) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sidecar[id]
	return e, ok
}

// PrimaryIDs returns the ids with a primary agent, sorted.
func (r *Registry) PrimaryIDs() []state.NodeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedIDs(r.primary)
}

// SidecarIDs returns the ids with a sidecar agent, sorted.
func (r *Registry) SidecarIDs() []state.NodeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedIDs(r.sidecar)
}

// Primaries returns a snapshot of every primary entry, sorted by node id.
func (r *Registry) Primaries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.primary)
}

// Sidecars returns a snapshot of every sidecar entry, sorted by node id.
func (r *Registry) Sidecars() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.sidecar)
}

// Len returns the sizes of the two sub-registries.
func (r *Registry) Len() (primary, sidecar int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.primary), len(r.sidecar)
}

func sortedIDs(m map[state.NodeID]Entry) []state.NodeID {
	ids := make([]state.NodeID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func snapshot(m map[state.NodeID]Entry) []Entry {
	out := make([]Entry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}
