package controlplane

import (
	"context"
	"sort"
	"sync"

	"github.com/DeBrosOfficial/statehead/pkg/errors"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

// Memory is an in-process control plane. It backs single-binary
// deployments seeded from a YAML file, and tests.
type Memory struct {
	mu          sync.RWMutex
	nodes       map[state.NodeID]state.NodeRecord
	records     map[state.Kind]map[string]state.Record
	unavailable error
}

// NewMemory creates an empty in-memory control plane.
func NewMemory() *Memory {
	return &Memory{
		nodes:   make(map[state.NodeID]state.NodeRecord),
		records: make(map[state.Kind]map[string]state.Record),
	}
}

// SetUnavailable makes every call fail as if the store could not be
// reached. Passing nil restores normal operation.
func (m *Memory) SetUnavailable(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = cause
}

func (m *Memory) check() error {
	if m.unavailable != nil {
		return errors.NewDataSourceUnavailableError("control plane", "", m.unavailable)
	}
	return nil
}

// ListNodes returns every node, sorted by id.
func (m *Memory) ListNodes(ctx context.Context) ([]state.NodeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	out := make([]state.NodeRecord, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out, nil
}

// ListRecords returns every record of a kind, sorted by id.
func (m *Memory) ListRecords(ctx context.Context, kind state.Kind) ([]state.Record, error) {
	if err := checkKind(kind, false); err != nil {
		return nil, err
	}
	if kind == state.KindNodes {
		nodes, err := m.ListNodes(ctx)
		if err != nil {
			return nil, err
		}
		return nodeRecords(nodes), nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	byID := m.records[kind]
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]state.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyRecord(byID[id]))
	}
	return out, nil
}

// GetRecord returns one record or a NotFoundError.
func (m *Memory) GetRecord(ctx context.Context, kind state.Kind, id string) (state.Record, error) {
	if err := checkKind(kind, false); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	if kind == state.KindNodes {
		n, ok := m.nodes[state.NodeID(id)]
		if !ok {
			return nil, errors.NewNotFoundError("node", id)
		}
		return n.Record(), nil
	}
	rec, ok := m.records[kind][id]
	if !ok {
		return nil, errors.NewNotFoundError(string(kind), id)
	}
	return copyRecord(rec), nil
}

// UpsertNode inserts or replaces a node row.
func (m *Memory) UpsertNode(ctx context.Context, n state.NodeRecord) error {
	if n.NodeID == "" {
		return errors.NewValidationError("node_id", "must not be empty", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.nodes[n.NodeID] = n
	return nil
}

// PutRecord inserts or replaces a record.
func (m *Memory) PutRecord(ctx context.Context, kind state.Kind, rec state.Record) error {
	if err := checkKind(kind, true); err != nil {
		return err
	}
	id, err := recordID(kind, rec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	if m.records[kind] == nil {
		m.records[kind] = make(map[string]state.Record)
	}
	m.records[kind][id] = copyRecord(rec)
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func copyRecord(r state.Record) state.Record {
	out := make(state.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
