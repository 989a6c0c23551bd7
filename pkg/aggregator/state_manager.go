// Package aggregator answers list and log queries. Control plane kinds are
// read from the record store; node-local kinds are fanned out to every
// registered agent in parallel, each call bounded by the request timeout,
// and merged. Nodes that fail are named in a partial failure warning
// instead of failing the query.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DeBrosOfficial/statehead/pkg/controlplane"
	"github.com/DeBrosOfficial/statehead/pkg/errors"
	"github.com/DeBrosOfficial/statehead/pkg/logging"
	"github.com/DeBrosOfficial/statehead/pkg/metrics"
	"github.com/DeBrosOfficial/statehead/pkg/registry"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

// Agents exposes snapshots of the registered agent endpoints.
type Agents interface {
	Primaries() []registry.Entry
	Sidecars() []registry.Entry
}

// StateManager implements one list operation per entity kind.
type StateManager struct {
	cp      controlplane.ControlPlane
	agents  Agents
	logger  *logging.ColoredLogger
	metrics metrics.HeadMetrics
}

// NewStateManager creates a state manager.
func NewStateManager(cp controlplane.ControlPlane, agents Agents, logger *logging.ColoredLogger, m metrics.HeadMetrics) *StateManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &StateManager{cp: cp, agents: agents, logger: logger, metrics: m}
}

// ListActors returns actors keyed by actor id.
func (m *StateManager) ListActors(ctx context.Context, opts state.ListOptions) (*state.ListResult, error) {
	return m.fromControlPlane(ctx, state.KindActors, opts)
}

// ListNodes returns nodes keyed by node id.
func (m *StateManager) ListNodes(ctx context.Context, opts state.ListOptions) (*state.ListResult, error) {
	return m.fromControlPlane(ctx, state.KindNodes, opts)
}

// ListPlacementGroups returns placement groups keyed by id.
func (m *StateManager) ListPlacementGroups(ctx context.Context, opts state.ListOptions) (*state.ListResult, error) {
	return m.fromControlPlane(ctx, state.KindPlacementGroups, opts)
}

// ListWorkers returns workers keyed by worker id.
func (m *StateManager) ListWorkers(ctx context.Context, opts state.ListOptions) (*state.ListResult, error) {
	return m.fromControlPlane(ctx, state.KindWorkers, opts)
}

// ListJobs returns structured jobs keyed by job id.
func (m *StateManager) ListJobs(ctx context.Context, opts state.ListOptions) (*state.ListResult, error) {
	recs, err := m.controlPlaneRecords(ctx, state.KindJobs, opts)
	if err != nil {
		return nil, err
	}
	jobs := make(map[string]state.JobInfo, len(recs))
	for _, r := range recs {
		j := state.JobFromRecord(r)
		jobs[j.JobID] = j
	}
	return &state.ListResult{Result: jobs}, nil
}

// ListTasks fans out to every primary agent.
func (m *StateManager) ListTasks(ctx context.Context, opts state.ListOptions) (*state.ListResult, error) {
	return m.fanOut(ctx, state.KindTasks, m.agents.Primaries(), opts)
}

// ListObjects fans out to every primary agent.
func (m *StateManager) ListObjects(ctx context.Context, opts state.ListOptions) (*state.ListResult, error) {
	return m.fanOut(ctx, state.KindObjects, m.agents.Primaries(), opts)
}

// ListRuntimeEnvs fans out to every sidecar agent. The same env can exist
// on several nodes, so the result is a list tagged with node_id rather
// than a map.
func (m *StateManager) ListRuntimeEnvs(ctx context.Context, opts state.ListOptions) (*state.ListResult, error) {
	return m.fanOut(ctx, state.KindRuntimeEnvs, m.agents.Sidecars(), opts)
}

func (m *StateManager) controlPlaneRecords(ctx context.Context, kind state.Kind, opts state.ListOptions) ([]state.Record, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	recs, err := m.cp.ListRecords(ctx, kind)
	if err != nil {
		if errors.IsTimeout(err) {
			return nil, errors.NewDataSourceUnavailableError("control plane", "", err)
		}
		return nil, err
	}
	out := make([]state.Record, 0, len(recs))
	for _, r := range recs {
		if r.Matches(opts.Filters) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID(kind) < out[j].ID(kind) })
	return truncate(out, opts.Limit), nil
}

func (m *StateManager) fromControlPlane(ctx context.Context, kind state.Kind, opts state.ListOptions) (*state.ListResult, error) {
	recs, err := m.controlPlaneRecords(ctx, kind, opts)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]state.Record, len(recs))
	for _, r := range recs {
		byID[r.ID(kind)] = r
	}
	return &state.ListResult{Result: byID}, nil
}

type nodeReply struct {
	node state.NodeID
	recs []state.Record
}

// fanOut queries every entry in parallel. One goroutine per node, no
// limit; the request timeout bounds each call separately.
func (m *StateManager) fanOut(ctx context.Context, kind state.Kind, entries []registry.Entry, opts state.ListOptions) (*state.ListResult, error) {
	var (
		mu      sync.Mutex
		replies []nodeReply
		failed  []state.NodeID
		g       errgroup.Group
	)
	for _, e := range entries {
		e := e
		g.Go(func() error {
			callCtx := ctx
			if opts.Timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
				defer cancel()
			}
			recs, err := m.query(callCtx, e, kind, opts)
			if err != nil && callCtx.Err() == context.DeadlineExceeded {
				err = errors.NewTimeoutError(fmt.Sprintf("query %s on node %s", kind, e.NodeID), opts.Timeout.String())
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, e.NodeID)
				m.metrics.NodeQueryFailed(string(kind))
				m.logger.ComponentDebug(logging.ComponentAggregator, "Node query failed",
					zap.String("kind", string(kind)),
					zap.String("node_id", string(e.NodeID)),
					zap.Error(err))
				return nil
			}
			replies = append(replies, nodeReply{node: e.NodeID, recs: recs})
			return nil
		})
	}
	_ = g.Wait()

	if len(entries) > 0 && len(failed) == len(entries) {
		return nil, errors.NewDataSourceUnavailableError("agents",
			fmt.Sprintf("failed to query %s from any of the %d registered nodes", kind, len(entries)), nil)
	}

	merged := merge(kind, replies, opts)
	res := &state.ListResult{Result: merged}
	if len(failed) > 0 {
		sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
		names := make([]string, len(failed))
		for i, id := range failed {
			names[i] = string(id)
		}
		res.PartialFailureWarning = fmt.Sprintf(
			"Failed to query %d of %d nodes: %s. The result only contains data from the nodes that replied.",
			len(failed), len(entries), strings.Join(names, ", "))
		m.logger.ComponentWarn(logging.ComponentAggregator, "Partial result",
			zap.String("kind", string(kind)),
			zap.Strings("failed_nodes", names))
	}
	return res, nil
}

func (m *StateManager) query(ctx context.Context, e registry.Entry, kind state.Kind, opts state.ListOptions) ([]state.Record, error) {
	if e.Stub == nil {
		return nil, fmt.Errorf("no client for node %s", e.NodeID)
	}
	return e.Stub.List(ctx, kind, opts)
}

// merge tags records with their node, re-applies the filters, sorts and
// truncates. Runtime envs stay a list; other kinds are keyed by id.
func merge(kind state.Kind, replies []nodeReply, opts state.ListOptions) any {
	var all []state.Record
	for _, rep := range replies {
		for _, r := range rep.recs {
			if _, ok := r["node_id"]; !ok {
				r["node_id"] = string(rep.node)
			}
			if r.Matches(opts.Filters) {
				all = append(all, r)
			}
		}
	}

	if kind == state.KindRuntimeEnvs {
		sort.Slice(all, func(i, j int) bool {
			if a, b := all[i].Field("node_id"), all[j].Field("node_id"); a != b {
				return a < b
			}
			return all[i].ID(kind) < all[j].ID(kind)
		})
		out := truncate(all, opts.Limit)
		if out == nil {
			out = []state.Record{}
		}
		return out
	}

	sort.Slice(all, func(i, j int) bool { return all[i].ID(kind) < all[j].ID(kind) })
	byID := make(map[string]state.Record)
	for _, r := range all {
		if opts.Limit > 0 && len(byID) == opts.Limit {
			break
		}
		byID[r.ID(kind)] = r
	}
	return byID
}

func truncate(recs []state.Record, limit int) []state.Record {
	if limit > 0 && len(recs) > limit {
		return recs[:limit]
	}
	return recs
}
