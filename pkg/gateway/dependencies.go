package gateway

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/DeBrosOfficial/statehead/pkg/metrics"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

// StateService answers the list queries, one method per entity kind.
type StateService interface {
	ListActors(ctx context.Context, opts state.ListOptions) (*state.ListResult, error)
	ListJobs(ctx context.Context, opts state.ListOptions) (*state.ListResult, error)
	ListNodes(ctx context.Context, opts state.ListOptions) (*state.ListResult, error)
	ListPlacementGroups(ctx context.Context, opts state.ListOptions) (*state.ListResult, error)
	ListWorkers(ctx context.Context, opts state.ListOptions) (*state.ListResult, error)
	ListTasks(ctx context.Context, opts state.ListOptions) (*state.ListResult, error)
	ListObjects(ctx context.Context, opts state.ListOptions) (*state.ListResult, error)
	ListRuntimeEnvs(ctx context.Context, opts state.ListOptions) (*state.ListResult, error)
}

// Dependencies holds the collaborators required by the Gateway.
type Dependencies struct {
	// State serves every list route.
	State StateService

	// Logs serves log listing and retrieval.
	Logs LogService

	// Registry is reported by the health endpoint. Optional.
	Registry RegistryStats

	// Metrics defaults to a no-op recorder.
	Metrics metrics.HeadMetrics

	// Gatherer backs /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer
}

// Lists maps every entity kind to the StateService method serving it.
func (d *Dependencies) Lists() map[state.Kind]ListFunc {
	if d.State == nil {
		return map[state.Kind]ListFunc{}
	}
	return map[state.Kind]ListFunc{
		state.KindActors:          d.State.ListActors,
		state.KindJobs:            d.State.ListJobs,
		state.KindNodes:           d.State.ListNodes,
		state.KindPlacementGroups: d.State.ListPlacementGroups,
		state.KindWorkers:         d.State.ListWorkers,
		state.KindTasks:           d.State.ListTasks,
		state.KindObjects:         d.State.ListObjects,
		state.KindRuntimeEnvs:     d.State.ListRuntimeEnvs,
	}
}
