// Package controlplane reads and writes the cluster's authoritative records:
// the node table that drives membership, and the actor, job, placement group
// and worker records served by list queries. Any failure to reach the
// backing store surfaces as a DataSourceUnavailableError.
package controlplane

import (
	"context"
	"fmt"

	"github.com/DeBrosOfficial/statehead/pkg/errors"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

// ControlPlane is the head's view of the cluster's record store.
type ControlPlane interface {
	ListNodes(ctx context.Context) ([]state.NodeRecord, error)
	ListRecords(ctx context.Context, kind state.Kind) ([]state.Record, error)
	GetRecord(ctx context.Context, kind state.Kind, id string) (state.Record, error)
	UpsertNode(ctx context.Context, n state.NodeRecord) error
	PutRecord(ctx context.Context, kind state.Kind, rec state.Record) error
	Close() error
}

// storedKinds are the collections kept as records. Nodes live in their own
// table and are listed through ListNodes.
var storedKinds = map[state.Kind]bool{
	state.KindActors:          true,
	state.KindJobs:            true,
	state.KindPlacementGroups: true,
	state.KindWorkers:         true,
}

// Serves reports whether the control plane is the source of a kind.
func Serves(kind state.Kind) bool {
	return kind == state.KindNodes || storedKinds[kind]
}

func checkKind(kind state.Kind, writable bool) error {
	if storedKinds[kind] || (!writable && Serves(kind)) {
		return nil
	}
	return errors.NewValidationError("kind", fmt.Sprintf("%s are not kept by the control plane", kind), string(kind))
}

func recordID(kind state.Kind, rec state.Record) (string, error) {
	id := rec.ID(kind)
	if id == "" {
		return "", errors.NewValidationError(kind.IDKey(), "must not be empty", nil)
	}
	return id, nil
}

func nodeRecords(nodes []state.NodeRecord) []state.Record {
	out := make([]state.Record, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Record())
	}
	return out
}
