package controlplane

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/statehead/pkg/config"
	"github.com/DeBrosOfficial/statehead/pkg/errors"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

// backends runs the same assertions against every local implementation.
func backends(t *testing.T) map[string]ControlPlane {
	t.Helper()
	sqlite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cp.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]ControlPlane{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestControlPlane_Nodes(t *testing.T) {
	ctx := context.Background()
	for name, cp := range backends(t) {
		t.Run(name, func(t *testing.T) {
			hb := time.Unix(1700000000, 0)
			require.NoError(t, cp.UpsertNode(ctx, state.NodeRecord{NodeID: "n2", NodeIP: "10.0.0.2", PrimaryPort: 8076, SidecarPort: 52366}))
			require.NoError(t, cp.UpsertNode(ctx, state.NodeRecord{NodeID: "n1", NodeIP: "10.0.0.1", PrimaryPort: 8076, State: state.NodeAlive, LastHeartbeat: hb}))
			require.NoError(t, cp.UpsertNode(ctx, state.NodeRecord{NodeID: "n2", NodeIP: "10.0.0.9", PrimaryPort: 9000, State: state.NodeDead}))

			nodes, err := cp.ListNodes(ctx)
			require.NoError(t, err)
			require.Len(t, nodes, 2)
			assert.Equal(t, state.NodeID("n1"), nodes[0].NodeID)
			assert.True(t, nodes[0].LastHeartbeat.Equal(hb))
			assert.Equal(t, "10.0.0.9", nodes[1].NodeIP)
			assert.False(t, nodes[1].Alive())

			recs, err := cp.ListRecords(ctx, state.KindNodes)
			require.NoError(t, err)
			require.Len(t, recs, 2)
			assert.Equal(t, "n1", recs[0].ID(state.KindNodes))

			rec, err := cp.GetRecord(ctx, state.KindNodes, "n2")
			require.NoError(t, err)
			assert.Equal(t, state.NodeDead, rec.Field("state"))

			_, err = cp.GetRecord(ctx, state.KindNodes, "ghost")
			assert.True(t, errors.IsNotFound(err))

			assert.True(t, errors.IsValidation(cp.UpsertNode(ctx, state.NodeRecord{})))
		})
	}
}

func TestControlPlane_Records(t *testing.T) {
	ctx := context.Background()
	for name, cp := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, cp.PutRecord(ctx, state.KindActors, state.Record{"actor_id": "b", "state": "ALIVE", "pid": 12}))
			require.NoError(t, cp.PutRecord(ctx, state.KindActors, state.Record{"actor_id": "a", "state": "DEAD"}))

			recs, err := cp.ListRecords(ctx, state.KindActors)
			require.NoError(t, err)
			require.Len(t, recs, 2)
			assert.Equal(t, "a", recs[0].ID(state.KindActors))
			assert.Equal(t, "12", recs[1].Field("pid"))

			rec, err := cp.GetRecord(ctx, state.KindActors, "b")
			require.NoError(t, err)
			assert.Equal(t, "ALIVE", rec.Field("state"))

			_, err = cp.GetRecord(ctx, state.KindActors, "zzz")
			assert.True(t, errors.IsNotFound(err))

			empty, err := cp.ListRecords(ctx, state.KindWorkers)
			require.NoError(t, err)
			assert.Empty(t, empty)

			assert.True(t, errors.IsValidation(cp.PutRecord(ctx, state.KindActors, state.Record{"state": "x"})))
			assert.True(t, errors.IsValidation(cp.PutRecord(ctx, state.KindTasks, state.Record{"task_id": "t"})))
			_, err = cp.ListRecords(ctx, state.KindObjects)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestMemory_Unavailable(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.SetUnavailable(os.ErrDeadlineExceeded)

	_, err := m.ListNodes(ctx)
	assert.True(t, errors.IsDataSourceUnavailable(err))
	_, err = m.ListRecords(ctx, state.KindJobs)
	assert.True(t, errors.IsDataSourceUnavailable(err))

	m.SetUnavailable(nil)
	_, err = m.ListRecords(ctx, state.KindJobs)
	assert.NoError(t, err)
}

func TestSQL_ClosedDatabaseIsUnavailable(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cp.db"), nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.ListNodes(context.Background())
	assert.True(t, errors.IsDataSourceUnavailable(err), "got %v", err)
}

func TestOpen_MemoryWithSeed(t *testing.T) {
	seed := `
nodes:
  - node_id: n1
    node_ip: 10.0.0.1
    primary_port: 8076
    sidecar_port: 52366
actors:
  - actor_id: a1
    node_id: n1
    pid: 4242
    state: ALIVE
jobs:
  - job_id: raysubmit_1
    status: RUNNING
    entrypoint: python main.py
    start_time: 1700000000
workers:
  - worker_id: w1
    pid: 4242
`
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))

	cp, err := Open(context.Background(), config.ControlPlaneConfig{Backend: "memory", SeedFile: path}, nil)
	require.NoError(t, err)
	defer cp.Close()

	nodes, err := cp.ListNodes(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, 52366, nodes[0].SidecarPort)

	actor, err := cp.GetRecord(context.Background(), state.KindActors, "a1")
	require.NoError(t, err)
	assert.Equal(t, "4242", actor.Field("pid"))

	job, err := cp.GetRecord(context.Background(), state.KindJobs, "raysubmit_1")
	require.NoError(t, err)
	assert.Equal(t, "RUNNING", job.Field("status"))
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.ControlPlaneConfig{Backend: "etcd"}, nil)
	assert.Error(t, err)
}
