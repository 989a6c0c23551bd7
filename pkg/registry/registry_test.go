package registry

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DeBrosOfficial/statehead/pkg/errors"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

type fakeStub struct {
	ep     state.Endpoint
	closed atomic.Bool
}

func (s *fakeStub) List(context.Context, state.Kind, state.ListOptions) ([]state.Record, error) {
	return nil, nil
}
func (s *fakeStub) ListLogs(context.Context, string) ([]string, error) { return nil, nil }
func (s *fakeStub) TailLog(context.Context, state.TailRequest) (io.ReadCloser, error) {
	return nil, nil
}
func (s *fakeStub) Close() error { s.closed.Store(true); return nil }

func fakeDialer(ep state.Endpoint) (Stub, error) { return &fakeStub{ep: ep}, nil }

type mapDirectory map[state.NodeID]string

func (d mapDirectory) NodeIP(id state.NodeID) (string, bool) {
	ip, ok := d[id]
	return ip, ok
}

func add(kind state.EndpointKind, id, addr string, port int) state.ChangeEvent {
	return state.ChangeEvent{Kind: kind, New: &state.NodeChange{NodeID: state.NodeID(id), Info: state.NodeInfo{Address: addr, Port: port}}}
}

func remove(kind state.EndpointKind, id string) state.ChangeEvent {
	return state.ChangeEvent{Kind: kind, Old: &state.NodeChange{NodeID: state.NodeID(id)}}
}

func overwrite(kind state.EndpointKind, id, addr string, port int) state.ChangeEvent {
	ev := add(kind, id, addr, port)
	ev.Old = &state.NodeChange{NodeID: state.NodeID(id)}
	return ev
}

func TestApply_AddRemove(t *testing.T) {
	r := New(fakeDialer, mapDirectory{"n1": "10.0.0.1"}, nil, nil)

	if err := r.Apply(add(state.EndpointPrimary, "n1", "10.0.0.1", 8076)); err != nil {
		t.Fatalf("Apply(add) error = %v", err)
	}
	e, ok := r.Primary("n1")
	if !ok || e.HostPort() != "10.0.0.1:8076" || e.Stub == nil {
		t.Fatalf("Primary(n1) = %+v, %v", e, ok)
	}
	if _, ok := r.Sidecar("n1"); ok {
		t.Error("primary add must not touch the sidecar registry")
	}

	if err := r.Apply(remove(state.EndpointPrimary, "n1")); err != nil {
		t.Fatalf("Apply(remove) error = %v", err)
	}
	if _, ok := r.Primary("n1"); ok {
		t.Error("n1 still registered after removal")
	}
	if !e.Stub.(*fakeStub).closed.Load() {
		t.Error("removed stub was not closed")
	}
}

func TestApply_RemoveAbsentIsNoop(t *testing.T) {
	r := New(fakeDialer, nil, nil, nil)
	_ = r.Apply(add(state.EndpointPrimary, "n1", "10.0.0.1", 8076))

	if err := r.Apply(remove(state.EndpointPrimary, "ghost")); err != nil {
		t.Fatalf("Apply(remove absent) error = %v", err)
	}
	if err := r.Apply(remove(state.EndpointPrimary, "ghost")); err != nil {
		t.Fatalf("second Apply(remove absent) error = %v", err)
	}
	if p, s := r.Len(); p != 1 || s != 0 {
		t.Errorf("Len() = %d, %d; want 1, 0", p, s)
	}
}

func TestApply_Overwrite(t *testing.T) {
	r := New(fakeDialer, nil, nil, nil)
	_ = r.Apply(add(state.EndpointPrimary, "n1", "10.0.0.1", 8076))
	old, _ := r.Primary("n1")

	if err := r.Apply(overwrite(state.EndpointPrimary, "n1", "10.0.0.9", 9000)); err != nil {
		t.Fatalf("Apply(overwrite) error = %v", err)
	}
	e, ok := r.Primary("n1")
	if !ok || e.HostPort() != "10.0.0.9:9000" {
		t.Fatalf("Primary(n1) = %+v, %v; want the new endpoint", e, ok)
	}
	if p, _ := r.Len(); p != 1 {
		t.Errorf("Len() primary = %d, want exactly 1", p)
	}
	if !old.Stub.(*fakeStub).closed.Load() {
		t.Error("overwritten stub was not closed")
	}
}

func TestApply_OverwriteHasNoGap(t *testing.T) {
	r := New(fakeDialer, nil, nil, nil)
	_ = r.Apply(add(state.EndpointPrimary, "n1", "10.0.0.1", 1))

	stop := make(chan struct{})
	var missing, bad atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				e, ok := r.Primary("n1")
				if !ok {
					missing.Add(1)
					continue
				}
				if e.Address != "10.0.0.1" && e.Address != "10.0.0.2" {
					bad.Add(1)
				}
				if len(r.PrimaryIDs()) != 1 {
					bad.Add(1)
				}
			}
		}()
	}

	for i := 0; i < 2000; i++ {
		addr := "10.0.0.1"
		if i%2 == 0 {
			addr = "10.0.0.2"
		}
		if err := r.Apply(overwrite(state.EndpointPrimary, "n1", addr, i+2)); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
	}
	close(stop)
	wg.Wait()

	if missing.Load() != 0 {
		t.Errorf("readers saw no entry %d times during overwrites", missing.Load())
	}
	if bad.Load() != 0 {
		t.Errorf("readers saw an inconsistent registry %d times", bad.Load())
	}
}

func TestApply_SidecarUsesDirectory(t *testing.T) {
	r := New(fakeDialer, mapDirectory{"n1": "10.0.0.1"}, nil, nil)

	if err := r.Apply(add(state.EndpointSidecar, "n1", "", 52366)); err != nil {
		t.Fatalf("Apply(sidecar) error = %v", err)
	}
	e, ok := r.Sidecar("n1")
	if !ok || e.HostPort() != "10.0.0.1:52366" {
		t.Fatalf("Sidecar(n1) = %+v, %v", e, ok)
	}
	if _, ok := r.Primary("n1"); ok {
		t.Error("sidecar add must not touch the primary registry")
	}
}

func TestApply_SidecarLookupFailure(t *testing.T) {
	r := New(fakeDialer, mapDirectory{}, nil, nil)
	_ = r.Apply(add(state.EndpointPrimary, "n2", "10.0.0.2", 8076))

	err := r.Apply(add(state.EndpointSidecar, "n2", "", 52366))
	if err == nil {
		t.Fatal("Apply(sidecar) with unknown ip should fail")
	}
	if !errors.IsNotFound(err) {
		t.Errorf("error = %v, want not found", err)
	}
	if _, ok := r.Sidecar("n2"); ok {
		t.Error("sidecar registered despite lookup failure")
	}
	if _, ok := r.Primary("n2"); !ok {
		t.Error("primary entry must survive a failed sidecar add")
	}
}

func TestApply_RejectsInvalidEndpoint(t *testing.T) {
	r := New(fakeDialer, nil, nil, nil)
	tests := []state.ChangeEvent{
		add(state.EndpointPrimary, "", "10.0.0.1", 1),
		add(state.EndpointPrimary, "n1", "", 1),
		add(state.EndpointPrimary, "n1", "10.0.0.1", 0),
	}
	for _, ev := range tests {
		if err := r.Apply(ev); !errors.IsValidation(err) {
			t.Errorf("Apply(%+v) error = %v, want validation error", ev.New, err)
		}
	}
	if p, _ := r.Len(); p != 0 {
		t.Errorf("invalid events registered %d endpoints", p)
	}
}

func TestRun_AppliesInOrder(t *testing.T) {
	r := New(fakeDialer, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	events := []state.ChangeEvent{
		add(state.EndpointPrimary, "n1", "10.0.0.1", 1),
		add(state.EndpointPrimary, "n2", "10.0.0.2", 1),
		remove(state.EndpointPrimary, "n1"),
		add(state.EndpointPrimary, "bad", "", 1),
		overwrite(state.EndpointPrimary, "n2", "10.0.0.3", 2),
	}
	for _, ev := range events {
		if err := r.Submit(ctx, ev); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		e, ok := r.Primary("n2")
		if ok && e.Address == "10.0.0.3" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("events were not applied in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if ids := r.PrimaryIDs(); len(ids) != 1 || ids[0] != "n2" {
		t.Errorf("PrimaryIDs() = %v, want [n2]", ids)
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}

func TestSnapshotsAreSorted(t *testing.T) {
	r := New(fakeDialer, mapDirectory{"b": "10.0.0.2", "a": "10.0.0.1"}, nil, nil)
	_ = r.Apply(add(state.EndpointSidecar, "b", "", 2))
	_ = r.Apply(add(state.EndpointSidecar, "a", "", 1))

	got := r.Sidecars()
	if len(got) != 2 || got[0].NodeID != "a" || got[1].NodeID != "b" {
		t.Errorf("Sidecars() = %+v", got)
	}
	if ids := r.SidecarIDs(); len(ids) != 2 || ids[0] != "a" {
		t.Errorf("SidecarIDs() = %v", ids)
	}
	if len(r.Primaries()) != 0 {
		t.Error("Primaries() should be empty")
	}
}
