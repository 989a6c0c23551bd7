// Package state holds the shapes shared by the head and the per-node agents:
// node endpoints and the events that mutate them, per-request query options,
// and the uniform reply envelope.
package state

import (
	"net"
	"strconv"
	"time"
)

// NodeID identifies a cluster node. It is stable for the node's lifetime and
// may be reused by a different machine after the original is removed.
type NodeID string

// EndpointKind selects which sub-registry a change event targets.
type EndpointKind int

const (
	// EndpointPrimary is the node's main agent (tasks, objects).
	EndpointPrimary EndpointKind = iota
	// EndpointSidecar is the node's auxiliary agent (runtime envs, logs).
	EndpointSidecar
)

func (k EndpointKind) String() string {
	switch k {
	case EndpointPrimary:
		return "primary"
	case EndpointSidecar:
		return "sidecar"
	default:
		return "unknown"
	}
}

// NodeInfo is the payload of a change. Sidecar changes carry only the port;
// the address comes from the node directory.
type NodeInfo struct {
	Address string
	Port    int
}

// NodeChange is one side of a ChangeEvent.
type NodeChange struct {
	NodeID NodeID
	Info   NodeInfo
}

// ChangeEvent describes a membership transition. Old only is a removal, New
// only an addition, both an overwrite.
type ChangeEvent struct {
	Kind EndpointKind
	Old  *NodeChange
	New  *NodeChange
}

// Endpoint is a reachable agent address registered for a node.
type Endpoint struct {
	NodeID  NodeID
	Address string
	Port    int
}

// HostPort renders the endpoint as host:port.
func (e Endpoint) HostPort() string {
	return net.JoinHostPort(e.Address, strconv.Itoa(e.Port))
}

// Node states as recorded by the control plane.
const (
	NodeAlive = "ALIVE"
	NodeDead  = "DEAD"
)

// NodeRecord is a row of the control plane's node table.
type NodeRecord struct {
	NodeID        NodeID    `json:"node_id" yaml:"node_id"`
	NodeIP        string    `json:"node_ip" yaml:"node_ip"`
	Hostname      string    `json:"hostname" yaml:"hostname"`
	PrimaryPort   int       `json:"primary_port" yaml:"primary_port"`
	SidecarPort   int       `json:"sidecar_port" yaml:"sidecar_port"`
	State         string    `json:"state" yaml:"state"`
	LastHeartbeat time.Time `json:"last_heartbeat" yaml:"last_heartbeat"`
}

// Alive reports whether the node should have registered endpoints.
func (n NodeRecord) Alive() bool {
	return n.State == "" || n.State == NodeAlive
}

// Record is a generic entity record as returned by the control plane or an
// agent. Every record carries its identifier under the kind's id key.
type Record map[string]any

// Kind names a queryable entity collection.
type Kind string

const (
	KindActors          Kind = "actors"
	KindJobs            Kind = "jobs"
	KindNodes           Kind = "nodes"
	KindPlacementGroups Kind = "placement_groups"
	KindWorkers         Kind = "workers"
	KindTasks           Kind = "tasks"
	KindObjects         Kind = "objects"
	KindRuntimeEnvs     Kind = "runtime_envs"
)

// Kinds lists every queryable collection in route order.
var Kinds = []Kind{
	KindActors, KindJobs, KindNodes, KindPlacementGroups,
	KindWorkers, KindTasks, KindObjects, KindRuntimeEnvs,
}

// IDKey returns the field holding a record's identifier.
func (k Kind) IDKey() string {
	switch k {
	case KindActors:
		return "actor_id"
	case KindJobs:
		return "job_id"
	case KindNodes:
		return "node_id"
	case KindPlacementGroups:
		return "placement_group_id"
	case KindWorkers:
		return "worker_id"
	case KindTasks:
		return "task_id"
	case KindObjects:
		return "object_id"
	case KindRuntimeEnvs:
		return "runtime_env"
	default:
		return "id"
	}
}

// ListResult is what an aggregation call returns: the merged data and, when
// some nodes did not answer, a warning naming them.
type ListResult struct {
	Result                any
	PartialFailureWarning string
}

// LogChunk is one piece of a log stream. A chunk with Err set is the last
// one the producer sends.
type LogChunk struct {
	Data []byte
	Err  error
}

// TailRequest asks an agent for the last Lines lines of a log file and,
// when Follow is set, for every line appended afterwards.
type TailRequest struct {
	Filename string
	Lines    int
	Follow   bool
	Interval time.Duration
}

// Record renders the node as a generic record for list queries.
func (n NodeRecord) Record() Record {
	r := Record{
		"node_id":      string(n.NodeID),
		"node_ip":      n.NodeIP,
		"hostname":     n.Hostname,
		"primary_port": n.PrimaryPort,
		"sidecar_port": n.SidecarPort,
		"state":        n.State,
	}
	if n.State == "" {
		r["state"] = NodeAlive
	}
	if !n.LastHeartbeat.IsZero() {
		r["last_heartbeat"] = n.LastHeartbeat.Unix()
	}
	return r
}
