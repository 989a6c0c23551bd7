package config

import "time"

// AgentConfig contains configuration for the per-node agent process
type AgentConfig struct {
	NodeID            string        `yaml:"node_id"`             // Auto-generated if empty
	NodeIP            string        `yaml:"node_ip"`             // Address advertised to the head
	PrimaryListenAddr string        `yaml:"primary_listen_addr"` // Tasks and objects
	SidecarListenAddr string        `yaml:"sidecar_listen_addr"` // Runtime envs and logs
	LogDir            string        `yaml:"log_dir"`             // Directory served by the log routes
	StateFile         string        `yaml:"state_file"`          // YAML seed for local tasks/objects/runtime envs
	StreamInterval    time.Duration `yaml:"stream_interval"`     // Default poll interval for followed logs
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`  // How often the node row is refreshed in the control plane
	Register          bool          `yaml:"register"`            // Write this node into the control plane
}
