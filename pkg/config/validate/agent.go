package validate

import (
	"fmt"
	"net"
	"time"
)

// AgentConfig represents the agent configuration for validation purposes.
type AgentConfig struct {
	NodeIP            string
	PrimaryListenAddr string
	SidecarListenAddr string
	LogDir            string
	StateFile         string
	StreamInterval    time.Duration
	HeartbeatInterval time.Duration
}

// ValidateAgent performs validation of the agent configuration.
func ValidateAgent(ac AgentConfig) []error {
	var errs []error

	if ac.NodeIP != "" && net.ParseIP(ac.NodeIP) == nil {
		errs = append(errs, ValidationError{
			Path:    "agent.node_ip",
			Message: fmt.Sprintf("invalid IP address %q", ac.NodeIP),
		})
	}

	for path, addr := range map[string]string{
		"agent.primary_listen_addr": ac.PrimaryListenAddr,
		"agent.sidecar_listen_addr": ac.SidecarListenAddr,
	} {
		if err := ValidateListenAddr(addr); err != nil {
			errs = append(errs, ValidationError{Path: path, Message: err.Error()})
		}
	}
	if ac.PrimaryListenAddr != "" && ac.PrimaryListenAddr == ac.SidecarListenAddr {
		errs = append(errs, ValidationError{
			Path:    "agent.sidecar_listen_addr",
			Message: "must differ from agent.primary_listen_addr",
		})
	}

	if err := ValidateLogDir(ac.LogDir); err != nil {
		errs = append(errs, ValidationError{
			Path:    "agent.log_dir",
			Message: err.Error(),
		})
	}

	if ac.StateFile != "" {
		if err := ValidateFileReadable(ac.StateFile); err != nil {
			errs = append(errs, ValidationError{
				Path:    "agent.state_file",
				Message: err.Error(),
			})
		}
	}

	if ac.StreamInterval <= 0 {
		errs = append(errs, ValidationError{
			Path:    "agent.stream_interval",
			Message: fmt.Sprintf("must be > 0; got %v", ac.StreamInterval),
		})
	}
	if ac.HeartbeatInterval <= 0 {
		errs = append(errs, ValidationError{
			Path:    "agent.heartbeat_interval",
			Message: fmt.Sprintf("must be > 0; got %v", ac.HeartbeatInterval),
		})
	}

	return errs
}
