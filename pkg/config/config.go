package config

import (
	"os"
	"time"
)

// Config represents the configuration shared by the head and the per-node agent.
// Each binary reads the sections it needs and ignores the rest.
type Config struct {
	Head         HeadConfig         `yaml:"head"`
	ControlPlane ControlPlaneConfig `yaml:"control_plane"`
	Logging      LoggingConfig      `yaml:"logging"`
	Agent        AgentConfig        `yaml:"agent"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Head: HeadConfig{
			ListenAddr:             ":8265",
			MembershipPollInterval: 5 * time.Second,
			LogStreamBuffer:        16,
			ShutdownTimeout:        10 * time.Second,
			EnableWebSocket:        true,
			EnableMetrics:          true,
		},
		ControlPlane: ControlPlaneConfig{
			Backend:        "rqlite",
			RQLiteDSN:      "http://localhost:5001",
			ConnectTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Agent: AgentConfig{
			PrimaryListenAddr: ":52365",
			SidecarListenAddr: ":52366",
			LogDir:            os.TempDir() + "/statehead/logs",
			StreamInterval:    500 * time.Millisecond,
			HeartbeatInterval: 5 * time.Second,
		},
	}
}
