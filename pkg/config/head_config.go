package config

import "time"

// HeadConfig contains the query surface configuration of the head process
type HeadConfig struct {
	ListenAddr             string        `yaml:"listen_addr"`              // Address to listen on (e.g., ":8265")
	MembershipPollInterval time.Duration `yaml:"membership_poll_interval"` // How often the node table is diffed
	LogStreamBuffer        int           `yaml:"log_stream_buffer"`        // Chunks buffered between a log producer and the client
	ShutdownTimeout        time.Duration `yaml:"shutdown_timeout"`         // Graceful HTTP shutdown budget
	EnableWebSocket        bool          `yaml:"enable_websocket"`         // Allow WebSocket upgrades on log retrieval
	EnableMetrics          bool          `yaml:"enable_metrics"`           // Expose /metrics
}
