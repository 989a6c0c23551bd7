package config

import "github.com/DeBrosOfficial/statehead/pkg/config/validate"

// ValidationError represents a single validation error with context.
type ValidationError = validate.ValidationError

// Validate performs validation of the head-side sections: head, control plane and logging.
// It aggregates all errors and returns them, allowing the caller to print all issues at once.
func (c *Config) Validate() []error {
	var errs []error
	errs = append(errs, validate.ValidateHead(validate.HeadConfig{
		ListenAddr:             c.Head.ListenAddr,
		MembershipPollInterval: c.Head.MembershipPollInterval,
		LogStreamBuffer:        c.Head.LogStreamBuffer,
		ShutdownTimeout:        c.Head.ShutdownTimeout,
	})...)
	errs = append(errs, c.validateControlPlane()...)
	errs = append(errs, c.validateLogging()...)
	return errs
}

// ValidateAgent performs validation of the agent-side sections: agent, logging
// and, when the agent registers itself, the control plane.
func (c *Config) ValidateAgent() []error {
	var errs []error
	errs = append(errs, validate.ValidateAgent(validate.AgentConfig{
		NodeIP:            c.Agent.NodeIP,
		PrimaryListenAddr: c.Agent.PrimaryListenAddr,
		SidecarListenAddr: c.Agent.SidecarListenAddr,
		LogDir:            c.Agent.LogDir,
		StateFile:         c.Agent.StateFile,
		StreamInterval:    c.Agent.StreamInterval,
		HeartbeatInterval: c.Agent.HeartbeatInterval,
	})...)
	if c.Agent.Register {
		errs = append(errs, c.validateControlPlane()...)
	}
	errs = append(errs, c.validateLogging()...)
	return errs
}

func (c *Config) validateControlPlane() []error {
	return validate.ValidateControlPlane(validate.ControlPlaneConfig{
		Backend:    c.ControlPlane.Backend,
		RQLiteDSN:  c.ControlPlane.RQLiteDSN,
		SQLitePath: c.ControlPlane.SQLitePath,
		SeedFile:   c.ControlPlane.SeedFile,
	})
}

func (c *Config) validateLogging() []error {
	return validate.ValidateLogging(validate.LoggingConfig{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		OutputFile: c.Logging.OutputFile,
	})
}
