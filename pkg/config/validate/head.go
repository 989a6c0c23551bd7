package validate

import (
	"fmt"
	"time"
)

// HeadConfig represents the head configuration for validation purposes.
type HeadConfig struct {
	ListenAddr             string
	MembershipPollInterval time.Duration
	LogStreamBuffer        int
	ShutdownTimeout        time.Duration
}

// ValidateHead performs validation of the head configuration.
func ValidateHead(hc HeadConfig) []error {
	var errs []error

	if err := ValidateListenAddr(hc.ListenAddr); err != nil {
		errs = append(errs, ValidationError{
			Path:    "head.listen_addr",
			Message: err.Error(),
			Hint:    "e.g. :8265",
		})
	}

	if hc.MembershipPollInterval <= 0 {
		errs = append(errs, ValidationError{
			Path:    "head.membership_poll_interval",
			Message: fmt.Sprintf("must be > 0; got %v", hc.MembershipPollInterval),
		})
	} else if hc.MembershipPollInterval < 100*time.Millisecond {
		errs = append(errs, ValidationError{
			Path:    "head.membership_poll_interval",
			Message: fmt.Sprintf("too small; got %v", hc.MembershipPollInterval),
			Hint:    "recommended: 1s to 30s",
		})
	}

	if hc.LogStreamBuffer < 1 {
		errs = append(errs, ValidationError{
			Path:    "head.log_stream_buffer",
			Message: fmt.Sprintf("must be >= 1; got %d", hc.LogStreamBuffer),
		})
	}

	if hc.ShutdownTimeout < 0 {
		errs = append(errs, ValidationError{
			Path:    "head.shutdown_timeout",
			Message: "must not be negative",
		})
	}

	return errs
}
