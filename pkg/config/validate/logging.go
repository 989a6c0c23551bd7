package validate

import (
	"fmt"
	"path/filepath"
	"strings"
)

// LoggingConfig represents the logging configuration for validation purposes.
type LoggingConfig struct {
	Level      string
	Format     string
	OutputFile string
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"console", "json"}
)

// ValidateLogging checks the level and format names and that the output
// file, when set, can be created.
func ValidateLogging(log LoggingConfig) []error {
	var errs []error

	if err := oneOf("logging.level", log.Level, logLevels); err != nil {
		errs = append(errs, err)
	}
	if log.Format != "" {
		if err := oneOf("logging.format", log.Format, logFormats); err != nil {
			errs = append(errs, err)
		}
	}

	if log.OutputFile != "" {
		if dir := filepath.Dir(log.OutputFile); dir != "." {
			if err := ValidateDirWritable(dir); err != nil {
				errs = append(errs, ValidationError{
					Path:    "logging.output_file",
					Message: fmt.Sprintf("log file directory unusable: %v", err),
				})
			}
		}
	}

	return errs
}

// oneOf compares case-insensitively, matching how the logger parses them.
func oneOf(path, value string, allowed []string) error {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return ValidationError{
		Path:    path,
		Message: fmt.Sprintf("invalid value %q", value),
		Hint:    "allowed values: " + strings.Join(allowed, ", "),
	}
}
