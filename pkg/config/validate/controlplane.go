package validate

import "fmt"

// ControlPlaneConfig represents the control plane configuration for validation purposes.
type ControlPlaneConfig struct {
	Backend    string
	RQLiteDSN  string
	SQLitePath string
	SeedFile   string
}

// ValidateControlPlane performs validation of the control plane configuration.
func ValidateControlPlane(cc ControlPlaneConfig) []error {
	var errs []error

	switch cc.Backend {
	case "rqlite":
		if cc.RQLiteDSN == "" {
			errs = append(errs, ValidationError{
				Path:    "control_plane.rqlite_dsn",
				Message: "must not be empty when backend is rqlite",
			})
		} else if err := ValidateURL(cc.RQLiteDSN); err != nil {
			errs = append(errs, ValidationError{
				Path:    "control_plane.rqlite_dsn",
				Message: err.Error(),
				Hint:    "e.g. http://localhost:5001",
			})
		}
	case "sqlite":
		if cc.SQLitePath == "" {
			errs = append(errs, ValidationError{
				Path:    "control_plane.sqlite_path",
				Message: "must not be empty when backend is sqlite",
			})
		}
	case "memory":
	default:
		errs = append(errs, ValidationError{
			Path:    "control_plane.backend",
			Message: fmt.Sprintf("invalid value %q", cc.Backend),
			Hint:    "allowed values: rqlite, sqlite, memory",
		})
	}

	if cc.SeedFile != "" {
		if err := ValidateFileReadable(cc.SeedFile); err != nil {
			errs = append(errs, ValidationError{
				Path:    "control_plane.seed_file",
				Message: err.Error(),
			})
		}
	}

	return errs
}
