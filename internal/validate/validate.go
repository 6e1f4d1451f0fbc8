// Package validate provides functions to validate the environment and the
// units quadlet-gen produces.
package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/trly/quadlet-gen/internal/execx"
	"github.com/trly/quadlet-gen/internal/log"
)

// Validator provides system requirements validation with dependency injection.
type Validator struct {
	logger log.Logger
	runner execx.Runner
}

// NewValidator creates a new Validator with the provided logger and command runner.
func NewValidator(logger log.Logger, runner execx.Runner) *Validator {
	return &Validator{
		logger: logger,
		runner: runner,
	}
}

// NewValidatorWithDefaults creates a new Validator with default dependencies.
func NewValidatorWithDefaults(logger log.Logger) *Validator {
	return NewValidator(logger, execx.NewRealRunner())
}

// PodmanAvailable checks that the podman binary runs and returns its version.
func (v *Validator) PodmanAvailable(ctx context.Context, binary string) (string, error) {
	v.logger.Debug("Validating podman availability", "binary", binary)

	out, err := v.runner.Output(ctx, binary, "--version")
	if err != nil {
		return "", fmt.Errorf("podman not found: %w", err)
	}

	version, ok := parseVersion(string(out))
	if !ok {
		return "", fmt.Errorf("unexpected podman version output: %q", strings.TrimSpace(string(out)))
	}

	v.logger.Debug("Found podman", "version", version)
	return version, nil
}

// parseVersion extracts the version from "podman version X.Y.Z".
func parseVersion(out string) (string, bool) {
	fields := strings.Fields(out)
	if len(fields) < 3 || fields[0] != "podman" || fields[1] != "version" {
		return "", false
	}
	return fields[2], true
}
