package composition

import (
	"fmt"
	"strings"

	apperrors "github.com/deploymenttheory/hms-setup/internal/common/errors"
	"github.com/spf13/cast"
)

// Step types understood by workflow files
const (
	StepCheckVersion = "check_version"
	StepCheckDir     = "check_dir"
	StepInstall      = "install"
	StepExec         = "exec"
	StepServe        = "serve"
)

// ActionBuilder turns a step definition into an executable Action
type ActionBuilder func(def StepDefinition) (Action, error)

func createActionBuilderRegistry() map[string]ActionBuilder {
	return map[string]ActionBuilder{
		StepCheckVersion: buildCheckVersion,
		StepCheckDir:     buildCheckDir,
		StepInstall:      buildInstall,
		StepExec:         buildExec,
		StepServe:        buildServe,
	}
}

// isValidStepType checks if a step type is valid
func isValidStepType(stepType string) bool {
	_, ok := createActionBuilderRegistry()[stepType]
	return ok
}

// validateStepParameters validates parameters for a specific step type
func validateStepParameters(step StepDefinition) []error {
	var errs []error

	require := func(names ...string) {
		for _, name := range names {
			if v, ok := step.Parameters[name]; !ok || v == nil {
				errs = append(errs, fmt.Errorf("%w '%s'", apperrors.ErrMissingParameter, name))
			}
		}
	}

	switch step.Type {
	case StepCheckVersion:
		require("min_version")
	case StepCheckDir:
		require("path")
	case StepInstall:
		require("command", "packages")
		if packages, err := cast.ToStringSliceE(step.Parameters["packages"]); err == nil && len(packages) == 0 {
			errs = append(errs, fmt.Errorf("%w: 'packages' must not be empty", apperrors.ErrInvalidArgument))
		}
	case StepExec, StepServe:
		require("command")
	}

	return errs
}

func buildCheckVersion(def StepDefinition) (Action, error) {
	minVersion, err := stringParam(def, "min_version")
	if err != nil {
		return nil, err
	}
	return RuntimeVersionCheck(minVersion, nil), nil
}

func buildCheckDir(def StepDefinition) (Action, error) {
	path, err := stringParam(def, "path")
	if err != nil {
		return nil, err
	}
	found, err := optionalStringParam(def, "found")
	if err != nil {
		return nil, err
	}
	missing, err := optionalStringParam(def, "missing")
	if err != nil {
		return nil, err
	}

	check := DirCheck{Path: path, Found: found, Missing: missing}
	if cast.ToBool(def.Parameters["models"]) {
		check.Err = apperrors.ErrModelsNotTrained
	}
	return check, nil
}

// buildInstall expands into one exec step per package
func buildInstall(def StepDefinition) (Action, error) {
	command, err := stringParam(def, "command")
	if err != nil {
		return nil, err
	}
	packages, err := cast.ToStringSliceE(def.Parameters["packages"])
	if err != nil {
		return nil, fmt.Errorf("%w: packages: %v", apperrors.ErrInvalidArgument, err)
	}

	steps := make([]Step, 0, len(packages))
	for _, pkg := range packages {
		steps = append(steps, Step{
			Name:        def.Name + ":" + pkg,
			Description: "Installing " + pkg,
			Action:      Exec{Command: command + " " + pkg},
		})
	}
	return Group{Steps: steps}, nil
}

func buildExec(def StepDefinition) (Action, error) {
	command, err := stringParam(def, "command")
	if err != nil {
		return nil, err
	}
	env, err := stringSliceParam(def, "env")
	if err != nil {
		return nil, err
	}
	return Exec{Command: command, Env: env}, nil
}

func buildServe(def StepDefinition) (Action, error) {
	command, err := stringParam(def, "command")
	if err != nil {
		return nil, err
	}
	env, err := stringSliceParam(def, "env")
	if err != nil {
		return nil, err
	}
	notices, err := stringSliceParam(def, "notices")
	if err != nil {
		return nil, err
	}
	return Serve{Command: command, Notices: notices, Env: env}, nil
}

func stringParam(def StepDefinition, name string) (string, error) {
	raw, ok := def.Parameters[name]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w '%s'", apperrors.ErrMissingParameter, name)
	}
	value, err := cast.ToStringE(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidArgument, name, err)
	}
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: '%s' must not be empty", apperrors.ErrInvalidArgument, name)
	}
	return value, nil
}

func optionalStringParam(def StepDefinition, name string) (string, error) {
	raw, ok := def.Parameters[name]
	if !ok || raw == nil {
		return "", nil
	}
	value, err := cast.ToStringE(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidArgument, name, err)
	}
	return value, nil
}

func stringSliceParam(def StepDefinition, name string) ([]string, error) {
	raw, ok := def.Parameters[name]
	if !ok || raw == nil {
		return nil, nil
	}
	values, err := cast.ToStringSliceE(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidArgument, name, err)
	}
	return values, nil
}
