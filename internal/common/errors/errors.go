package errors

import (
	"errors"
)

var (
	// General Errors
	ErrInvalidArgument = errors.New("invalid argument")

	// Precondition Errors
	ErrRuntimeVersion   = errors.New("incompatible runtime version")
	ErrModelsNotTrained = errors.New("trained models not found")
	ErrDirNotFound      = errors.New("directory not found")

	// Step Errors
	ErrStepFailed        = errors.New("step failed")
	ErrCommandParse      = errors.New("unable to parse command line")
	ErrCommandStart      = errors.New("command could not be started")
	ErrInterrupted       = errors.New("interrupted by user")
	ErrUnknownStepType   = errors.New("unknown step type")
	ErrMissingParameter  = errors.New("missing required parameter")
	ErrEmptyPipeline     = errors.New("pipeline has no steps")
	ErrInvalidWorkflow   = errors.New("invalid workflow definition")
	ErrWorkflowNotFound  = errors.New("workflow file not found")
	ErrWorkflowReadError = errors.New("error reading workflow file")

	// Secret Errors
	ErrEntropyUnavailable = errors.New("secure random source unavailable")
	ErrSecretGeneration   = errors.New("secret generation failed")

	// Configuration Errors
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrConfigParseError = errors.New("error parsing configuration")
)
