package composition

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	apperrors "github.com/deploymenttheory/hms-setup/internal/common/errors"
	"github.com/deploymenttheory/hms-setup/internal/config"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// LoadWorkflow loads a setup workflow from a YAML, JSON or TOML file.
// String parameters are rendered as templates over the workflow variables.
func LoadWorkflow(filePath string, cfg config.SetupConfig) (*Workflow, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrWorkflowNotFound, filePath)
	}

	v := viper.New()
	v.SetConfigFile(filePath)

	ext := strings.ToLower(filepath.Ext(filePath))
	if ext != "" {
		v.SetConfigType(ext[1:])
	} else {
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrWorkflowReadError, err)
	}

	workflow := &Workflow{}
	if err := v.Unmarshal(workflow); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidWorkflow, err)
	}

	if workflow.Variables == nil {
		workflow.Variables = make(map[string]interface{})
	}
	addSystemVariables(workflow, cfg)

	if err := processTemplates(workflow); err != nil {
		return nil, fmt.Errorf("error processing templates: %w", err)
	}

	return workflow, nil
}

// addSystemVariables adds configuration values the workflow may reference.
// Variables set in the file win.
func addSystemVariables(workflow *Workflow, cfg config.SetupConfig) {
	defaults := map[string]interface{}{
		"base_dir":     cfg.BaseDir,
		"services_dir": cfg.ServicesDir,
		"models_dir":   cfg.ModelsDir,
		"install":      cfg.InstallCommand,
		"port":         cfg.Port,
		"frontend_url": cfg.FrontendURL,
		"min_version":  cfg.MinRuntimeVersion,
		"timestamp":    fmt.Sprintf("%d", time.Now().Unix()),
	}
	if cwd, err := os.Getwd(); err == nil {
		defaults["current_dir"] = cwd
	}

	for k, v := range defaults {
		if _, exists := workflow.Variables[k]; !exists {
			workflow.Variables[k] = v
		}
	}
}

// processTemplates processes template strings in step parameters
func processTemplates(workflow *Workflow) error {
	for i, step := range workflow.Steps {
		processedParams := make(map[string]interface{}, len(step.Parameters))
		for key, value := range step.Parameters {
			processed, err := processValue(value, workflow.Variables)
			if err != nil {
				return fmt.Errorf("error processing template in step %s, parameter %s: %w", step.Name, key, err)
			}
			processedParams[key] = processed
		}
		workflow.Steps[i].Parameters = processedParams

		for _, field := range []*string{&workflow.Steps[i].Dir, &workflow.Steps[i].Banner, &workflow.Steps[i].OnFailure} {
			processed, err := processTemplate(*field, workflow.Variables)
			if err != nil {
				return fmt.Errorf("error processing template in step %s: %w", step.Name, err)
			}
			*field = processed
		}
	}
	return nil
}

// processValue renders strings and lists of strings; other values are kept as is
func processValue(value interface{}, variables map[string]interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return processTemplate(v, variables)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			processed, err := processValue(item, variables)
			if err != nil {
				return nil, err
			}
			out[i] = processed
		}
		return out, nil
	default:
		return value, nil
	}
}

// processTemplate processes a single template string
func processTemplate(templateString string, variables map[string]interface{}) (string, error) {
	if !strings.Contains(templateString, "{{") {
		return templateString, nil
	}

	tmpl, err := template.New("inline").Option("missingkey=error").Parse(templateString)
	if err != nil {
		return "", err
	}

	var buffer bytes.Buffer
	if err := tmpl.Execute(&buffer, variables); err != nil {
		return "", err
	}

	return buffer.String(), nil
}

// evaluateCondition evaluates a condition string using the provided variables
func evaluateCondition(condition string, variables map[string]interface{}) (bool, error) {
	result, err := processTemplate(condition, variables)
	if err != nil {
		return false, err
	}

	result = strings.TrimSpace(strings.ToLower(result))
	return result == "true" || result == "yes" || result == "1", nil
}

// ValidateWorkflow validates the workflow structure and parameters. Every
// problem found is reported in the returned error.
func ValidateWorkflow(workflow *Workflow) error {
	var result *multierror.Error

	if workflow.Name == "" {
		result = multierror.Append(result, fmt.Errorf("%w: workflow name is required", apperrors.ErrInvalidWorkflow))
	}

	if len(workflow.Steps) == 0 {
		result = multierror.Append(result, fmt.Errorf("%w: workflow must contain at least one step", apperrors.ErrInvalidWorkflow))
	}

	seen := make(map[string]bool, len(workflow.Steps))
	for i, step := range workflow.Steps {
		if step.Name == "" {
			result = multierror.Append(result, fmt.Errorf("step %d: %w: name is required", i+1, apperrors.ErrInvalidWorkflow))
		} else if seen[step.Name] {
			result = multierror.Append(result, fmt.Errorf("step %d (%s): %w: duplicate name", i+1, step.Name, apperrors.ErrInvalidWorkflow))
		}
		seen[step.Name] = true

		if step.Type == "" {
			result = multierror.Append(result, fmt.Errorf("step %d (%s): %w: type is required", i+1, step.Name, apperrors.ErrInvalidWorkflow))
			continue
		}

		if !isValidStepType(step.Type) {
			result = multierror.Append(result, fmt.Errorf("step %d (%s): %w '%s'", i+1, step.Name, apperrors.ErrUnknownStepType, step.Type))
			continue
		}

		for _, err := range validateStepParameters(step) {
			result = multierror.Append(result, fmt.Errorf("step %d (%s): %w", i+1, step.Name, err))
		}
	}

	return result.ErrorOrNil()
}

// BuildPipeline converts a validated workflow into a runnable Pipeline.
// Steps whose condition evaluates to false are left out.
func BuildPipeline(workflow *Workflow) (*Pipeline, error) {
	if err := ValidateWorkflow(workflow); err != nil {
		return nil, err
	}

	registry := createActionBuilderRegistry()
	pipeline := &Pipeline{
		Name:       workflow.Name,
		Title:      workflow.Title,
		Completion: workflow.Completion,
	}

	for _, def := range workflow.Steps {
		if def.Condition != "" {
			shouldRun, err := evaluateCondition(def.Condition, workflow.Variables)
			if err != nil {
				return nil, fmt.Errorf("error evaluating condition for step '%s': %w", def.Name, err)
			}
			if !shouldRun {
				continue
			}
		}

		builder, found := registry[def.Type]
		if !found {
			return nil, fmt.Errorf("%w '%s'", apperrors.ErrUnknownStepType, def.Type)
		}

		action, err := builder(def)
		if err != nil {
			return nil, fmt.Errorf("step '%s': %w", def.Name, err)
		}

		description := def.Description
		if description == "" {
			description = def.Name
		}

		pipeline.Steps = append(pipeline.Steps, Step{
			Name:        def.Name,
			Description: description,
			Banner:      def.Banner,
			OnFailure:   def.OnFailure,
			Dir:         def.Dir,
			Action:      action,
		})
	}

	if len(pipeline.Steps) == 0 {
		return nil, apperrors.ErrEmptyPipeline
	}

	return pipeline, nil
}
