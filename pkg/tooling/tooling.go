// Package tooling exposes the setup pipeline and secret generation to Go
// programs that embed hms-setup instead of calling the CLI.
package tooling

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/deploymenttheory/hms-setup/internal/common/fsutil"
	"github.com/deploymenttheory/hms-setup/internal/composition"
	"github.com/deploymenttheory/hms-setup/internal/config"
	"github.com/deploymenttheory/hms-setup/internal/logger"
	"github.com/deploymenttheory/hms-setup/internal/runner"
	"github.com/deploymenttheory/hms-setup/internal/secrets"
	"github.com/deploymenttheory/hms-setup/internal/version"
)

// InitOptions contains options for initializing the tooling API
type InitOptions struct {
	ConfigFile  string // Path to configuration file
	Debug       bool   // Enable debug logging
	LogFormat   string // Log format: "human" or "json"
	LogFile     string // Path to log file
	SuppressLog bool   // Suppress all logging
}

// WorkflowResult contains the results of a workflow execution
type WorkflowResult struct {
	Success      bool     // Whether every step completed successfully
	ErrorMessage string   // Error message if any
	Steps        []string // Names of the steps in the pipeline
}

// Secrets is one set of generated values
type Secrets struct {
	SecretKey string
	JWTSecret string
	MongoURI  string
	Strategy  string
}

var initialized bool

// Initialize initializes the tooling API with the given options
func Initialize(options InitOptions) error {
	if initialized {
		return nil // Already initialized
	}

	configErr := config.Initialize(options.ConfigFile)

	if options.Debug {
		config.Instance.Debug = true
	}
	if options.LogFormat != "" {
		config.Instance.LogFormat = options.LogFormat
	}
	if options.LogFile != "" {
		config.Instance.LogFile = options.LogFile
	}

	if !options.SuppressLog {
		if err := logger.InitLogger(logger.LoggerConfig{
			Debug:     config.Instance.Debug,
			LogFormat: config.Instance.LogFormat,
			LogFile:   config.Instance.LogFile,
		}); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger.LogInfo("Tooling API initialized", map[string]interface{}{
			"config_file": options.ConfigFile,
			"debug":       options.Debug,
			"log_format":  options.LogFormat,
		})
		if configErr != nil {
			logger.LogWarn("Configuration initialization warning", map[string]interface{}{
				"error": configErr.Error(),
			})
		}
	}

	initialized = true
	return nil
}

// DefaultOptions returns the default initialization options
func DefaultOptions() InitOptions {
	defaults := logger.DefaultConfig()
	return InitOptions{
		Debug:     defaults.Debug,
		LogFormat: defaults.LogFormat,
		LogFile:   defaults.LogFile,
	}
}

func ensureInitialized() error {
	if initialized {
		return nil
	}
	if err := Initialize(DefaultOptions()); err != nil {
		return fmt.Errorf("failed to initialize tooling API: %w", err)
	}
	return nil
}

// RunSetup runs the default ML setup sequence in baseDir, writing progress to out
func RunSetup(ctx context.Context, baseDir string, out io.Writer) (*WorkflowResult, error) {
	if err := ensureInitialized(); err != nil {
		return nil, err
	}
	return run(ctx, composition.DefaultWorkflow(config.Instance.Setup), baseDir, out)
}

// ExecuteWorkflow runs the workflow defined in workflowFile in baseDir
func ExecuteWorkflow(ctx context.Context, workflowFile, baseDir string, out io.Writer) (*WorkflowResult, error) {
	if err := ensureInitialized(); err != nil {
		return nil, err
	}

	workflow, err := composition.LoadWorkflow(workflowFile, config.Instance.Setup)
	if err != nil {
		return &WorkflowResult{
			ErrorMessage: fmt.Sprintf("Failed to load workflow: %s", err.Error()),
		}, err
	}
	return run(ctx, workflow, baseDir, out)
}

// ExecuteWorkflowFromYAML runs a workflow given as a YAML string
func ExecuteWorkflowFromYAML(ctx context.Context, workflowYAML, baseDir string, out io.Writer) (*WorkflowResult, error) {
	tempFile, err := os.CreateTemp("", "workflow-*.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.WriteString(workflowYAML); err != nil {
		tempFile.Close()
		return nil, fmt.Errorf("failed to write workflow to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}

	return ExecuteWorkflow(ctx, tempFile.Name(), baseDir, out)
}

func run(ctx context.Context, workflow *composition.Workflow, baseDir string, out io.Writer) (*WorkflowResult, error) {
	pipeline, err := composition.BuildPipeline(workflow)
	if err != nil {
		return &WorkflowResult{
			ErrorMessage: fmt.Sprintf("Workflow validation failed: %s", err.Error()),
		}, err
	}

	result := &WorkflowResult{}
	for _, step := range pipeline.Steps {
		result.Steps = append(result.Steps, step.Name)
	}

	base, err := fsutil.ToAbsPath(baseDir)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result, err
	}

	if err := pipeline.Run(ctx, composition.WorkContext{BaseDir: base}, runner.New(out)); err != nil {
		result.ErrorMessage = fmt.Sprintf("Workflow execution failed: %s", err.Error())
		return result, err
	}

	result.Success = true
	return result, nil
}

// GenerateSecrets returns a fresh set of secrets. The Django key routine is
// used when the configured interpreter provides it.
func GenerateSecrets(ctx context.Context) (*Secrets, error) {
	if err := ensureInitialized(); err != nil {
		return nil, err
	}

	cfg := config.Instance.Secrets
	generator := &secrets.Generator{
		Strategy: secrets.SelectStrategy(ctx, cfg.Interpreter),
		MongoURI: cfg.MongoURI,
	}
	bundle, err := generator.Generate(ctx)
	if err != nil {
		return nil, err
	}

	return &Secrets{
		SecretKey: bundle.SecretKey,
		JWTSecret: bundle.JWTSecret,
		MongoURI:  bundle.MongoURI,
		Strategy:  bundle.Strategy,
	}, nil
}

// GetVersion returns the current version of the tooling API
func GetVersion() string {
	return version.Version
}

// Shutdown performs any necessary cleanup before the application exits
func Shutdown() error {
	if initialized {
		logger.LogInfo("Tooling API shutting down", nil)
		return logger.Sync()
	}
	return nil
}
