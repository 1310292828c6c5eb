package composition

// Workflow represents the entire setup workflow
type Workflow struct {
	// Name of the workflow (required)
	Name string `mapstructure:"name"`

	// Optional title printed before the first step
	Title string `mapstructure:"title,omitempty"`

	// Optional description of the workflow
	Description string `mapstructure:"description,omitempty"`

	// Version of the workflow definition
	Version string `mapstructure:"version,omitempty"`

	// Lines printed after every step succeeded
	Completion []string `mapstructure:"completion,omitempty"`

	// Ordered list of steps to execute
	Steps []StepDefinition `mapstructure:"steps"`

	// Variables that can be referenced in step parameters
	Variables map[string]interface{} `mapstructure:"variables,omitempty"`
}

// StepDefinition represents a single step in the workflow file
type StepDefinition struct {
	// Unique name for the step (required)
	Name string `mapstructure:"name"`

	// Type of operation to perform (required)
	Type string `mapstructure:"type"`

	// Human-readable description used in progress lines
	Description string `mapstructure:"description,omitempty"`

	// Line printed before the step starts
	Banner string `mapstructure:"banner,omitempty"`

	// Line printed when the step fails
	OnFailure string `mapstructure:"on_failure,omitempty"`

	// Working directory, relative to the run's base directory
	Dir string `mapstructure:"dir,omitempty"`

	// Optional conditional execution expression
	Condition string `mapstructure:"condition,omitempty"`

	// Type specific parameters
	// Uses ",remain" to capture all additional parameters
	Parameters map[string]interface{} `mapstructure:",remain"`
}
