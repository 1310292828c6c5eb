package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	apperrors "github.com/deploymenttheory/hms-setup/internal/common/errors"
	"github.com/deploymenttheory/hms-setup/internal/common/fsutil"
	"github.com/deploymenttheory/hms-setup/internal/common/osutil"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name used for config files and directories
	AppName = "hms-setup"

	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "HMS_SETUP"
)

// DefaultPackages are the ML dependencies installed by the setup pipeline
var DefaultPackages = []string{
	"scikit-learn==1.3.2",
	"pandas==2.1.4",
	"numpy==1.24.3",
	"xgboost==2.0.3",
	"scipy==1.11.4",
}

// SetupConfig drives the setup orchestrator
type SetupConfig struct {
	BaseDir           string   `mapstructure:"base_dir"`
	Workflow          string   `mapstructure:"workflow"`
	MinRuntimeVersion string   `mapstructure:"min_runtime_version"`
	InstallCommand    string   `mapstructure:"install_command"`
	Packages          []string `mapstructure:"packages"`
	ServicesDir       string   `mapstructure:"services_dir"`
	TrainCommand      string   `mapstructure:"train_command"`
	TestCommand       string   `mapstructure:"test_command"`
	ModelsDir         string   `mapstructure:"models_dir"`
	ServeCommand      string   `mapstructure:"serve_command"`
	Port              int      `mapstructure:"port"`
	FrontendURL       string   `mapstructure:"frontend_url"`
}

// SecretsConfig drives the secret emission utility
type SecretsConfig struct {
	Interpreter    string `mapstructure:"interpreter"`
	MongoURI       string `mapstructure:"mongodb_uri"`
	FrontendAPIURL string `mapstructure:"frontend_api_url"`
}

// AppConfig holds the application configuration
type AppConfig struct {
	// Core settings
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	Setup   SetupConfig   `mapstructure:"setup"`
	Secrets SecretsConfig `mapstructure:"secrets"`
}

// Global variables
var (
	// Global configuration instance
	Instance AppConfig

	// Status indicators
	ConfigLoaded bool
	ConfigFile   string

	// Ensure thread safety
	initOnce sync.Once
)

// Initialize sets up the global configuration once per process
func Initialize(cfgFile string) error {
	var err error

	initOnce.Do(func() {
		var cfg *AppConfig
		var used string
		cfg, used, err = Load(cfgFile)
		if cfg != nil {
			Instance = *cfg
		}
		ConfigFile = used
		ConfigLoaded = used != ""
	})

	return err
}

// Load reads configuration from cfgFile, or from the standard search paths
// when cfgFile is empty, layered over defaults and HMS_SETUP_* environment
// variables. It returns the name of the file used, if any.
func Load(cfgFile string) (*AppConfig, string, error) {
	v := NewViper()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		addSearchPaths(v)
	}

	var used string
	if readErr := v.ReadInConfig(); readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, "", fmt.Errorf("%w: %v", apperrors.ErrConfigParseError, readErr)
		}
	} else {
		used = v.ConfigFileUsed()
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", fmt.Errorf("%w: %v", apperrors.ErrConfigParseError, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, used, nil
}

// NewViper returns a viper instance with defaults and environment bindings applied
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Core settings
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")

	logDir, err := fsutil.GetLogDir(AppName)
	if err == nil {
		v.SetDefault("log_file", filepath.Join(logDir, "hms-setup.log"))
	} else {
		v.SetDefault("log_file", "logs/hms-setup.log")
	}

	// Setup defaults
	v.SetDefault("setup.base_dir", ".")
	v.SetDefault("setup.workflow", "")
	v.SetDefault("setup.min_runtime_version", "1.22")
	v.SetDefault("setup.install_command", "pip install")
	v.SetDefault("setup.packages", DefaultPackages)
	v.SetDefault("setup.services_dir", "ml_services")
	v.SetDefault("setup.train_command", "python train_models.py")
	v.SetDefault("setup.test_command", "python ml_models/ml_inference.py")
	v.SetDefault("setup.models_dir", "trained_models")
	v.SetDefault("setup.serve_command", "python manage.py runserver")
	v.SetDefault("setup.port", 8000)
	v.SetDefault("setup.frontend_url", "http://localhost:5173")

	// Secrets defaults
	v.SetDefault("secrets.interpreter", "python")
	v.SetDefault("secrets.mongodb_uri", "mongodb://localhost:27017/hospital_db")
	v.SetDefault("secrets.frontend_api_url", "http://localhost:8000/api")
}

// addSearchPaths adds config search paths
func addSearchPaths(v *viper.Viper) {
	// Always check current directory first
	v.AddConfigPath(".")

	if osutil.IsDevEnvironment() {
		return
	}

	// In CI/Pipeline, only use current directory and the system directory
	if osutil.IsRunningInPipeline() {
		v.AddConfigPath("/etc/" + AppName)
		return
	}

	if configDir, err := fsutil.GetConfigDir(AppName); err == nil {
		v.AddConfigPath(configDir)
	}

	if systemConfigDir, err := fsutil.GetSystemConfigDir(AppName); err == nil {
		v.AddConfigPath(systemConfigDir)
	}
}

// Validate checks the values that the orchestrator cannot run without
func (c *AppConfig) Validate() error {
	switch c.LogFormat {
	case "human", "json":
	default:
		return fmt.Errorf("%w: unsupported log format %q", apperrors.ErrConfigInvalid, c.LogFormat)
	}

	if c.Setup.Port <= 0 || c.Setup.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", apperrors.ErrConfigInvalid, c.Setup.Port)
	}

	if strings.TrimSpace(c.Setup.InstallCommand) == "" {
		return fmt.Errorf("%w: install_command is required", apperrors.ErrConfigInvalid)
	}

	return nil
}
