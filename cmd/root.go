package cmd

import (
	"fmt"

	"github.com/deploymenttheory/hms-setup/internal/config"
	"github.com/deploymenttheory/hms-setup/internal/logger"
	"github.com/deploymenttheory/hms-setup/internal/version"
	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base CLI command
var rootCmd = &cobra.Command{
	Use:   "hms-setup",
	Short: "Setup tooling for the Hospital Management System",
	Long: `hms-setup prepares a Hospital Management System checkout for local use.

It generates placeholder secrets for the service .env files, and runs the
ML setup sequence: dependency installation, model training, inference
testing and finally the Django development server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(cfgFile); err != nil {
			return fmt.Errorf("error initializing configuration: %w", err)
		}

		// CLI flags override config settings
		if cmd.Flags().Changed("debug") {
			config.Instance.Debug, _ = cmd.Flags().GetBool("debug")
		}
		if cmd.Flags().Changed("log-format") {
			config.Instance.LogFormat, _ = cmd.Flags().GetString("log-format")
		}
		if cmd.Flags().Changed("log-file") {
			config.Instance.LogFile, _ = cmd.Flags().GetString("log-file")
		}

		if err := logger.InitLogger(logger.LoggerConfig{
			Debug:     config.Instance.Debug,
			LogFormat: config.Instance.LogFormat,
			LogFile:   config.Instance.LogFile,
		}); err != nil {
			return fmt.Errorf("error initializing logger: %w", err)
		}

		logger.LogInfo("Application started", map[string]interface{}{
			"version":     version.Version,
			"command":     cmd.Name(),
			"config_file": config.ConfigFile,
		})
		if !config.ConfigLoaded {
			logger.LogDebug("No configuration file found, using defaults", nil)
		}
		return nil
	},
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	defer func() { _ = logger.Sync() }()

	if err := rootCmd.Execute(); err != nil {
		logger.LogError("Command execution failed", err, nil)
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is hms-setup.yaml in standard locations)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().String("log-format", "human", "Log format: json or human")
	rootCmd.PersistentFlags().String("log-file", "", "Log file path")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(secretsCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows the application version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hms-setup v%s\n", version.Version)
	},
}
