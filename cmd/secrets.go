package cmd

import (
	"github.com/deploymenttheory/hms-setup/internal/config"
	"github.com/deploymenttheory/hms-setup/internal/secrets"
	"github.com/spf13/cobra"
)

var forceFallback bool

// secretsCmd prints freshly generated secrets for the service .env files
var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Generate secret keys for the Hospital Management System services",
	Long: `secrets prints a Django secret key, a JWT secret and the MongoDB
connection string, followed by the lines to copy into each service's .env
file. Nothing is written to disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		cfg := config.Instance.Secrets

		var strategy secrets.Strategy = secrets.FallbackStrategy{}
		if !forceFallback {
			strategy = secrets.SelectStrategy(ctx, cfg.Interpreter)
		}

		generator := &secrets.Generator{
			Strategy: strategy,
			MongoURI: cfg.MongoURI,
		}
		bundle, err := generator.Generate(ctx)
		if err != nil {
			return err
		}

		secrets.Report(cmd.OutOrStdout(), bundle, secrets.ReportOptions{
			FrontendAPIURL: cfg.FrontendAPIURL,
		})
		return nil
	},
}

func init() {
	secretsCmd.Flags().BoolVar(&forceFallback, "no-django", false, "skip the Django key routine and use the built-in generator")
}
