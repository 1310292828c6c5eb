package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/deploymenttheory/hms-setup/internal/common/fsutil"
	"github.com/deploymenttheory/hms-setup/internal/composition"
	"github.com/deploymenttheory/hms-setup/internal/config"
	"github.com/deploymenttheory/hms-setup/internal/logger"
	"github.com/deploymenttheory/hms-setup/internal/runner"
	"github.com/spf13/cobra"
)

var (
	workflowFile string
	baseDir      string
	listSteps    bool
)

// setupCmd runs the ML setup sequence
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Install ML dependencies, train and test the models, then start the Django server",
	Long: `setup runs the ML setup sequence step by step and stops at the first
failing step. The final step runs the Django development server in the
foreground; stop it with Ctrl+C.

A custom sequence can be supplied with --workflow.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Instance.Setup
		if cmd.Flags().Changed("base-dir") {
			cfg.BaseDir = baseDir
		}
		if cmd.Flags().Changed("workflow") {
			cfg.Workflow = workflowFile
		}

		pipeline, err := loadPipeline(cfg)
		if err != nil {
			return err
		}

		if listSteps {
			printSteps(cmd.OutOrStdout(), pipeline)
			return nil
		}

		base, err := fsutil.ToAbsPath(cfg.BaseDir)
		if err != nil {
			return err
		}
		if err := fsutil.RequireDir(base); err != nil {
			return fmt.Errorf("base directory: %w", err)
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return pipeline.Run(ctx, composition.WorkContext{BaseDir: base}, runner.New(cmd.OutOrStdout()))
	},
}

func init() {
	setupCmd.Flags().StringVarP(&workflowFile, "workflow", "w", "", "workflow file to execute instead of the default sequence")
	setupCmd.Flags().StringVar(&baseDir, "base-dir", ".", "project directory the steps run in")
	setupCmd.Flags().BoolVar(&listSteps, "list", false, "print the steps without running them")
}

// loadPipeline builds the pipeline from the configured workflow file, or the
// default sequence when none is set
func loadPipeline(cfg config.SetupConfig) (*composition.Pipeline, error) {
	workflow := composition.DefaultWorkflow(cfg)
	if cfg.Workflow != "" {
		logger.LogInfo("Loading workflow", map[string]interface{}{
			"file": cfg.Workflow,
		})

		var err error
		workflow, err = composition.LoadWorkflow(cfg.Workflow, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow: %w", err)
		}
	}

	return composition.BuildPipeline(workflow)
}

func printSteps(w io.Writer, p *composition.Pipeline) {
	fmt.Fprintf(w, "%s (%d steps)\n", p.Name, len(p.Steps))
	for i, step := range p.Steps {
		dir := step.Dir
		if dir == "" {
			dir = "."
		}
		fmt.Fprintf(w, "%d. %s: %s [%s]\n", i+1, step.Name, step.Description, dir)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
