package composition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/deploymenttheory/hms-setup/internal/common/errors"
	"github.com/deploymenttheory/hms-setup/internal/common/fsutil"
	"github.com/deploymenttheory/hms-setup/internal/logger"
	"github.com/deploymenttheory/hms-setup/internal/runner"
)

// WorkContext is the explicit working directory of a run. Steps resolve
// their own Dir against it; the process working directory is never changed.
type WorkContext struct {
	BaseDir string
}

// Resolve returns dir resolved against the context's base directory
func (wc WorkContext) Resolve(dir string) (string, error) {
	base := wc.BaseDir
	if base == "" {
		base = "."
	}
	return fsutil.ResolvePath(base, dir)
}

// StepContext is what an Action sees when it executes
type StepContext struct {
	Description string
	Dir         string
	Work        WorkContext
	Runner      *runner.Runner
	Out         io.Writer
}

// Action is the executable part of a Step
type Action interface {
	Execute(ctx context.Context, sc StepContext) runner.Result
}

// Step is one named unit of work in a pipeline
type Step struct {
	Name        string
	Description string
	Banner      string
	OnFailure   string
	Dir         string
	Action      Action
}

// Pipeline runs its steps in order and stops at the first failure
type Pipeline struct {
	Name       string
	Title      string
	Completion []string
	Steps      []Step
}

// Run executes every step in order. It returns an error wrapping
// ErrStepFailed for the first failing step; later steps never run.
func (p *Pipeline) Run(ctx context.Context, wc WorkContext, r *runner.Runner) error {
	if len(p.Steps) == 0 {
		return apperrors.ErrEmptyPipeline
	}

	if p.Title != "" {
		fmt.Fprintln(r.Out, p.Title)
		fmt.Fprintln(r.Out, strings.Repeat("=", 60))
	}

	logger.LogInfo("Starting pipeline", map[string]interface{}{
		"pipeline": p.Name,
		"steps":    len(p.Steps),
		"base_dir": wc.BaseDir,
	})

	for i, step := range p.Steps {
		if ctx.Err() != nil {
			logger.LogWarn("Pipeline interrupted", map[string]interface{}{
				"pipeline": p.Name,
				"next":     step.Name,
			})
			return fmt.Errorf("%w: before step %s", apperrors.ErrInterrupted, step.Name)
		}

		logger.LogInfo(fmt.Sprintf("Executing step %d/%d: %s", i+1, len(p.Steps), step.Name), nil)

		res := runStep(ctx, wc, r, "", step)
		if !res.OK() {
			if step.OnFailure != "" {
				fmt.Fprintln(r.Out, step.OnFailure)
			}
			cause, ok := res.(error)
			if !ok {
				cause = errors.New(res.Text())
			}
			logger.LogError("Pipeline aborted", cause, map[string]interface{}{
				"pipeline": p.Name,
				"step":     step.Name,
			})
			return fmt.Errorf("%w: %s: %w", apperrors.ErrStepFailed, step.Name, cause)
		}

		logger.LogInfo(fmt.Sprintf("Completed step %d/%d: %s", i+1, len(p.Steps), step.Name), nil)
	}

	for _, line := range p.Completion {
		fmt.Fprintln(r.Out, line)
	}

	logger.LogInfo("Pipeline completed successfully", map[string]interface{}{
		"pipeline": p.Name,
	})
	return nil
}

// runStep resolves the step's directory relative to parentDir (or the base
// directory) and executes its action.
func runStep(ctx context.Context, wc WorkContext, r *runner.Runner, parentDir string, step Step) runner.Result {
	if step.Banner != "" {
		fmt.Fprintln(r.Out, step.Banner)
	}

	dir := parentDir
	if dir == "" || step.Dir != "" {
		base := wc
		if parentDir != "" {
			base = WorkContext{BaseDir: parentDir}
		}
		resolved, err := base.Resolve(step.Dir)
		if err != nil {
			return runner.Failure{Diagnostic: err.Error(), Err: err}
		}
		dir = resolved
	}

	return step.Action.Execute(ctx, StepContext{
		Description: step.Description,
		Dir:         dir,
		Work:        wc,
		Runner:      r,
		Out:         r.Out,
	})
}
