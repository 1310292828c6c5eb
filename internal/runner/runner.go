// Package runner executes external commands for setup steps and normalizes
// their outcome into a Result.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	apperrors "github.com/deploymenttheory/hms-setup/internal/common/errors"
	"github.com/deploymenttheory/hms-setup/internal/common/osutil"
	"github.com/deploymenttheory/hms-setup/internal/logger"
	"github.com/google/shlex"
)

// DefaultWaitDelay bounds how long a foreground command may take to exit
// after it has been asked to stop.
const DefaultWaitDelay = 10 * time.Second

// StoppedByUser is the output of a foreground command ended by an interrupt.
const StoppedByUser = "stopped by user"

// Command is an external command and the directory it runs in. Args, when
// set, is used as the argument vector as is; otherwise Line is split with
// shell-style quoting.
type Command struct {
	Line string
	Args []string
	Dir  string
	Env  []string // appended to the current environment
}

func (c Command) String() string {
	if len(c.Args) > 0 {
		return strings.Join(c.Args, " ")
	}
	return c.Line
}

// Runner runs commands and reports progress to Out.
type Runner struct {
	Out       io.Writer
	Err       io.Writer
	In        io.Reader
	WaitDelay time.Duration
}

// New returns a Runner reporting to out. Foreground commands inherit the
// process stdin and stderr.
func New(out io.Writer) *Runner {
	return &Runner{
		Out:       out,
		Err:       os.Stderr,
		In:        os.Stdin,
		WaitDelay: DefaultWaitDelay,
	}
}

// Run executes cmd synchronously with stdout and stderr captured. A non-zero
// exit and a command that cannot be started both produce a Failure.
func (r *Runner) Run(ctx context.Context, description string, cmd Command) Result {
	fmt.Fprintf(r.Out, "\n🔄 %s...\n", description)
	fmt.Fprintf(r.Out, "Command: %s\n", cmd)

	stdout, stderr, err := Capture(ctx, cmd)
	if err != nil {
		logger.LogError("Step failed", err, map[string]interface{}{
			"step":    description,
			"command": cmd.String(),
			"dir":     cmd.Dir,
		})
		res := Failure{Diagnostic: diagnostic(stderr, err), Err: err}
		fmt.Fprintf(r.Out, "❌ %s failed!\n", description)
		fmt.Fprintf(r.Out, "Error: %s\n", res.Text())
		return res
	}

	logger.LogDebug("Step completed", map[string]interface{}{
		"step":    description,
		"command": cmd.String(),
		"dir":     cmd.Dir,
	})
	fmt.Fprintf(r.Out, "✅ %s completed successfully!\n", description)
	if stdout != "" {
		fmt.Fprintf(r.Out, "Output: %s\n", stdout)
	}
	return Success{Output: stdout}
}

// RunForeground runs a long-lived command attached to the runner's stdio and
// blocks until it exits. Cancelling ctx asks the command to stop; a command
// stopped that way, or terminated by a signal, is reported as a Success.
func (r *Runner) RunForeground(ctx context.Context, description string, cmd Command) Result {
	logger.LogInfo("Starting foreground command", map[string]interface{}{
		"step":    description,
		"command": cmd.String(),
		"dir":     cmd.Dir,
	})

	c, err := build(ctx, cmd)
	if err != nil {
		fmt.Fprintf(r.Out, "❌ %s failed!\n", description)
		fmt.Fprintf(r.Out, "Error: %s\n", err)
		return Failure{Diagnostic: err.Error(), Err: err}
	}
	c.Stdout = r.Out
	c.Stderr = r.Err
	c.Stdin = r.In
	c.Cancel = func() error {
		if osutil.IsWindows() {
			return c.Process.Kill()
		}
		return c.Process.Signal(os.Interrupt)
	}
	c.WaitDelay = r.WaitDelay

	if err := c.Start(); err != nil {
		err = fmt.Errorf("%w: %v", apperrors.ErrCommandStart, err)
		logger.LogError("Foreground command could not start", err, map[string]interface{}{
			"step": description,
		})
		fmt.Fprintf(r.Out, "❌ %s failed!\n", description)
		fmt.Fprintf(r.Out, "Error: %s\n", err)
		return Failure{Diagnostic: err.Error(), Err: err}
	}

	waitErr := c.Wait()
	if ctx.Err() != nil || interrupted(waitErr) {
		logger.LogInfo("Foreground command stopped by user", map[string]interface{}{
			"step": description,
		})
		return Success{Output: StoppedByUser}
	}
	if waitErr != nil {
		logger.LogWarn("Foreground command exited", map[string]interface{}{
			"step":  description,
			"error": waitErr.Error(),
		})
		return Success{Output: fmt.Sprintf("exited: %v", waitErr)}
	}
	return Success{}
}

// Capture runs cmd to completion and returns its trimmed stdout and stderr.
// A command cut short by cancelling ctx fails with ErrInterrupted.
func Capture(ctx context.Context, cmd Command) (string, string, error) {
	c, err := build(ctx, cmd)
	if err != nil {
		return "", "", err
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			err = fmt.Errorf("%w: %v", apperrors.ErrInterrupted, err)
		case !errors.As(err, &exitErr):
			err = fmt.Errorf("%w: %v", apperrors.ErrCommandStart, err)
		}
		return trim(stdout.String()), trim(stderr.String()), err
	}
	return trim(stdout.String()), trim(stderr.String()), nil
}

// diagnostic is the operator-facing text of a failed command: its stderr,
// or the error itself when the command never ran.
func diagnostic(stderr string, err error) string {
	if errors.Is(err, apperrors.ErrCommandStart) || errors.Is(err, apperrors.ErrCommandParse) {
		return err.Error()
	}
	return stderr
}

func build(ctx context.Context, cmd Command) (*exec.Cmd, error) {
	args := cmd.Args
	if len(args) == 0 {
		var err error
		args, err = shlex.Split(cmd.Line)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrCommandParse, err)
		}
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty command", apperrors.ErrCommandParse)
	}

	c := exec.CommandContext(ctx, args[0], args[1:]...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	return c, nil
}

// interrupted reports whether err is the exit of a process killed by a signal.
func interrupted(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == -1
}

func trim(s string) string {
	return strings.TrimRight(s, "\r\n")
}
