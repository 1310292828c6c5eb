package composition

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	apperrors "github.com/deploymenttheory/hms-setup/internal/common/errors"
	"github.com/deploymenttheory/hms-setup/internal/common/fsutil"
	"github.com/deploymenttheory/hms-setup/internal/common/osutil"
	"github.com/deploymenttheory/hms-setup/internal/runner"
	"golang.org/x/mod/semver"
)

// Check is a local predicate. It never starts an external process.
// Predicate returns the line printed on success.
type Check struct {
	Predicate func(sc StepContext) (string, error)
}

func (c Check) Execute(_ context.Context, sc StepContext) runner.Result {
	msg, err := c.Predicate(sc)
	if err != nil {
		fmt.Fprintf(sc.Out, "❌ %s\n", err)
		return runner.Failure{Diagnostic: err.Error(), Err: err}
	}
	if msg != "" {
		fmt.Fprintf(sc.Out, "✅ %s\n", msg)
	}
	return runner.Success{Output: msg}
}

// RuntimeVersionCheck builds a Check requiring the running toolchain to be
// at least minimum. current defaults to the Go runtime version.
func RuntimeVersionCheck(minimum string, current func() string) Check {
	if current == nil {
		current = osutil.GoVersion
	}
	return Check{Predicate: func(StepContext) (string, error) {
		return CompareRuntimeVersion(current(), minimum)
	}}
}

// CompareRuntimeVersion checks a "go1.x.y" style version against a "1.x" minimum version
func CompareRuntimeVersion(current, minimum string) (string, error) {
	have := canonical(current)
	want := canonical(minimum)
	if !semver.IsValid(want) {
		return "", fmt.Errorf("%w: minimum version %q", apperrors.ErrInvalidArgument, minimum)
	}

	display := strings.TrimPrefix(have, "v")
	if !semver.IsValid(have) || semver.Compare(have, want) < 0 {
		if !semver.IsValid(have) {
			display = current
		}
		return "", &checkError{
			msg: fmt.Sprintf("Go %s+ is required! Current version: %s", strings.TrimPrefix(want, "v"), display),
			err: apperrors.ErrRuntimeVersion,
		}
	}

	return fmt.Sprintf("Go %s is compatible!", display), nil
}

// canonical turns "go1.24.1", "1.22" or "v1.22" into a semver string.
// Anything it cannot read becomes "", which semver treats as invalid.
func canonical(version string) string {
	v := strings.TrimSpace(version)
	v = strings.TrimPrefix(v, "go")
	v = strings.TrimPrefix(v, "v")
	// release candidates carry suffixes such as "rc1" without a dash
	if i := strings.IndexFunc(v, func(r rune) bool { return (r < '0' || r > '9') && r != '.' }); i >= 0 {
		v = v[:i]
	}
	return semver.Canonical("v" + v)
}

// DirCheck requires Path, relative to the step directory, to be a directory
type DirCheck struct {
	Path    string
	Found   string
	Missing string
	Err     error
}

func (d DirCheck) Execute(ctx context.Context, sc StepContext) runner.Result {
	return Check{Predicate: func(sc StepContext) (string, error) {
		path, err := fsutil.ResolvePath(sc.Dir, d.Path)
		if err != nil {
			return "", err
		}
		if fsutil.DirExists(path) {
			return d.Found, nil
		}

		sentinel := d.Err
		if sentinel == nil {
			sentinel = apperrors.ErrDirNotFound
		}
		msg := d.Missing
		if msg == "" {
			msg = filepath.Base(path) + " not found"
		}
		return "", &checkError{msg: msg, err: sentinel}
	}}.Execute(ctx, sc)
}

// checkError prints as its operator message and unwraps to its sentinel
type checkError struct {
	msg string
	err error
}

func (e *checkError) Error() string { return e.msg }
func (e *checkError) Unwrap() error { return e.err }

// Exec runs one external command through the step runner
type Exec struct {
	Command string
	Env     []string
}

func (e Exec) Execute(ctx context.Context, sc StepContext) runner.Result {
	return sc.Runner.Run(ctx, sc.Description, runner.Command{
		Line: e.Command,
		Dir:  sc.Dir,
		Env:  e.Env,
	})
}

// Group runs a sub-sequence of steps and fails on the first failing member
type Group struct {
	Steps []Step
}

func (g Group) Execute(ctx context.Context, sc StepContext) runner.Result {
	for _, step := range g.Steps {
		res := runStep(ctx, sc.Work, sc.Runner, sc.Dir, step)
		if !res.OK() {
			return res
		}
	}
	return runner.Success{}
}

// Serve runs a long-lived command in the foreground. An interrupt ends it
// cleanly.
type Serve struct {
	Command string
	Notices []string
	Env     []string
}

func (s Serve) Execute(ctx context.Context, sc StepContext) runner.Result {
	for _, notice := range s.Notices {
		fmt.Fprintln(sc.Out, notice)
	}

	res := sc.Runner.RunForeground(ctx, sc.Description, runner.Command{
		Line: s.Command,
		Dir:  sc.Dir,
		Env:  s.Env,
	})
	if res.OK() && res.Text() == runner.StoppedByUser {
		fmt.Fprintf(sc.Out, "\n🛑 %s stopped by user\n", sc.Description)
	}
	return res
}
