package composition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/deploymenttheory/hms-setup/internal/common/errors"
	"github.com/deploymenttheory/hms-setup/internal/config"
	"github.com/deploymenttheory/hms-setup/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(out *bytes.Buffer) *runner.Runner {
	r := runner.New(out)
	r.In = nil
	r.Err = &bytes.Buffer{}
	r.WaitDelay = 2 * time.Second
	return r
}

// testSetupConfig returns a configuration whose external commands only touch
// files inside the work directory.
func testSetupConfig() config.SetupConfig {
	return config.SetupConfig{
		MinRuntimeVersion: "1.0",
		InstallCommand:    "touch",
		Packages:          []string{"pkg-a", "pkg-b"},
		ServicesDir:       "ml_services",
		TrainCommand:      "mkdir -p trained_models",
		TestCommand:       "touch tested",
		ModelsDir:         "trained_models",
		ServeCommand:      "touch",
		Port:              8000,
		FrontendURL:       "http://localhost:5173",
	}
}

func setupWorkDir(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "ml_services"), 0o755))
	return base
}

func runDefault(t *testing.T, ctx context.Context, base string, cfg config.SetupConfig) (string, error) {
	t.Helper()
	p, err := BuildPipeline(DefaultWorkflow(cfg))
	require.NoError(t, err)

	var out bytes.Buffer
	err = p.Run(ctx, WorkContext{BaseDir: base}, newTestRunner(&out))
	return out.String(), err
}

func TestDefaultPipeline_AllStepsSucceed(t *testing.T) {
	base := setupWorkDir(t)

	out, err := runDefault(t, context.Background(), base, testSetupConfig())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(base, "pkg-a"))
	assert.FileExists(t, filepath.Join(base, "pkg-b"))
	assert.DirExists(t, filepath.Join(base, "ml_services", "trained_models"))
	assert.FileExists(t, filepath.Join(base, "ml_services", "tested"))
	// the serve command receives the port as its argument
	assert.FileExists(t, filepath.Join(base, "ml_services", "8000"))

	assert.Contains(t, out, "🏥 Hospital Management System - ML Models Setup")
	assert.Contains(t, out, "✅ Installing pkg-a completed successfully!")
	assert.Contains(t, out, "✅ ML models found! Starting Django server...")
	assert.Contains(t, out, "🌐 Django will be available at: http://localhost:8000")
	assert.Contains(t, out, "🎉 Setup completed successfully!")
}

func TestDefaultPipeline_VersionCheckFailsBeforeInstall(t *testing.T) {
	base := setupWorkDir(t)
	cfg := testSetupConfig()
	cfg.MinRuntimeVersion = "99.0"

	out, err := runDefault(t, context.Background(), base, cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStepFailed)
	assert.ErrorIs(t, err, apperrors.ErrRuntimeVersion)
	assert.NoFileExists(t, filepath.Join(base, "pkg-a"))
	assert.Contains(t, out, "❌ Go 99.0.0+ is required!")
	assert.NotContains(t, out, "Installing ML dependencies")
}

func TestDefaultPipeline_InstallFailureStopsAtFailingPackage(t *testing.T) {
	base := setupWorkDir(t)
	cfg := testSetupConfig()
	cfg.InstallCommand = "sh -c 'test $0 != pkg-b && touch $0'"
	cfg.Packages = []string{"pkg-a", "pkg-b", "pkg-c"}

	out, err := runDefault(t, context.Background(), base, cfg)

	require.Error(t, err)
	assert.FileExists(t, filepath.Join(base, "pkg-a"))
	assert.NoFileExists(t, filepath.Join(base, "pkg-c"))
	assert.NoDirExists(t, filepath.Join(base, "ml_services", "trained_models"))
	assert.Contains(t, out, "❌ Installing pkg-b failed!")
	assert.Contains(t, out, "❌ Failed to install ML dependencies!")
}

func TestDefaultPipeline_TrainingFailureSkipsTestAndServer(t *testing.T) {
	base := setupWorkDir(t)
	cfg := testSetupConfig()
	cfg.TrainCommand = "sh -c 'echo dataset missing >&2; exit 1'"

	out, err := runDefault(t, context.Background(), base, cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStepFailed)
	assert.FileExists(t, filepath.Join(base, "pkg-a"))
	assert.FileExists(t, filepath.Join(base, "pkg-b"))
	assert.NoFileExists(t, filepath.Join(base, "ml_services", "tested"))
	assert.NoFileExists(t, filepath.Join(base, "ml_services", "8000"))
	assert.Contains(t, out, "Error: dataset missing")
	assert.Contains(t, out, "❌ Failed to train ML models!")
	assert.NotContains(t, out, "Testing ML Models")
}

func TestDefaultPipeline_MissingModelsAbortsBeforeServer(t *testing.T) {
	base := setupWorkDir(t)
	cfg := testSetupConfig()
	cfg.TrainCommand = "true"

	out, err := runDefault(t, context.Background(), base, cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrModelsNotTrained)
	assert.NoFileExists(t, filepath.Join(base, "ml_services", "8000"))
	assert.Contains(t, out, "❌ ML models not found! Please train models first.")
	assert.Contains(t, out, "❌ Failed to start Django server!")
	assert.NotContains(t, out, "Django will be available")
}

func TestDefaultPipeline_InterruptedServerCompletes(t *testing.T) {
	base := setupWorkDir(t)
	cfg := testSetupConfig()
	// $0 receives the port argument
	cfg.ServeCommand = "sh -c 'touch serving && exec sleep $0'"
	cfg.Port = 30

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		marker := filepath.Join(base, "ml_services", "serving")
		for ctx.Err() == nil {
			if _, err := os.Stat(marker); err == nil {
				cancel()
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	}()

	out, err := runDefault(t, ctx, base, cfg)

	require.NoError(t, err)
	assert.Contains(t, out, "🛑 Django server stopped by user")
	assert.Contains(t, out, "🎉 Setup completed successfully!")
}

func TestPipeline_NeverRunsStepAfterFailure(t *testing.T) {
	const total = 5
	for failAt := 0; failAt < total; failAt++ {
		t.Run(fmt.Sprintf("fail at step %d", failAt+1), func(t *testing.T) {
			base := t.TempDir()
			p := &Pipeline{Name: "property"}
			for i := 0; i < total; i++ {
				command := fmt.Sprintf("touch step-%d", i)
				if i == failAt {
					command = "false"
				}
				p.Steps = append(p.Steps, Step{
					Name:        fmt.Sprintf("step-%d", i),
					Description: fmt.Sprintf("Step %d", i),
					Action:      Exec{Command: command},
				})
			}

			err := p.Run(context.Background(), WorkContext{BaseDir: base}, newTestRunner(&bytes.Buffer{}))

			require.ErrorIs(t, err, apperrors.ErrStepFailed)
			for i := 0; i < total; i++ {
				path := filepath.Join(base, fmt.Sprintf("step-%d", i))
				if i < failAt {
					assert.FileExists(t, path)
				} else {
					assert.NoFileExists(t, path)
				}
			}
		})
	}
}

func TestPipeline_RerunStartsFromBeginning(t *testing.T) {
	base := t.TempDir()
	counter := filepath.Join(base, "count")
	p := &Pipeline{Name: "rerun", Steps: []Step{{
		Name:        "append",
		Description: "Appending",
		Action:      Exec{Command: "sh -c 'echo x >> count'"},
	}}}

	for i := 0; i < 2; i++ {
		require.NoError(t, p.Run(context.Background(), WorkContext{BaseDir: base}, newTestRunner(&bytes.Buffer{})))
	}

	data, err := os.ReadFile(counter)
	require.NoError(t, err)
	assert.Equal(t, "x\nx\n", string(data))
}

func TestPipeline_EmptyIsError(t *testing.T) {
	err := (&Pipeline{}).Run(context.Background(), WorkContext{}, newTestRunner(&bytes.Buffer{}))
	assert.ErrorIs(t, err, apperrors.ErrEmptyPipeline)
}

func TestGroup_ResolvesDirsAgainstParent(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "outer", "inner"), 0o755))

	p := &Pipeline{Name: "dirs", Steps: []Step{{
		Name: "group",
		Dir:  "outer",
		Action: Group{Steps: []Step{
			{Name: "here", Description: "Touching here", Action: Exec{Command: "touch here"}},
			{Name: "deeper", Description: "Touching deeper", Dir: "inner", Action: Exec{Command: "touch deeper"}},
		}},
	}}}

	require.NoError(t, p.Run(context.Background(), WorkContext{BaseDir: base}, newTestRunner(&bytes.Buffer{})))
	assert.FileExists(t, filepath.Join(base, "outer", "here"))
	assert.FileExists(t, filepath.Join(base, "outer", "inner", "deeper"))
}

type actionFunc func(ctx context.Context, sc StepContext) runner.Result

func (f actionFunc) Execute(ctx context.Context, sc StepContext) runner.Result { return f(ctx, sc) }

func TestPipeline_PointerFailureStopsRun(t *testing.T) {
	base := t.TempDir()
	cause := errors.New("pointer failure")
	p := &Pipeline{Name: "pointer", Steps: []Step{
		{
			Name: "broken",
			Action: actionFunc(func(context.Context, StepContext) runner.Result {
				return &runner.Failure{Diagnostic: "went wrong", Err: cause}
			}),
		},
		{Name: "after", Action: Exec{Command: "touch after"}},
	}}

	err := p.Run(context.Background(), WorkContext{BaseDir: base}, newTestRunner(&bytes.Buffer{}))

	require.ErrorIs(t, err, apperrors.ErrStepFailed)
	assert.ErrorIs(t, err, cause)
	assert.NoFileExists(t, filepath.Join(base, "after"))
}

func TestPipeline_InterruptStopsBeforeNextStep(t *testing.T) {
	base := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &Pipeline{Name: "interrupted", Steps: []Step{
		{
			Name: "check",
			Action: Check{Predicate: func(StepContext) (string, error) {
				cancel()
				return "checked", nil
			}},
		},
		{Name: "after", Action: Exec{Command: "touch after"}},
	}}

	err := p.Run(ctx, WorkContext{BaseDir: base}, newTestRunner(&bytes.Buffer{}))

	require.ErrorIs(t, err, apperrors.ErrInterrupted)
	assert.NotErrorIs(t, err, apperrors.ErrStepFailed)
	assert.NoFileExists(t, filepath.Join(base, "after"))
}

func TestPipeline_InterruptedCommandFails(t *testing.T) {
	base := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)
	defer cancel()

	p := &Pipeline{Name: "slow", Steps: []Step{
		{Name: "train", Description: "Training", Action: Exec{Command: "sleep 30"}},
		{Name: "after", Action: Exec{Command: "touch after"}},
	}}

	start := time.Now()
	err := p.Run(ctx, WorkContext{BaseDir: base}, newTestRunner(&bytes.Buffer{}))

	require.ErrorIs(t, err, apperrors.ErrStepFailed)
	assert.ErrorIs(t, err, apperrors.ErrInterrupted)
	assert.NoFileExists(t, filepath.Join(base, "after"))
	assert.Less(t, time.Since(start), 10*time.Second)
}
