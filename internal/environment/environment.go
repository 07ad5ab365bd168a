// Package environment provisions the isolated virtual environment a module's
// tests run in.
package environment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mtr/internal/config"
	"mtr/internal/domain"
	"mtr/internal/process"
)

// SetupError is a failure to provision an environment, as opposed to a test failure
type SetupError struct {
	Stage  domain.Stage // Stage that could not be reached
	Step   string
	Output string
	Err    error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// ErrCommandFailed marks a provisioning command that exited non-zero
var ErrCommandFailed = errors.New("command failed")

// Manager creates, populates and removes environments
type Manager struct {
	config   *config.Config
	executor process.Executor
	log      zerolog.Logger
}

// NewManager creates a new Manager
func NewManager(cfg *config.Config, executor process.Executor, log zerolog.Logger) *Manager {
	return &Manager{config: cfg, executor: executor, log: log}
}

// Create makes a fresh virtual environment for module under the envs dir
func (m *Manager) Create(ctx context.Context, module string) (domain.Environment, error) {
	id := uuid.NewString()
	dir := filepath.Join(m.config.EnvsDir, fmt.Sprintf("mtr-%s-%s", module, id))
	env := domain.Environment{
		ID:        id,
		Module:    module,
		Dir:       dir,
		Python:    pythonPath(dir),
		UtilsRoot: m.config.GetUtilsRoot(),
		Vars:      map[string]string{},
	}

	if err := os.MkdirAll(m.config.EnvsDir, 0755); err != nil {
		return env, &SetupError{Stage: domain.StageEnvCreated, Step: "create envs dir", Err: err}
	}

	cmd := process.Command{
		Name: m.config.Python,
		Args: []string{"-m", "venv", dir},
		Dir:  m.config.ProjectPath,
	}
	if err := m.run(ctx, cmd, domain.StageEnvCreated, "create environment"); err != nil {
		return env, err
	}

	m.log.Debug().Str("module", module).Str("env", dir).Msg("environment created")
	return env, nil
}

// Install upgrades pip inside env (when enabled) and installs the given
// requirements files in one pip invocation, so pip resolves them together.
func (m *Manager) Install(ctx context.Context, env domain.Environment, files []string) error {
	if m.config.UpgradePip {
		cmd := m.pip(env, "install", "--upgrade", "pip")
		if err := m.run(ctx, cmd, domain.StageDepsInstalled, "upgrade pip"); err != nil {
			return err
		}
	}

	if len(files) == 0 {
		m.log.Debug().Str("module", env.Module).Msg("no requirements to install")
		return nil
	}

	args := []string{"install"}
	for _, f := range files {
		args = append(args, "-r", f)
	}
	if err := m.run(ctx, m.pip(env, args...), domain.StageDepsInstalled, "install requirements"); err != nil {
		return err
	}

	m.log.Debug().Str("module", env.Module).Strs("files", files).Msg("requirements installed")
	return nil
}

// Teardown removes the environment directory unless environments are kept
func (m *Manager) Teardown(env domain.Environment) error {
	if env.Dir == "" {
		return nil
	}
	if m.config.KeepEnv {
		m.log.Info().Str("module", env.Module).Str("env", env.Dir).Msg("keeping environment")
		return nil
	}
	if err := os.RemoveAll(env.Dir); err != nil {
		return fmt.Errorf("remove environment %s: %w", env.Dir, err)
	}
	return nil
}

func (m *Manager) pip(env domain.Environment, args ...string) process.Command {
	base := []string{"-m", "pip", "--disable-pip-version-check", "--no-input"}
	return process.Command{
		Name: env.Python,
		Args: append(base, args...),
		Dir:  m.config.ProjectPath,
		Env:  env.Environ(os.Environ()),
	}
}

func (m *Manager) run(ctx context.Context, cmd process.Command, stage domain.Stage, step string) error {
	res, err := m.executor.Run(ctx, cmd)
	if err != nil {
		return &SetupError{Stage: stage, Step: step, Output: res.Output, Err: err}
	}
	if res.ExitCode != 0 {
		return &SetupError{
			Stage:  stage,
			Step:   step,
			Output: res.Output,
			Err:    fmt.Errorf("%w: %s exited with %d", ErrCommandFailed, cmd.String(), res.ExitCode),
		}
	}
	return nil
}

func pythonPath(dir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(dir, "Scripts", "python.exe")
	}
	return filepath.Join(dir, "bin", "python")
}
