package environment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtr/internal/config"
	"mtr/internal/domain"
	"mtr/internal/process/processtest"
)

func newManager(t *testing.T) (*Manager, *processtest.Toolchain, *config.Config) {
	t.Helper()
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()
	cfg.EnvsDir = filepath.Join(t.TempDir(), "envs")
	toolchain := processtest.NewToolchain()
	return NewManager(cfg, toolchain, zerolog.Nop()), toolchain, cfg
}

func writeRequirements(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestManager_Create(t *testing.T) {
	m, toolchain, cfg := newManager(t)

	env, err := m.Create(context.Background(), "alpha")
	require.NoError(t, err)

	assert.DirExists(t, env.Dir)
	assert.True(t, strings.HasPrefix(filepath.Base(env.Dir), "mtr-alpha-"))
	assert.Equal(t, filepath.Join(env.Dir, "bin", "python"), env.Python)
	assert.Equal(t, cfg.GetUtilsRoot(), env.UtilsRoot)

	cmds := toolchain.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, []string{"-m", "venv", env.Dir}, cmds[0].Args)

	t.Run("environments never share a directory", func(t *testing.T) {
		other, err := m.Create(context.Background(), "alpha")
		require.NoError(t, err)
		assert.NotEqual(t, env.Dir, other.Dir)
	})
}

func TestManager_CreateFailure(t *testing.T) {
	m, toolchain, _ := newManager(t)
	toolchain.FailVenv = true

	_, err := m.Create(context.Background(), "alpha")

	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, domain.StageEnvCreated, setupErr.Stage)
	assert.Contains(t, setupErr.Output, "venv unavailable")
	assert.True(t, errors.Is(err, ErrCommandFailed))
}

func TestManager_Install(t *testing.T) {
	ctx := context.Background()

	t.Run("upgrades pip then installs every file in one call", func(t *testing.T) {
		m, toolchain, cfg := newManager(t)
		testReqs := writeRequirements(t, cfg.ProjectPath, "tests.txt", "pytest\n")
		utilsReqs := writeRequirements(t, cfg.ProjectPath, "utils.txt", "pandas>=1.0\n")
		env, err := m.Create(ctx, "alpha")
		require.NoError(t, err)

		require.NoError(t, m.Install(ctx, env, []string{testReqs, utilsReqs}))

		pips := toolchain.CommandsMatching("-m pip")
		require.Len(t, pips, 2)
		assert.Contains(t, pips[0].String(), "install --upgrade pip")
		assert.True(t, strings.HasSuffix(pips[1].String(), "install -r "+testReqs+" -r "+utilsReqs))
		assert.Equal(t, env.Python, pips[1].Name)
	})

	t.Run("hashed continuations and constraints reach pip as a file", func(t *testing.T) {
		m, toolchain, cfg := newManager(t)
		writeRequirements(t, cfg.ProjectPath, "constraints.txt", "six<2\n")
		reqs := writeRequirements(t, cfg.ProjectPath, "requirements.txt", `six==1.16.0 \
    --hash=sha256:1e61c37477a1626458e36f7b1d82aa5c9b094fa4802892072e49de9c60c4c926
-c constraints.txt
`)
		env, err := m.Create(ctx, "alpha")
		require.NoError(t, err)

		require.NoError(t, m.Install(ctx, env, []string{reqs}))

		pips := toolchain.CommandsMatching("install -r")
		require.Len(t, pips, 1)
		for _, arg := range pips[0].Args {
			assert.NotContains(t, arg, " ", "pip arguments never carry option text with spaces")
			assert.False(t, strings.HasPrefix(arg, "--hash"))
		}
	})

	t.Run("empty list only upgrades pip", func(t *testing.T) {
		m, toolchain, _ := newManager(t)
		env, err := m.Create(ctx, "alpha")
		require.NoError(t, err)

		require.NoError(t, m.Install(ctx, env, nil))
		assert.Len(t, toolchain.CommandsMatching("-m pip"), 1)
	})

	t.Run("pip upgrade can be disabled", func(t *testing.T) {
		m, toolchain, cfg := newManager(t)
		cfg.UpgradePip = false
		env, err := m.Create(ctx, "alpha")
		require.NoError(t, err)

		require.NoError(t, m.Install(ctx, env, nil))
		assert.Empty(t, toolchain.CommandsMatching("-m pip"))
	})

	t.Run("unknown package is a setup error", func(t *testing.T) {
		m, toolchain, _ := newManager(t)
		toolchain.UnknownPackages["no-such-package-xyz"] = true
		env, err := m.Create(ctx, "gamma")
		require.NoError(t, err)

		reqs := writeRequirements(t, env.Dir, "requirements.txt", "no-such-package-xyz\n")
		err = m.Install(ctx, env, []string{reqs})

		var setupErr *SetupError
		require.ErrorAs(t, err, &setupErr)
		assert.Equal(t, domain.StageDepsInstalled, setupErr.Stage)
		assert.Contains(t, setupErr.Output, "No matching distribution")
	})
}

func TestManager_Teardown(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the environment", func(t *testing.T) {
		m, _, _ := newManager(t)
		env, err := m.Create(ctx, "alpha")
		require.NoError(t, err)

		require.NoError(t, m.Teardown(env))
		_, statErr := os.Stat(env.Dir)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("keep env leaves it in place", func(t *testing.T) {
		m, _, cfg := newManager(t)
		cfg.KeepEnv = true
		env, err := m.Create(ctx, "alpha")
		require.NoError(t, err)

		require.NoError(t, m.Teardown(env))
		assert.DirExists(t, env.Dir)
	})

	t.Run("zero environment is a no-op", func(t *testing.T) {
		m, _, _ := newManager(t)
		assert.NoError(t, m.Teardown(domain.Environment{}))
	})
}
