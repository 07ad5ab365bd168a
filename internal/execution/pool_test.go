package execution

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtr/internal/config"
	"mtr/internal/domain"
	"mtr/internal/process/processtest"
	"mtr/internal/report"
)

type recordingProgress struct {
	mu       sync.Mutex
	updates  int
	finished bool
	last     [2]int
}

func (p *recordingProgress) Update(successCount, failCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates++
	p.last = [2]int{successCount, failCount}
}

func (p *recordingProgress) Finish() {
	p.finished = true
}

// Scenario A: two modules with trivial suites and empty requirement files
func TestHarness_RunAll_EmptySuites(t *testing.T) {
	f := newFixture(t, map[string]string{"alpha": "", "beta": ""})

	results, _, err := f.harness.RunAll(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, domain.OutcomePassed, r.Outcome, r.Module)
		assert.Equal(t, 0, r.Counts.Failures)
		assert.FileExists(t, r.ReportPath)
	}
	assert.NotEqual(t, results[0].ReportPath, results[1].ReportPath)

	merged, err := report.ReadFile(f.cfg.GetAggregateReportPath())
	require.NoError(t, err)
	assert.Len(t, merged.Suites, 2)
	assert.Equal(t, 0, merged.Failures+merged.Errors)
}

func TestHarness_RunAll_Completeness(t *testing.T) {
	f := newFixture(t, map[string]string{
		"alpha": "",
		"delta": "",
		"gamma": "no-such-package-xyz\n",
		"slow":  "",
	})
	f.toolchain.Suites["delta"] = []processtest.Case{{Name: "test_broken", Failed: true}}
	f.toolchain.UnknownPackages["no-such-package-xyz"] = true
	f.toolchain.NoReport["slow"] = 2

	results, _, err := f.harness.RunAll(context.Background(), nil)
	require.NoError(t, err)

	outcomes := map[string]domain.Outcome{}
	for _, r := range results {
		outcomes[r.Module] = r.Outcome
		assert.True(t, r.Reached(domain.StageReportWritten), r.Module)
		assert.True(t, r.Reached(domain.StageEnvTornDown), r.Module)
	}
	assert.Equal(t, map[string]domain.Outcome{
		"alpha": domain.OutcomePassed,
		"delta": domain.OutcomeFailed,
		"gamma": domain.OutcomeSetupError,
		"slow":  domain.OutcomeFailed,
	}, outcomes)
	assert.Len(t, f.toolchain.CommandsMatching("-m venv"), 4, "every module gets its own environment")
}

func TestWorkerPool_Parallel(t *testing.T) {
	modules := map[string]string{}
	var names []string
	for _, n := range []string{"m1", "m2", "m3", "m4", "m5"} {
		modules[n] = ""
		names = append(names, n)
	}
	f := newFixture(t, modules)
	f.cfg.Processors = 3
	progress := &recordingProgress{}
	f.harness.Pool().SetProgress(progress)

	results, _ := f.harness.Pool().Execute(context.Background(), append(names, "m1"))

	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, names[i], r.Module, "results keep input order")
		assert.Equal(t, domain.OutcomePassed, r.Outcome)
	}
	assert.Equal(t, 5, progress.updates)
	assert.Equal(t, [2]int{5, 0}, progress.last)
	assert.True(t, progress.finished)

	dirs := map[string]bool{}
	for _, c := range f.toolchain.CommandsMatching("-m venv") {
		dirs[c.Args[len(c.Args)-1]] = true
	}
	assert.Len(t, dirs, 5)
}

func TestWorkerPool_Empty(t *testing.T) {
	cfg := config.New()
	pool := NewWorkerPool(cfg, nil, NewRoundRobinScheduler(), zerolog.Nop())

	results, duration := pool.Execute(context.Background(), nil)
	assert.Empty(t, results)
	assert.Zero(t, duration)
}

func TestHarness_RunSingle(t *testing.T) {
	f := newFixture(t, map[string]string{"alpha": "", "beta": ""})

	result := f.harness.RunSingle(context.Background(), "beta")
	assert.Equal(t, domain.OutcomePassed, result.Outcome)

	merged, err := report.ReadFile(f.cfg.GetAggregateReportPath())
	require.NoError(t, err)
	require.Len(t, merged.Suites, 1)
	assert.Equal(t, "beta", merged.Suites[0].Name)
}

func TestHarness_RunSingle_RejectedIdentifierKeepsAggregate(t *testing.T) {
	f := newFixture(t, map[string]string{"alpha": ""})
	f.harness.RunSingle(context.Background(), "alpha")
	before, err := os.ReadFile(f.cfg.GetAggregateReportPath())
	require.NoError(t, err)

	result := f.harness.RunSingle(context.Background(), "../alpha")
	assert.Equal(t, domain.OutcomeSetupError, result.Outcome)

	after, err := os.ReadFile(f.cfg.GetAggregateReportPath())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestHarness_Modules_Filter(t *testing.T) {
	f := newFixture(t, map[string]string{"io_utils": "", "io_plugin": "", "parallelizer": ""})
	f.cfg.Flags.NameFilter = "io_*"

	modules, err := f.harness.Modules()
	require.NoError(t, err)
	assert.Equal(t, []string{"io_plugin", "io_utils"}, modules)
}

func TestHarness_RunAll_MissingUtilsRoot(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, os.RemoveAll(filepath.Join(f.cfg.ProjectPath, "utils")))

	_, _, err := f.harness.RunAll(context.Background(), nil)
	assert.Error(t, err)
}
