package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtr/internal/config"
	"mtr/internal/domain"
)

func sampleResults() []domain.ModuleResult {
	return []domain.ModuleResult{
		{Module: "alpha", Outcome: domain.OutcomePassed, Counts: domain.TestCounts{Tests: 2}},
		{
			Module:  "delta",
			Outcome: domain.OutcomeFailed,
			Counts:  domain.TestCounts{Tests: 2, Failures: 1},
			Failures: []domain.TestFailure{
				{Module: "delta", TestName: "test_broken", Kind: domain.KindFailure},
			},
		},
		{Module: "gamma", Outcome: domain.OutcomeSetupError, FailedAt: domain.StageDepsInstalled},
		{Module: "slow", Outcome: domain.OutcomeTimedOut, FailedAt: domain.StageTestsRun},
	}
}

func TestSummarize(t *testing.T) {
	out := Summarize(sampleResults(), 2*time.Second, 2)

	assert.Equal(t, 4, out.Meta.TotalModules)
	assert.Equal(t, 1, out.Meta.PassedModules)
	assert.Equal(t, 1, out.Meta.FailedModules)
	assert.Equal(t, 1, out.Meta.SetupErrors)
	assert.Equal(t, 1, out.Meta.TimedOut)
	assert.Equal(t, 1, out.Meta.FailedTestCases)
	assert.Equal(t, 2.0, out.Meta.DurationSeconds)
	assert.Len(t, out.Modules, 4)
	assert.Len(t, out.Details, 1)
}

func TestJSONStorage_SaveLoad(t *testing.T) {
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()
	st := NewJSONStorage(cfg)

	saved, err := st.Save(sampleResults(), time.Second, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, saved.Meta.TotalModules)

	loaded, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, "delta", loaded.Details[0].Module)
	assert.Equal(t, domain.StageDepsInstalled, loaded.Modules[2].FailedAt)

	loaded.Details[0].Resolved = true
	require.NoError(t, st.SaveOutput(loaded))

	again, err := st.Load()
	require.NoError(t, err)
	assert.True(t, again.Details[0].Resolved)

	assert.Equal(t, map[string]struct{}{"delta": {}, "gamma": {}, "slow": {}}, NotPassed(again))
}

func TestJSONStorage_LoadMissing(t *testing.T) {
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()

	_, err := NewJSONStorage(cfg).Load()
	assert.Error(t, err)
}
