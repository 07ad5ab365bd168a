package commands

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtr/internal/database"
	"mtr/internal/domain"
	"mtr/internal/process/processtest"
)

func newWatchCommand(f *runFixture) *WatchCommand {
	return NewWatchCommand(f.cfg, f.harness, f.storage, f.formatter, database.NewManager(f.cfg, zerolog.Nop()), zerolog.Nop())
}

func TestWatchCommand_DatabasesPreparedBeforeWatching(t *testing.T) {
	f := newRunFixture(t, "alpha")
	f.cfg.Databases = true
	f.cfg.DatabasePrefix = "not-a-valid-name"

	err := newWatchCommand(f).Execute(&cobra.Command{}, nil)

	require.ErrorContains(t, err, "prepare worker databases")
}

func TestWatchCommand_RerunSavesResults(t *testing.T) {
	f := newRunFixture(t, "alpha", "delta")
	f.toolchain.Suites["delta"] = []processtest.Case{{Name: "test_broken", Failed: true}}

	newWatchCommand(f).rerun(context.Background(), []string{"delta"})

	saved, err := f.storage.Load()
	require.NoError(t, err)
	require.Len(t, saved.Modules, 1)
	assert.Equal(t, domain.OutcomeFailed, saved.Modules[0].Outcome)
	assert.Contains(t, f.out.String(), "delta")
}
