package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mtr/internal/config"
	"mtr/internal/database"
	"mtr/internal/discovery"
	"mtr/internal/domain"
	"mtr/internal/execution"
	"mtr/internal/storage"
	"mtr/internal/ui"
)

// RunCommand handles the run command
type RunCommand struct {
	config    *config.Config
	harness   *execution.Harness
	filter    *discovery.Filter
	storage   storage.Storage
	formatter *ui.Formatter
	viewer    ui.Viewer
	databases *database.Manager
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(
	cfg *config.Config,
	harness *execution.Harness,
	filter *discovery.Filter,
	st storage.Storage,
	formatter *ui.Formatter,
	viewer ui.Viewer,
	databases *database.Manager,
) *RunCommand {
	return &RunCommand{
		config:    cfg,
		harness:   harness,
		filter:    filter,
		storage:   st,
		formatter: formatter,
		viewer:    viewer,
		databases: databases,
	}
}

// Execute runs the command. Module outcomes never make it fail: once the run
// completes the exit status is zero and the reports carry the results.
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	single := len(args) == 1 && !rc.config.Flags.All
	if len(args) == 1 && rc.config.Flags.All {
		return errors.New("a module name and --all cannot be combined")
	}

	var modules []string
	if single {
		modules = []string{args[0]}
	} else {
		var err error
		modules, err = rc.harness.Modules()
		if err != nil {
			return err
		}
	}

	if rc.config.Flags.OnlyFailed {
		last, err := rc.storage.Load()
		if err != nil {
			return fmt.Errorf("no previous run to take failed modules from: %w", err)
		}
		modules = rc.filter.FilterBySet(modules, storage.NotPassed(last))
	}

	if len(modules) == 0 {
		color.Yellow("No modules to run")
		return nil
	}

	if rc.config.Databases {
		if err := prepareDatabases(ctx, rc.databases, min(rc.config.Processors, len(modules))); err != nil {
			return err
		}
	}

	var results []domain.ModuleResult
	var duration time.Duration
	var err error
	workers := 1
	if single {
		result := rc.harness.RunSingle(ctx, modules[0])
		results, duration = []domain.ModuleResult{result}, result.Duration
	} else {
		var progress execution.Progress
		if len(modules) > 1 {
			progress = ui.NewProgressBar(len(modules))
		}
		rc.harness.Pool().SetProgress(progress)
		results, duration, err = rc.harness.RunAll(ctx, modules)
		if err != nil {
			return err
		}
		workers = min(rc.config.Processors, len(modules))
	}

	output, err := rc.storage.Save(results, duration, workers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save run results: %v\n", err)
	}

	rc.formatter.PrintRun(output)

	if rc.config.Flags.OpenFailures && len(output.Details) > 0 {
		return rc.viewer.View(output)
	}
	return nil
}
