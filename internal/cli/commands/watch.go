package commands

import (
	"context"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mtr/internal/config"
	"mtr/internal/database"
	"mtr/internal/discovery"
	"mtr/internal/execution"
	"mtr/internal/storage"
	"mtr/internal/ui"
	"mtr/internal/watch"
)

// WatchCommand handles the watch command
type WatchCommand struct {
	config    *config.Config
	harness   *execution.Harness
	storage   storage.Storage
	formatter *ui.Formatter
	databases *database.Manager
	log       zerolog.Logger
}

// NewWatchCommand creates a new WatchCommand
func NewWatchCommand(
	cfg *config.Config,
	harness *execution.Harness,
	st storage.Storage,
	formatter *ui.Formatter,
	databases *database.Manager,
	log zerolog.Logger,
) *WatchCommand {
	return &WatchCommand{
		config:    cfg,
		harness:   harness,
		storage:   st,
		formatter: formatter,
		databases: databases,
		log:       log,
	}
}

// Execute runs the command until interrupted
func (wc *WatchCommand) Execute(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	modules := args
	if len(modules) == 0 {
		var err error
		modules, err = wc.harness.Modules()
		if err != nil {
			return err
		}
	} else {
		for _, m := range modules {
			if err := discovery.ValidateName(m); err != nil {
				return err
			}
		}
	}
	if len(modules) == 0 {
		color.Yellow("No modules to watch")
		return nil
	}

	if wc.config.Databases {
		if err := prepareDatabases(ctx, wc.databases, min(wc.config.Processors, len(modules))); err != nil {
			return err
		}
	}

	color.Cyan("Watching %d module(s), press Ctrl+C to stop", len(modules))
	watcher := watch.New(wc.config, wc.log)
	return watcher.Run(ctx, modules, wc.rerun)
}

func (wc *WatchCommand) rerun(ctx context.Context, modules []string) {
	color.Cyan("\nChanged: %v", modules)
	results, duration, err := wc.harness.RunAll(ctx, modules)
	if err != nil {
		wc.log.Error().Err(err).Msg("re-run failed")
		return
	}
	output, err := wc.storage.Save(results, duration, min(wc.config.Processors, len(modules)))
	if err != nil {
		wc.log.Warn().Err(err).Msg("could not save run results")
	}
	wc.formatter.PrintRun(output)
}
