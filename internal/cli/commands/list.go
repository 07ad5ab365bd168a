package commands

import (
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mtr/internal/config"
	"mtr/internal/discovery"
	"mtr/internal/domain"
	"mtr/internal/execution"
	"mtr/internal/storage"
	"mtr/internal/ui"
)

// ListCommand handles the list command
type ListCommand struct {
	config    *config.Config
	harness   *execution.Harness
	scanner   *discovery.Scanner
	formatter *ui.Formatter
	storage   storage.Storage
	log       zerolog.Logger
}

// NewListCommand creates a new ListCommand
func NewListCommand(
	cfg *config.Config,
	harness *execution.Harness,
	scanner *discovery.Scanner,
	formatter *ui.Formatter,
	st storage.Storage,
	log zerolog.Logger,
) *ListCommand {
	return &ListCommand{
		config:    cfg,
		harness:   harness,
		scanner:   scanner,
		formatter: formatter,
		storage:   st,
		log:       log,
	}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	names, err := lc.harness.Modules()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		color.Yellow("No modules found")
		return nil
	}

	modules := make([]domain.Module, 0, len(names))
	for _, name := range names {
		module, err := lc.scanner.Resolve(name)
		if err != nil {
			// Still listed; running it will report the setup error
			lc.log.Debug().Err(err).Str("module", name).Msg("module not runnable")
			module = domain.Module{Name: name}
		}
		modules = append(modules, module)
	}

	// Mark modules that did not pass last time, if there was a last time
	var failed map[string]struct{}
	if last, err := lc.storage.Load(); err == nil {
		failed = storage.NotPassed(last)
	}

	lc.formatter.PrintModuleList(modules, lc.config.Flags.Requirements, failed)
	return nil
}
