package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mtr/internal/config"
	"mtr/internal/database"
)

// DatabasesCommand handles the databases command
type DatabasesCommand struct {
	config    *config.Config
	databases *database.Manager
}

// NewDatabasesCommand creates a new DatabasesCommand
func NewDatabasesCommand(cfg *config.Config, databases *database.Manager) *DatabasesCommand {
	return &DatabasesCommand{
		config:    cfg,
		databases: databases,
	}
}

// Execute runs the command
func (dc *DatabasesCommand) Execute(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	names, err := dc.databases.EnsureDatabases(ctx, dc.config.Processors)
	if err != nil {
		return fmt.Errorf("prepare worker databases: %w", err)
	}
	for _, name := range names {
		color.Green("✓ %s", name)
	}
	return nil
}
