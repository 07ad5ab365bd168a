package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mtr/internal/cli"
	"mtr/internal/cli/commands"
	"mtr/internal/config"
)

var version = "dev"

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:           "mtr",
		Short:         "Per-module Python test runner",
		Long:          `Run each module's test suite in its own throwaway virtual environment with the module's merged requirements, and write an xUnit2 JUnit report per module.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	// Create initial config with defaults
	cfg := config.New()

	// Create flags struct (will be populated by command flags)
	var flags cli.Flags

	// Create commands with dependencies
	cmds := commands.NewCommands(cfg, log)

	// Register all commands
	cmds.Register(rootCmd, &flags, cfg)

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
