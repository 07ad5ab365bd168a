package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mtr/internal/cli"
	"mtr/internal/config"
	"mtr/internal/database"
	"mtr/internal/discovery"
	"mtr/internal/environment"
	"mtr/internal/execution"
	"mtr/internal/parser"
	"mtr/internal/process"
	"mtr/internal/storage"
	"mtr/internal/ui"
)

// Commands holds all CLI commands
type Commands struct {
	Run       *RunCommand
	List      *ListCommand
	Failures  *FailuresCommand
	Databases *DatabasesCommand
	Watch     *WatchCommand
}

// NewCommands creates all commands with dependencies. cfg is filled in by
// each command's PreRunE once flags are parsed.
func NewCommands(cfg *config.Config, log zerolog.Logger) *Commands {
	requirements := discovery.NewRequirements()
	scanner := discovery.NewScanner(cfg, requirements)
	filter := discovery.NewFilter()
	executor := process.NewExecExecutor(log)
	envs := environment.NewManager(cfg, executor, log)
	runner := execution.NewRunner(cfg, scanner, envs, executor, parser.NewJUnitParser(), parser.NewPytestParser(), log)
	pool := execution.NewWorkerPool(cfg, runner, execution.NewRoundRobinScheduler(), log)
	harness := execution.NewHarness(cfg, scanner, filter, runner, pool, log)
	jsonStorage := storage.NewJSONStorage(cfg)
	formatter := ui.NewFormatter(cfg)
	errorViewer := ui.NewErrorViewer(jsonStorage)
	databases := database.NewManager(cfg, log)

	return &Commands{
		Run:       NewRunCommand(cfg, harness, filter, jsonStorage, formatter, errorViewer, databases),
		List:      NewListCommand(cfg, harness, scanner, formatter, jsonStorage, log),
		Failures:  NewFailuresCommand(jsonStorage, errorViewer),
		Databases: NewDatabasesCommand(cfg, databases),
		Watch:     NewWatchCommand(cfg, harness, jsonStorage, formatter, databases, log),
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags, cfg *config.Config) {
	loadConfig := func(cmd *cobra.Command, args []string) error {
		if flags.Verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		loaded, err := config.Load(flags.Project, flags.ToConfigFlags())
		if err != nil {
			return err
		}
		*cfg = *loaded
		return nil
	}

	rootCmd.PersistentFlags().StringVar(&flags.Project, "project", config.DefaultProjectPath, "Project root containing the tests and utils directories")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Log every command and stage transition")

	// Run command
	runCmd := &cobra.Command{
		Use:   "run [module]",
		Short: "Run module test suites in isolated environments",
		Long: "Create a fresh virtual environment per module, install the merged test and utils requirements, " +
			"run pytest and write an xUnit2 JUnit report. Without a module every directory under utils/ is run.",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: loadConfig,
		RunE:    c.Run.Execute,
	}
	runCmd.Flags().IntVarP(&flags.Processors, "processors", "p", 0, "Number of modules to run in parallel (default 1)")
	runCmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "Per-module time limit (default 30m)")
	runCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter modules by name pattern (supports wildcards, e.g., 'net*')")
	runCmd.Flags().BoolVar(&flags.All, "all", false, "Run every module under utils/")
	runCmd.Flags().BoolVar(&flags.OnlyFailed, "failed", false, "Run only modules that did not pass in the last run")
	runCmd.Flags().BoolVar(&flags.KeepEnv, "keep-env", false, "Keep virtual environments after the run")
	runCmd.Flags().BoolVar(&flags.StrictRequirements, "strict-requirements", false, "Treat a missing requirements file as a setup error")
	runCmd.Flags().StringVar(&flags.Python, "python", "", "Interpreter used to create environments (default python3)")
	runCmd.Flags().BoolVar(&flags.Databases, "databases", false, "Give every worker its own MySQL database")
	runCmd.Flags().BoolVar(&flags.OpenFailures, "open-failures", false, "Open the failures viewer when the run has failures")
	rootCmd.AddCommand(runCmd)

	// List command
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List discovered modules",
		Long:    "Scan the utils directory and list every module without running it",
		Args:    cobra.NoArgs,
		PreRunE: loadConfig,
		RunE:    c.List.Execute,
	}
	listCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter modules by name pattern")
	listCmd.Flags().BoolVarP(&flags.Requirements, "requirements", "r", false, "Show the merged requirements of each module")
	rootCmd.AddCommand(listCmd)

	// Failures command
	failuresCmd := &cobra.Command{
		Use:     "failures",
		Short:   "View test failures interactively",
		Long:    "Display test failures from the last run in an interactive viewer",
		Args:    cobra.NoArgs,
		PreRunE: loadConfig,
		RunE:    c.Failures.Execute,
	}
	rootCmd.AddCommand(failuresCmd)

	// Databases command
	databasesCmd := &cobra.Command{
		Use:     "databases",
		Short:   "Create the per-worker test databases",
		Long:    "Create one MySQL database per worker using DB_HOST, DB_PORT, DB_USERNAME and DB_PASSWORD",
		Args:    cobra.NoArgs,
		PreRunE: loadConfig,
		RunE:    c.Databases.Execute,
	}
	databasesCmd.Flags().IntVarP(&flags.Processors, "processors", "p", 0, "Number of workers to create databases for")
	rootCmd.AddCommand(databasesCmd)

	// Watch command
	watchCmd := &cobra.Command{
		Use:     "watch [module...]",
		Short:   "Re-run modules when their files change",
		Long:    "Watch utils/<module> and tests/<module> and re-run the modules whose files changed",
		PreRunE: loadConfig,
		RunE:    c.Watch.Execute,
	}
	watchCmd.Flags().IntVarP(&flags.Processors, "processors", "p", 0, "Number of modules to run in parallel")
	watchCmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "Per-module time limit")
	watchCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter modules by name pattern")
	rootCmd.AddCommand(watchCmd)
}

// prepareDatabases creates one database per worker. The runner points each
// worker's tests at its own database.
func prepareDatabases(ctx context.Context, databases *database.Manager, workers int) error {
	names, err := databases.EnsureDatabases(ctx, workers)
	if err != nil {
		return fmt.Errorf("prepare worker databases: %w", err)
	}
	color.Green("✓ Databases ready: %v", names)
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM so running environments are
// still torn down.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
