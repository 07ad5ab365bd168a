package execution

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"mtr/internal/config"
	"mtr/internal/discovery"
	"mtr/internal/domain"
	"mtr/internal/environment"
	"mtr/internal/parser"
	"mtr/internal/process"
	"mtr/internal/report"
)

// pytest exits with 5 when it collected no tests
const exitNoTestsCollected = 5

// Runner runs one module: environment, dependencies, tests, report, teardown
type Runner struct {
	config   *config.Config
	scanner  *discovery.Scanner
	envs     *environment.Manager
	executor process.Executor
	junit    parser.Parser
	pytest   *parser.PytestParser
	log      zerolog.Logger
}

// NewRunner creates a new Runner
func NewRunner(
	cfg *config.Config,
	scanner *discovery.Scanner,
	envs *environment.Manager,
	executor process.Executor,
	junit parser.Parser,
	pytest *parser.PytestParser,
	log zerolog.Logger,
) *Runner {
	return &Runner{
		config:   cfg,
		scanner:  scanner,
		envs:     envs,
		executor: executor,
		junit:    junit,
		pytest:   pytest,
		log:      log,
	}
}

// Run takes module through INIT, ENV_CREATED, DEPS_INSTALLED, TESTS_RUN,
// REPORT_WRITTEN and ENV_TORN_DOWN. It never fails because tests failed: the
// outcome, counts and report path are in the result. Setup problems end the
// run early with SETUP_ERROR and a deadline with TIMED_OUT; both still get a
// report and a teardown.
func (r *Runner) Run(ctx context.Context, module string, workerID int) domain.ModuleResult {
	start := time.Now()
	result := domain.ModuleResult{
		Module:     module,
		ReportPath: r.config.GetReportPath(module),
		Stages:     []domain.Stage{domain.StageInit},
	}
	log := r.log.With().Str("module", module).Int("worker", workerID).Logger()
	log.Debug().Msg("module run started")

	// No report path can be derived from an identifier that escapes the report dir
	if err := discovery.ValidateName(module); err != nil {
		r.setupFailed(&result, domain.StageEnvCreated, err, "")
		result.ReportPath = ""
		result.Duration = time.Since(start)
		log.Warn().Err(err).Msg("module rejected")
		return result
	}

	runCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	// A report left by an earlier run must not be mistaken for this one
	if err := os.Remove(result.ReportPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not remove previous report")
	}

	env, produced := r.lifecycle(runCtx, &result, workerID, log)
	r.finish(&result, env, produced, start, log)
	return result
}

// lifecycle runs the stages up to TESTS_RUN. It returns the environment (possibly
// zero) and whether pytest produced the module's report.
func (r *Runner) lifecycle(ctx context.Context, result *domain.ModuleResult, workerID int, log zerolog.Logger) (domain.Environment, bool) {
	mod, err := r.scanner.Resolve(result.Module)
	if err != nil {
		r.setupFailed(result, domain.StageEnvCreated, err, "")
		return domain.Environment{}, false
	}

	env, err := r.envs.Create(ctx, mod.Name)
	if err != nil {
		r.setupFailed(result, domain.StageEnvCreated, err, "")
		return env, false
	}
	result.Stages = append(result.Stages, domain.StageEnvCreated)

	if r.config.Databases {
		env.Vars["DB_DATABASE"] = r.config.GetDatabaseName(workerID)
	}

	if err := r.envs.Install(ctx, env, mod.RequirementFiles); err != nil {
		r.setupFailed(result, domain.StageDepsInstalled, err, "")
		return env, false
	}
	result.Stages = append(result.Stages, domain.StageDepsInstalled)
	log.Debug().Int("files", len(mod.RequirementFiles)).Msg("dependencies installed")

	args := []string{
		"-m", "pytest", mod.TestsPath,
		"--junitxml=" + result.ReportPath,
		"-o", "junit_family=xunit2",
	}
	args = append(args, r.config.PytestArgs...)
	cmd := process.Command{
		Name: env.Python,
		Args: args,
		Dir:  r.config.ProjectPath,
		Env:  env.Environ(os.Environ()),
	}

	res, err := r.executor.Run(ctx, cmd)
	if err != nil {
		r.setupFailed(result, domain.StageTestsRun, err, res.Output)
		return env, false
	}
	result.Stages = append(result.Stages, domain.StageTestsRun)
	result.Output = res.Output

	counts, failures, parseErr := r.junit.ParseFile(result.ReportPath, result.Module)
	if parseErr != nil {
		// pytest crashed or was misused before it could write a report
		result.Outcome = domain.OutcomeFailed
		result.FailedAt = domain.StageTestsRun
		result.Detail = fmt.Sprintf("pytest exited with %d without a usable report: %v", res.ExitCode, parseErr)
		if c, ok := r.pytest.ParseCounts(res.Output); ok {
			result.Counts = c
		}
		return env, false
	}

	result.Counts = counts
	result.Failures = failures
	switch {
	case counts.Failures+counts.Errors > 0:
		result.Outcome = domain.OutcomeFailed
		result.Detail = fmt.Sprintf("%d failed, %d errors", counts.Failures, counts.Errors)
	case res.ExitCode != 0 && res.ExitCode != exitNoTestsCollected:
		result.Outcome = domain.OutcomeFailed
		result.FailedAt = domain.StageTestsRun
		result.Detail = fmt.Sprintf("pytest exited with %d", res.ExitCode)
	default:
		result.Outcome = domain.OutcomePassed
	}
	return env, true
}

// finish writes a report when pytest did not, then tears the environment down.
// Both happen whatever the outcome.
func (r *Runner) finish(result *domain.ModuleResult, env domain.Environment, produced bool, start time.Time, log zerolog.Logger) {
	result.Duration = time.Since(start)

	if !produced {
		if err := report.Write(result.ReportPath, report.Synthesize(*result)); err != nil {
			log.Error().Err(err).Msg("could not write report")
			result.ReportPath = ""
		}
	}
	if result.ReportPath != "" {
		result.Stages = append(result.Stages, domain.StageReportWritten)
	}

	if err := r.envs.Teardown(env); err != nil {
		log.Warn().Err(err).Msg("environment teardown failed")
	}
	result.Stages = append(result.Stages, domain.StageEnvTornDown)
	result.Duration = time.Since(start)

	log.Info().
		Str("outcome", string(result.Outcome)).
		Int("tests", result.Counts.Tests).
		Int("failures", result.Counts.Failures+result.Counts.Errors).
		Dur("duration", result.Duration).
		Msg("module run finished")
}

// setupFailed records a run that stopped before its tests could report. A
// deadline anywhere is TIMED_OUT; anything else is SETUP_ERROR.
func (r *Runner) setupFailed(result *domain.ModuleResult, stage domain.Stage, err error, output string) {
	var setupErr *environment.SetupError
	if errors.As(err, &setupErr) {
		stage = setupErr.Stage
		output = setupErr.Output
	}

	result.FailedAt = stage
	result.Output = output
	if errors.Is(err, context.DeadlineExceeded) {
		result.Outcome = domain.OutcomeTimedOut
		result.Detail = fmt.Sprintf("timed out after %s during %s", r.config.Timeout, stage)
		return
	}
	result.Outcome = domain.OutcomeSetupError
	result.Detail = err.Error()
}
