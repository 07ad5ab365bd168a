package domain

import "time"

// Stage is a step of a single module run
type Stage string

const (
	StageInit          Stage = "INIT"
	StageEnvCreated    Stage = "ENV_CREATED"
	StageDepsInstalled Stage = "DEPS_INSTALLED"
	StageTestsRun      Stage = "TESTS_RUN"
	StageReportWritten Stage = "REPORT_WRITTEN"
	StageEnvTornDown   Stage = "ENV_TORN_DOWN"
)

// Outcome classifies a module run
type Outcome string

const (
	OutcomePassed     Outcome = "PASSED"
	OutcomeFailed     Outcome = "FAILED"
	OutcomeSetupError Outcome = "SETUP_ERROR"
	OutcomeTimedOut   Outcome = "TIMED_OUT"
)

// TestCounts are the totals of one report
type TestCounts struct {
	Tests    int `json:"tests"`
	Failures int `json:"failures"`
	Errors   int `json:"errors"`
	Skipped  int `json:"skipped"`
}

// Passed returns the number of tests that neither failed, errored nor were skipped
func (c TestCounts) Passed() int {
	n := c.Tests - c.Failures - c.Errors - c.Skipped
	if n < 0 {
		return 0
	}
	return n
}

// Add returns the sum of c and o
func (c TestCounts) Add(o TestCounts) TestCounts {
	return TestCounts{
		Tests:    c.Tests + o.Tests,
		Failures: c.Failures + o.Failures,
		Errors:   c.Errors + o.Errors,
		Skipped:  c.Skipped + o.Skipped,
	}
}

// ModuleResult represents the result of running one module
type ModuleResult struct {
	Module     string        // Module identifier
	Outcome    Outcome       // Classification of the run
	Stages     []Stage       // Stages reached, in order
	FailedAt   Stage         // Stage that failed for SETUP_ERROR / TIMED_OUT
	Counts     TestCounts    // Totals read from the report
	Failures   []TestFailure // Failed and errored test cases
	ReportPath string        // Report written for this module
	Detail     string        // Human readable reason for a non-PASSED outcome
	Output     string        // Combined output of the failing or test command
	Duration   time.Duration // Wall time of the whole lifecycle
}

// Reached reports whether the run went through stage s
func (r ModuleResult) Reached(s Stage) bool {
	for _, st := range r.Stages {
		if st == s {
			return true
		}
	}
	return false
}

// ModuleSummary is the persisted form of a ModuleResult
type ModuleSummary struct {
	Module          string     `json:"module"`
	Outcome         Outcome    `json:"outcome"`
	FailedAt        Stage      `json:"failed_at,omitempty"`
	Counts          TestCounts `json:"counts"`
	ReportPath      string     `json:"report_path"`
	Detail          string     `json:"detail,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
}

// TestResultsMeta contains metadata about a run
type TestResultsMeta struct {
	TotalModules    int     `json:"total_modules"`
	PassedModules   int     `json:"passed_modules"`
	FailedModules   int     `json:"failed_modules"`
	SetupErrors     int     `json:"setup_errors"`
	TimedOut        int     `json:"timed_out"`
	FailedTestCases int     `json:"failed_test_cases"`
	Duration        string  `json:"duration"`
	DurationSeconds float64 `json:"duration_seconds"`
	Workers         int     `json:"workers"`
	Timestamp       string  `json:"timestamp"`
}

// TestResultsOutput is the complete output structure for a run
type TestResultsOutput struct {
	Meta    TestResultsMeta `json:"meta"`
	Modules []ModuleSummary `json:"modules"`
	Details []TestFailure   `json:"details"`
}
