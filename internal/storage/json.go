package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mtr/internal/domain"
)

// Summarize builds the persisted form of a run
func Summarize(results []domain.ModuleResult, duration time.Duration, workers int) *domain.TestResultsOutput {
	output := &domain.TestResultsOutput{
		Meta: domain.TestResultsMeta{
			TotalModules:    len(results),
			Duration:        duration.String(),
			DurationSeconds: duration.Seconds(),
			Workers:         workers,
			Timestamp:       time.Now().Format(time.RFC3339),
		},
		Modules: make([]domain.ModuleSummary, 0, len(results)),
		Details: []domain.TestFailure{},
	}

	for _, r := range results {
		switch r.Outcome {
		case domain.OutcomePassed:
			output.Meta.PassedModules++
		case domain.OutcomeFailed:
			output.Meta.FailedModules++
		case domain.OutcomeSetupError:
			output.Meta.SetupErrors++
		case domain.OutcomeTimedOut:
			output.Meta.TimedOut++
		}
		output.Meta.FailedTestCases += len(r.Failures)
		output.Modules = append(output.Modules, domain.ModuleSummary{
			Module:          r.Module,
			Outcome:         r.Outcome,
			FailedAt:        r.FailedAt,
			Counts:          r.Counts,
			ReportPath:      r.ReportPath,
			Detail:          r.Detail,
			DurationSeconds: r.Duration.Seconds(),
		})
		output.Details = append(output.Details, r.Failures...)
	}
	return output
}

// Save writes the run summary to the configured JSON output file.
func (s *JSONStorage) Save(results []domain.ModuleResult, duration time.Duration, workers int) (*domain.TestResultsOutput, error) {
	output := Summarize(results, duration, workers)
	return output, s.SaveOutput(output)
}

// Load reads the last run summary from the configured JSON output file.
func (s *JSONStorage) Load() (*domain.TestResultsOutput, error) {
	path := s.cfg.GetOutputPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results file: %w", err)
	}
	var output domain.TestResultsOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return &output, nil
}

// SaveOutput writes the full output to the configured JSON file.
func (s *JSONStorage) SaveOutput(output *domain.TestResultsOutput) error {
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	path := s.cfg.GetOutputPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

// NotPassed returns the modules of a stored run whose outcome was not PASSED
func NotPassed(output *domain.TestResultsOutput) map[string]struct{} {
	modules := make(map[string]struct{})
	for _, m := range output.Modules {
		if m.Outcome != domain.OutcomePassed {
			modules[m.Module] = struct{}{}
		}
	}
	return modules
}
