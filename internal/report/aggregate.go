package report

import (
	"fmt"
	"time"

	"mtr/internal/domain"
)

// ReportName is the name of the merged document
const ReportName = "mtr"

// Synthesize builds the report of a module run that produced none of its own:
// a single errored test case carrying the outcome and detail.
func Synthesize(result domain.ModuleResult) *TestSuites {
	name := "setup"
	if result.Outcome == domain.OutcomeTimedOut {
		name = "timeout"
	} else if result.Outcome == domain.OutcomeFailed {
		name = "session"
	}

	message := result.Detail
	if message == "" {
		message = string(result.Outcome)
	}

	suite := TestSuite{
		Name:      result.Module,
		Tests:     1,
		Errors:    1,
		Time:      result.Duration.Seconds(),
		Timestamp: time.Now().Format(time.RFC3339),
		Properties: []Property{
			{Name: "outcome", Value: string(result.Outcome)},
			{Name: "stage", Value: string(result.FailedAt)},
		},
		TestCases: []TestCase{{
			Name:      name,
			ClassName: fmt.Sprintf("%s.%s", ReportName, result.Module),
			Time:      result.Duration.Seconds(),
			Error: &Problem{
				Message: message,
				Type:    string(result.Outcome),
				Content: result.Output,
			},
		}},
	}

	doc := &TestSuites{Name: result.Module, Suites: []TestSuite{suite}}
	doc.Recount()
	return doc
}

// Entry is one module's report
type Entry struct {
	Module string
	Doc    *TestSuites
}

// Merge combines module reports into one document. pytest names every suite
// "pytest", so suites are renamed after their module.
func Merge(entries []Entry) *TestSuites {
	merged := &TestSuites{
		Name:      ReportName,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	for _, e := range entries {
		if e.Doc == nil {
			continue
		}
		for _, suite := range e.Doc.Suites {
			if suite.Name == "" || suite.Name == "pytest" {
				suite.Name = e.Module
			}
			merged.Suites = append(merged.Suites, suite)
		}
	}
	merged.Recount()
	return merged
}

// MergeFiles reads every module report and writes the merged document to out.
// Reports that cannot be read are skipped and returned as errors alongside.
func MergeFiles(paths map[string]string, order []string, out string) ([]error, error) {
	var entries []Entry
	var skipped []error
	for _, module := range order {
		path, ok := paths[module]
		if !ok || path == "" {
			continue
		}
		doc, err := ReadFile(path)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("%s: %w", module, err))
			continue
		}
		entries = append(entries, Entry{Module: module, Doc: doc})
	}
	return skipped, Write(out, Merge(entries))
}
