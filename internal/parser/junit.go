package parser

import (
	"path/filepath"
	"strings"

	"mtr/internal/domain"
	"mtr/internal/report"
)

// JUnitParser parses xUnit2 JUnit reports written by pytest
type JUnitParser struct{}

// NewJUnitParser creates a new JUnitParser
func NewJUnitParser() *JUnitParser {
	return &JUnitParser{}
}

// ParseFile reads the report at path
func (p *JUnitParser) ParseFile(path, module string) (domain.TestCounts, []domain.TestFailure, error) {
	doc, err := report.ReadFile(path)
	if err != nil {
		return domain.TestCounts{}, nil, err
	}
	counts, failures := p.Parse(doc, module)
	return counts, failures, nil
}

// Parse extracts totals and failed or errored cases from a decoded report
func (p *JUnitParser) Parse(doc *report.TestSuites, module string) (domain.TestCounts, []domain.TestFailure) {
	doc.Recount()
	counts := domain.TestCounts{
		Tests:    doc.Tests,
		Failures: doc.Failures,
		Errors:   doc.Errors,
		Skipped:  doc.Skipped,
	}

	var failures []domain.TestFailure
	for _, suite := range doc.Suites {
		for _, tc := range suite.TestCases {
			var problem *report.Problem
			var kind domain.FailureKind
			switch {
			case tc.Failure != nil:
				problem, kind = tc.Failure, domain.KindFailure
			case tc.Error != nil:
				problem, kind = tc.Error, domain.KindError
			default:
				continue
			}

			filePath := tc.File
			if filePath == "" {
				filePath = classFile(tc.ClassName)
			}
			failures = append(failures, domain.TestFailure{
				Module:    module,
				TestName:  tc.Name,
				ClassName: tc.ClassName,
				FilePath:  filePath,
				Line:      tc.Line,
				Kind:      kind,
				Type:      problem.Type,
				Message:   firstLine(problem.Message),
				Details:   strings.TrimSpace(problem.Content),
			})
		}
	}
	return counts, failures
}

// classFile maps a pytest classname to the test file it came from:
// "tests.alpha.test_io.TestReader" -> "tests/alpha/test_io.py".
func classFile(className string) string {
	if className == "" {
		return ""
	}
	parts := strings.Split(className, ".")
	// Drop a trailing class name (capitalised by convention)
	if n := len(parts); n > 1 {
		last := parts[n-1]
		if last != "" && strings.ToUpper(last[:1]) == last[:1] && !strings.HasPrefix(last, "test") {
			parts = parts[:n-1]
		}
	}
	return filepath.ToSlash(filepath.Join(parts...)) + ".py"
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
