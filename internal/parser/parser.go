package parser

import "mtr/internal/domain"

// Parser reads a module's test report and extracts totals and failures
type Parser interface {
	ParseFile(path, module string) (domain.TestCounts, []domain.TestFailure, error)
}
