package parser

import (
	"regexp"
	"strconv"

	"mtr/internal/domain"
)

var (
	summaryLine = regexp.MustCompile(`(?m)^=+ (.*) in [\d.]+s.*=+\s*$`)
	summaryPart = regexp.MustCompile(`(\d+) (passed|failed|errors?|skipped|xfailed|xpassed|deselected|warnings?)`)
)

// PytestParser reads pytest's console output
type PytestParser struct{}

// NewPytestParser creates a new PytestParser
func NewPytestParser() *PytestParser {
	return &PytestParser{}
}

// ParseCounts extracts totals from pytest's final summary line, e.g.
// "=== 1 failed, 2 passed, 1 skipped in 0.12s ===". ok is false when the output
// holds no summary.
func (p *PytestParser) ParseCounts(output string) (counts domain.TestCounts, ok bool) {
	lines := summaryLine.FindAllStringSubmatch(output, -1)
	if len(lines) == 0 {
		return counts, false
	}
	summary := lines[len(lines)-1][1]

	for _, m := range summaryPart.FindAllStringSubmatch(summary, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		switch m[2] {
		case "passed", "xpassed":
			counts.Tests += n
		case "failed":
			counts.Tests += n
			counts.Failures += n
		case "error", "errors":
			counts.Tests += n
			counts.Errors += n
		case "skipped", "xfailed":
			counts.Tests += n
			counts.Skipped += n
		}
	}
	return counts, true
}
