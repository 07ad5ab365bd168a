package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mtr/internal/domain"
)

func TestPytestParser_ParseCounts(t *testing.T) {
	p := NewPytestParser()

	tests := []struct {
		name     string
		output   string
		expected domain.TestCounts
		ok       bool
	}{
		{
			name:     "all passed",
			output:   "collected 3 items\n\n...\n============================== 3 passed in 0.12s ===============================\n",
			expected: domain.TestCounts{Tests: 3},
			ok:       true,
		},
		{
			name:     "mixed",
			output:   "=========== 1 failed, 2 passed, 1 skipped, 1 error, 2 warnings in 1.50s ===========",
			expected: domain.TestCounts{Tests: 5, Failures: 1, Errors: 1, Skipped: 1},
			ok:       true,
		},
		{
			name:     "no tests collected",
			output:   "============================ no tests ran in 0.01s =============================",
			expected: domain.TestCounts{},
			ok:       true,
		},
		{
			name:   "no summary",
			output: "ImportError: No module named pytest",
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts, ok := p.ParseCounts(tt.output)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, counts)
		})
	}
}
