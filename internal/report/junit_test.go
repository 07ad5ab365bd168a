package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtr/internal/domain"
)

const pytestReport = `<?xml version="1.0" encoding="utf-8"?>
<testsuites>
  <testsuite name="pytest" errors="0" failures="1" skipped="1" tests="3" time="0.42" timestamp="2026-10-17T10:00:00.000000" hostname="ci">
    <testcase classname="tests.delta.test_delta" name="test_ok" time="0.001" />
    <testcase classname="tests.delta.test_delta" name="test_broken" time="0.002">
      <failure message="assert 1 == 2">def test_broken():
&gt;       assert 1 == 2
E       assert 1 == 2</failure>
    </testcase>
    <testcase classname="tests.delta.test_delta" name="test_later" time="0.000">
      <skipped type="pytest.skip" message="not yet" />
    </testcase>
  </testsuite>
</testsuites>`

func TestDecode(t *testing.T) {
	t.Run("testsuites root", func(t *testing.T) {
		doc, err := Decode(strings.NewReader(pytestReport))
		require.NoError(t, err)
		require.Len(t, doc.Suites, 1)

		suite := doc.Suites[0]
		assert.Equal(t, 3, suite.Tests)
		assert.Equal(t, 1, suite.Failures)
		require.Len(t, suite.TestCases, 3)
		require.NotNil(t, suite.TestCases[1].Failure)
		assert.Equal(t, "assert 1 == 2", suite.TestCases[1].Failure.Message)
		assert.Contains(t, suite.TestCases[1].Failure.Content, ">       assert 1 == 2")
		assert.NotNil(t, suite.TestCases[2].Skipped)
	})

	t.Run("bare testsuite root is wrapped and counted", func(t *testing.T) {
		bare := `<testsuite name="pytest"><testcase classname="a" name="t1"/><testcase classname="a" name="t2"><error message="boom"/></testcase></testsuite>`
		doc, err := Decode(strings.NewReader(bare))
		require.NoError(t, err)

		assert.Equal(t, 2, doc.Tests)
		assert.Equal(t, 1, doc.Errors)
	})

	t.Run("other xml is rejected", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`<project/>`))
		assert.True(t, errors.Is(err, ErrNotJUnit))
	})

	t.Run("empty input is rejected", func(t *testing.T) {
		_, err := Decode(strings.NewReader(""))
		assert.Error(t, err)
	})
}

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "alpha", "unit.xml")
	doc, err := Decode(strings.NewReader(pytestReport))
	require.NoError(t, err)

	require.NoError(t, Write(path, doc))
	// Overwrite in place
	require.NoError(t, Write(path, doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<?xml"))

	back, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, back.Suites[0].Tests)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestSynthesize(t *testing.T) {
	result := domain.ModuleResult{
		Module:   "gamma",
		Outcome:  domain.OutcomeSetupError,
		FailedAt: domain.StageDepsInstalled,
		Detail:   "install requirements: command failed",
		Output:   "ERROR: No matching distribution found for no-such-package",
		Duration: time.Second,
	}

	doc := Synthesize(result)

	assert.Equal(t, 1, doc.Tests)
	assert.Equal(t, 1, doc.Errors)
	assert.Equal(t, 0, doc.Failures)
	tc := doc.Suites[0].TestCases[0]
	assert.Equal(t, "setup", tc.Name)
	require.NotNil(t, tc.Error)
	assert.Equal(t, string(domain.OutcomeSetupError), tc.Error.Type)
	assert.Contains(t, tc.Error.Content, "No matching distribution")

	result.Outcome = domain.OutcomeTimedOut
	assert.Equal(t, "timeout", Synthesize(result).Suites[0].TestCases[0].Name)
}

func TestMerge(t *testing.T) {
	delta, err := Decode(strings.NewReader(pytestReport))
	require.NoError(t, err)
	gamma := Synthesize(domain.ModuleResult{Module: "gamma", Outcome: domain.OutcomeSetupError})

	merged := Merge([]Entry{
		{Module: "delta", Doc: delta},
		{Module: "gamma", Doc: gamma},
		{Module: "none"},
	})

	require.Len(t, merged.Suites, 2)
	assert.Equal(t, "delta", merged.Suites[0].Name)
	assert.Equal(t, "gamma", merged.Suites[1].Name)
	assert.Equal(t, 4, merged.Tests)
	assert.Equal(t, 1, merged.Failures)
	assert.Equal(t, 1, merged.Errors)
	assert.Equal(t, 1, merged.Skipped)
}

func TestMergeFiles(t *testing.T) {
	dir := t.TempDir()
	alpha := filepath.Join(dir, "alpha", "unit.xml")
	require.NoError(t, os.MkdirAll(filepath.Dir(alpha), 0755))
	require.NoError(t, os.WriteFile(alpha, []byte(pytestReport), 0644))
	broken := filepath.Join(dir, "broken.xml")
	require.NoError(t, os.WriteFile(broken, []byte("not xml"), 0644))

	out := filepath.Join(dir, "unit.xml")
	skipped, err := MergeFiles(
		map[string]string{"alpha": alpha, "broken": broken},
		[]string{"alpha", "broken", "missing"},
		out,
	)
	require.NoError(t, err)
	assert.Len(t, skipped, 1)

	merged, err := ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.Tests)
	assert.Equal(t, "alpha", merged.Suites[0].Name)
}
