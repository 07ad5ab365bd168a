package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"mtr/internal/config"
	"mtr/internal/discovery"
	"mtr/internal/domain"
)

// Formatter formats and displays output
type Formatter struct {
	config *config.Config
	out    io.Writer
}

// NewFormatter creates a new Formatter writing to stdout
func NewFormatter(cfg *config.Config) *Formatter {
	return &Formatter{config: cfg, out: os.Stdout}
}

// SetOutput redirects the formatter
func (f *Formatter) SetOutput(w io.Writer) {
	f.out = w
}

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

// OutcomeString colors an outcome for terminals
func OutcomeString(o domain.Outcome) string {
	switch o {
	case domain.OutcomePassed:
		return green.Sprint(o)
	case domain.OutcomeFailed:
		return red.Sprint(o)
	default:
		return yellow.Sprint(o)
	}
}

// PrintRun prints the per-module table, totals and the failure tree of a run
func (f *Formatter) PrintRun(output *domain.TestResultsOutput) {
	meta := output.Meta

	fmt.Fprintln(f.out)
	cyan.Fprintln(f.out, "Module Test Results")

	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Module", "Outcome", "Tests", "Passed", "Failed", "Errors", "Skipped", "Duration", "Report"})
	var totals domain.TestCounts
	for _, m := range output.Modules {
		totals = totals.Add(m.Counts)
		t.AppendRow(table.Row{
			m.Module,
			OutcomeString(m.Outcome),
			m.Counts.Tests,
			m.Counts.Passed(),
			m.Counts.Failures,
			m.Counts.Errors,
			m.Counts.Skipped,
			fmt.Sprintf("%.2fs", m.DurationSeconds),
			f.relative(m.ReportPath),
		})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d modules", meta.TotalModules), "",
		totals.Tests, totals.Passed(), totals.Failures, totals.Errors, totals.Skipped,
		fmt.Sprintf("%.2fs", meta.DurationSeconds), "",
	})
	t.Render()

	fmt.Fprintln(f.out)
	for _, m := range output.Modules {
		if m.Outcome == domain.OutcomeSetupError || m.Outcome == domain.OutcomeTimedOut {
			yellow.Fprintf(f.out, "! %s %s: %s\n", m.Module, m.Outcome, m.Detail)
		}
	}

	notPassed := meta.TotalModules - meta.PassedModules
	if notPassed == 0 {
		green.Fprintln(f.out, "✓ All modules passed!")
		return
	}
	red.Fprintf(f.out, "✗ %d module(s) did not pass: %d failed, %d setup error(s), %d timed out\n",
		notPassed, meta.FailedModules, meta.SetupErrors, meta.TimedOut)
	if len(output.Details) > 0 {
		fmt.Fprintln(f.out)
		f.printFailedTestsTree(output.Details)
	}
}

// TreeNode represents a node in the failure tree: module, then file, then cases
type TreeNode struct {
	Name     string
	Children map[string]*TreeNode
	Failures []domain.TestFailure
}

// printFailedTestsTree prints failures grouped by module and test file
func (f *Formatter) printFailedTestsTree(failures []domain.TestFailure) {
	root := &TreeNode{Children: make(map[string]*TreeNode)}
	for _, failure := range failures {
		module := child(root, failure.Module)
		file := child(module, failure.FilePath)
		file.Failures = append(file.Failures, failure)
	}

	for i, moduleName := range sortedKeys(root) {
		module := root.Children[moduleName]
		lastModule := i == len(root.Children)-1
		cyan.Fprintf(f.out, "%s%s\n", branch(lastModule), moduleName)

		pad := indent(lastModule)
		for j, fileName := range sortedKeys(module) {
			file := module.Children[fileName]
			lastFile := j == len(module.Children)-1
			yellow.Fprintf(f.out, "%s%s%s\n", pad, branch(lastFile), fileName)

			casePad := pad + indent(lastFile)
			for k, failure := range file.Failures {
				marker := ""
				if failure.Kind == domain.KindError {
					marker = " (error)"
				}
				red.Fprintf(f.out, "%s%s%s%s\n", casePad, branch(k == len(file.Failures)-1), failure.TestName, marker)
			}
		}
	}
}

func child(n *TreeNode, name string) *TreeNode {
	if name == "" {
		name = "(unknown)"
	}
	c, ok := n.Children[name]
	if !ok {
		c = &TreeNode{Name: name, Children: make(map[string]*TreeNode)}
		n.Children[name] = c
	}
	return c
}

func sortedKeys(n *TreeNode) []string {
	keys := make([]string, 0, len(n.Children))
	for k := range n.Children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func branch(last bool) string {
	if last {
		return "└── "
	}
	return "├── "
}

func indent(last bool) string {
	if last {
		return "    "
	}
	return "│   "
}

// PrintModuleList prints discovered modules, optionally with their requirements.
// Modules in failed (from the last run) are marked with [F].
func (f *Formatter) PrintModuleList(modules []domain.Module, showRequirements bool, failed map[string]struct{}) {
	green.Fprintf(f.out, "Found %d module(s):\n\n", len(modules))

	for i, m := range modules {
		last := i == len(modules)-1
		failMarker := ""
		if _, ok := failed[m.Name]; ok {
			failMarker = " " + red.Sprint("[F]")
		}
		cyan.Fprintf(f.out, "%s%s", branch(last), m.Name)
		fmt.Fprintf(f.out, "%s %s\n", failMarker,
			color.HiBlackString("(%d test, %d module requirement(s))", len(m.TestRequirements), len(m.UtilsRequirements)))

		if !showRequirements {
			continue
		}
		reqs := discovery.MergeRequirements(m.TestRequirements, m.UtilsRequirements)
		pad := indent(last)
		if len(reqs) == 0 {
			fmt.Fprintf(f.out, "%s└── %s\n", pad, color.HiBlackString("(no requirements)"))
			continue
		}
		for j, r := range reqs {
			fmt.Fprintf(f.out, "%s%s%s\n", pad, branch(j == len(reqs)-1), yellow.Sprint(r))
		}
	}
}

func (f *Formatter) relative(path string) string {
	if path == "" {
		return "-"
	}
	base, err := filepath.Abs(f.config.ProjectPath)
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(base, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
