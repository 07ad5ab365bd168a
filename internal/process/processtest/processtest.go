// Package processtest provides a scripted stand-in for the python toolchain so
// runs can be tested without python installed.
package processtest

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"mtr/internal/process"
)

// Case is one scripted test case
type Case struct {
	Name    string
	Failed  bool
	Errored bool
	Skipped bool
}

// Toolchain fakes `python -m venv`, `python -m pip` and `python -m pytest`
type Toolchain struct {
	// UnknownPackages make `pip install` fail when requested
	UnknownPackages map[string]bool
	// Suites holds the cases pytest reports, keyed by module name
	Suites map[string][]Case
	// Hang makes pytest block until the context is done, keyed by module name
	Hang map[string]bool
	// NoReport makes pytest exit with the given code without writing a report
	NoReport map[string]int
	// FailVenv makes environment creation fail
	FailVenv bool

	mu       sync.Mutex
	commands []process.Command
}

// NewToolchain creates an empty Toolchain
func NewToolchain() *Toolchain {
	return &Toolchain{
		UnknownPackages: map[string]bool{},
		Suites:          map[string][]Case{},
		Hang:            map[string]bool{},
		NoReport:        map[string]int{},
	}
}

// Commands returns every command run so far
func (t *Toolchain) Commands() []process.Command {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]process.Command, len(t.commands))
	copy(out, t.commands)
	return out
}

// CommandsMatching returns the commands whose arguments contain sub
func (t *Toolchain) CommandsMatching(sub string) []process.Command {
	var out []process.Command
	for _, c := range t.Commands() {
		if strings.Contains(c.String(), sub) {
			out = append(out, c)
		}
	}
	return out
}

// Run implements process.Executor
func (t *Toolchain) Run(ctx context.Context, cmd process.Command) (process.Result, error) {
	t.mu.Lock()
	t.commands = append(t.commands, cmd)
	t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return process.Result{ExitCode: -1}, fmt.Errorf("%s: %w", cmd.Name, err)
	}

	switch module(cmd.Args) {
	case "venv":
		return t.venv(cmd)
	case "pip":
		return t.pip(cmd)
	case "pytest":
		return t.pytest(ctx, cmd)
	}
	return process.Result{ExitCode: 127, Output: "unknown command " + cmd.String()}, nil
}

func (t *Toolchain) venv(cmd process.Command) (process.Result, error) {
	if t.FailVenv {
		return process.Result{ExitCode: 1, Output: "Error: venv unavailable"}, nil
	}
	dir := cmd.Args[len(cmd.Args)-1]
	if err := os.MkdirAll(filepath.Join(dir, "bin"), 0755); err != nil {
		return process.Result{ExitCode: 1, Output: err.Error()}, nil
	}
	_ = os.WriteFile(filepath.Join(dir, "bin", "python"), []byte("#!/bin/sh\n"), 0755)
	return process.Result{}, nil
}

func (t *Toolchain) pip(cmd process.Command) (process.Result, error) {
	var packages []string
	for i := 0; i < len(cmd.Args); i++ {
		arg := cmd.Args[i]
		if arg == "-r" && i+1 < len(cmd.Args) {
			i++
			names, err := requirementNames(cmd.Args[i])
			if err != nil {
				return process.Result{ExitCode: 1, Output: "ERROR: " + err.Error()}, nil
			}
			packages = append(packages, names...)
			continue
		}
		if strings.HasPrefix(arg, "-") {
			// pip rejects option text glued into one argument
			if strings.ContainsAny(arg, " \\") {
				return process.Result{ExitCode: 2, Output: "no such option: " + strings.Fields(arg)[0]}, nil
			}
			continue
		}
		packages = append(packages, arg)
	}

	for _, name := range packages {
		if t.UnknownPackages[name] {
			return process.Result{
				ExitCode: 1,
				Output:   fmt.Sprintf("ERROR: No matching distribution found for %s", name),
			}, nil
		}
	}
	return process.Result{Output: "Successfully installed"}, nil
}

// requirementNames reads a requirements file the way pip does for the names it
// would fetch: continuations joined, comments and option lines skipped, hashes
// and markers dropped.
func requirementNames(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open requirements file: %w", err)
	}
	joined := strings.ReplaceAll(string(data), "\\\n", " ")

	var names []string
	for _, line := range strings.Split(joined, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		names = append(names, strings.Fields(line)[0])
	}
	return names, nil
}

func (t *Toolchain) pytest(ctx context.Context, cmd process.Command) (process.Result, error) {
	var testsPath, reportPath string
	for i, arg := range cmd.Args {
		if strings.HasPrefix(arg, "--junitxml=") {
			reportPath = strings.TrimPrefix(arg, "--junitxml=")
		}
		if arg == "pytest" && i+1 < len(cmd.Args) {
			testsPath = cmd.Args[i+1]
		}
	}
	name := filepath.Base(testsPath)

	if t.Hang[name] {
		<-ctx.Done()
		return process.Result{ExitCode: -1}, fmt.Errorf("%s: %w", cmd.Name, ctx.Err())
	}
	if code, ok := t.NoReport[name]; ok {
		return process.Result{ExitCode: code, Output: "INTERNALERROR"}, nil
	}

	cases := t.Suites[name]
	failed, errored, skipped := 0, 0, 0
	var b strings.Builder
	for _, c := range cases {
		fmt.Fprintf(&b, `<testcase classname="tests.%s.test_%s" name="%s" time="0.001">`, name, name, html.EscapeString(c.Name))
		switch {
		case c.Failed:
			failed++
			fmt.Fprintf(&b, `<failure message="assert False">def %s():&#10;&gt;       assert False&#10;E       assert False</failure>`, c.Name)
		case c.Errored:
			errored++
			b.WriteString(`<error message="fixture error">setup failed</error>`)
		case c.Skipped:
			skipped++
			b.WriteString(`<skipped type="pytest.skip" message="skipped" />`)
		}
		b.WriteString("</testcase>")
	}
	doc := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?><testsuites><testsuite name="pytest" errors="%d" failures="%d" skipped="%d" tests="%d" time="0.010" timestamp="2026-10-17T10:00:00.000000" hostname="ci">%s</testsuite></testsuites>`,
		errored, failed, skipped, len(cases), b.String())

	if err := os.MkdirAll(filepath.Dir(reportPath), 0755); err != nil {
		return process.Result{ExitCode: 3, Output: err.Error()}, nil
	}
	if err := os.WriteFile(reportPath, []byte(doc), 0644); err != nil {
		return process.Result{ExitCode: 3, Output: err.Error()}, nil
	}

	code := 0
	switch {
	case len(cases) == 0:
		code = 5
	case failed+errored > 0:
		code = 1
	}
	summary := fmt.Sprintf("== %d failed, %d passed in 0.01s ==", failed, len(cases)-failed-errored-skipped)
	return process.Result{ExitCode: code, Output: summary}, nil
}

// module returns the python -m target of a command
func module(args []string) string {
	for i, arg := range args {
		if arg == "-m" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
