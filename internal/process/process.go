// Package process runs the external tools the harness drives (venv, pip, pytest).
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Command is one external program invocation
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string // nil inherits the current process environment
}

// String renders the command line for logs and reports
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is what a finished command left behind
type Result struct {
	Output   string
	ExitCode int
	Duration time.Duration
}

// Executor runs commands. A command that ran to completion returns a Result and a
// nil error whatever its exit code; errors mean it could not start or was stopped
// by ctx.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecExecutor runs commands with os/exec
type ExecExecutor struct {
	log zerolog.Logger
}

// NewExecExecutor creates a new ExecExecutor
func NewExecExecutor(log zerolog.Logger) *ExecExecutor {
	return &ExecExecutor{log: log}
}

// Run executes cmd and captures its combined output
func (e *ExecExecutor) Run(ctx context.Context, cmd Command) (Result, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	c.WaitDelay = 5 * time.Second

	var buf bytes.Buffer
	c.Stdout = &buf
	c.Stderr = &buf

	start := time.Now()
	err := c.Run()
	result := Result{Output: buf.String(), Duration: time.Since(start)}

	e.log.Debug().
		Str("cmd", cmd.String()).
		Str("dir", cmd.Dir).
		Dur("duration", result.Duration).
		Err(err).
		Msg("command finished")

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		return result, fmt.Errorf("%s: %w", cmd.Name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		result.ExitCode = -1
		return result, fmt.Errorf("start %s: %w", cmd.Name, err)
	}
	return result, nil
}
