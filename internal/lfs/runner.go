package lfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Runner abstracts the execution of the administrative command line tools.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError is returned by an [ExecRunner] when a command exits non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s (exit %d): %s", e.Command, e.ExitCode, e.Stderr)
	}

	return fmt.Sprintf("%s (exit %d): %v", e.Command, e.ExitCode, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

// Run executes a command and returns its standard output. The standard error
// is captured into a [CommandError] on failure.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Running command:", "cmd", CommandLine(name, args...))

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	exitCode := 1

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) {
		exitCode = 127 //nolint:mnd
	}

	return stdout.Bytes(), &CommandError{
		Command:  CommandLine(name, args...),
		ExitCode: exitCode,
		Stderr:   strings.TrimSpace(stderr.String()),
		Err:      err,
	}
}

// CommandLine renders a command as a copy-pasteable shell line.
func CommandLine(name string, args ...string) string {
	return shellquote.Join(append([]string{name}, args...)...)
}
