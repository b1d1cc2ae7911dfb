package toolrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/frankie-agent/frankie/internal/port/runner"
)

// TestRunner executes the configured test command in a working copy.
type TestRunner struct {
	command string
}

// NewTestRunner creates a TestRunner for the given shell command line.
func NewTestRunner(command string) *TestRunner {
	return &TestRunner{command: command}
}

// Run executes the test command in dir. A non-zero exit is a failed run,
// not an error: the raw output is captured either way so a reviewer can
// read it. Errors are reserved for not being able to run the suite at all.
func (r *TestRunner) Run(ctx context.Context, dir string) (runner.TestResult, error) {
	if r.command == "" {
		return runner.TestResult{}, fmt.Errorf("no test command configured")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", r.command)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return runner.TestResult{Passed: true, RawOutput: out.String()}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return runner.TestResult{Passed: false, RawOutput: out.String()}, nil
	}
	return runner.TestResult{}, fmt.Errorf("run tests: %w", err)
}
