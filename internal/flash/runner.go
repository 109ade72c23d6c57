package flash

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Output is what a finished process left behind.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner runs a process to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Output, error)
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct{}

// Run starts name and waits for it. A non-zero exit is reported through
// Output.ExitCode, not as an error; the error is for processes that could
// not be started or were cut short by ctx.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Output, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}

	if ctx.Err() != nil {
		out.ExitCode = -1
		return out, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	out.ExitCode = -1
	return out, fmt.Errorf("%s: %w", name, err)
}
