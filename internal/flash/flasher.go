package flash

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ErrImageNotFound is returned when the firmware image does not exist.
var ErrImageNotFound = errors.New("firmware image not found")

// Outcome is the result of one flash attempt.
type Outcome struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Command  string
}

// Error reports a flash that did not succeed. Missing lists the markers
// absent from the programmer's stderr.
type Error struct {
	Outcome *Outcome
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	var reasons []string
	if e.Err != nil {
		reasons = append(reasons, e.Err.Error())
	}
	if e.Outcome != nil && e.Outcome.ExitCode != 0 {
		reasons = append(reasons, fmt.Sprintf("exit code %d", e.Outcome.ExitCode))
	}
	for _, m := range e.Missing {
		reasons = append(reasons, fmt.Sprintf("missing %q", m))
	}
	return "flashing failed: " + strings.Join(reasons, ", ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Flasher programs one board.
type Flasher struct {
	Tool   OpenOCD
	Runner Runner
	Logger *log.Logger
}

// New returns a Flasher running tool with os/exec.
func New(tool OpenOCD, logger *log.Logger) *Flasher {
	return &Flasher{Tool: tool, Runner: ExecRunner{}, Logger: logger}
}

// Flash writes the whole image and verifies it. It never retries.
func (f *Flasher) Flash(ctx context.Context) (*Outcome, error) {
	logger := f.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	runner := f.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	outcome := &Outcome{Command: f.Tool.String(), ExitCode: -1}
	if _, err := os.Stat(f.Tool.Image); err != nil {
		return outcome, &Error{Outcome: outcome, Err: fmt.Errorf("%w: %s", ErrImageNotFound, f.Tool.Image)}
	}

	logger.Info("flashing", "image", f.Tool.Image, "command", outcome.Command)
	start := time.Now()
	out, err := runner.Run(ctx, f.Tool.Name(), f.Tool.Args()...)
	outcome.Duration = time.Since(start)
	outcome.Stdout = out.Stdout
	outcome.Stderr = out.Stderr
	outcome.ExitCode = out.ExitCode
	if err != nil {
		logger.Error("flash tool failed to run", "err", err)
		return outcome, &Error{Outcome: outcome, Err: err}
	}

	var missing []string
	for _, marker := range []string{VerifiedMarker, ShutdownMarker} {
		if !strings.Contains(out.Stderr, marker) {
			missing = append(missing, marker)
		}
	}
	if len(missing) > 0 || out.ExitCode != 0 {
		logger.Error("flash failed", "exit_code", out.ExitCode, "missing", missing)
		return outcome, &Error{Outcome: outcome, Missing: missing}
	}

	outcome.Success = true
	logger.Info("flash complete", "duration", outcome.Duration)
	return outcome, nil
}
