package console

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Predefined errors, checked with errors.Is.
var (
	ErrTimeout    = errors.New("timed out waiting for device output")
	ErrClosed     = errors.New("console is closed")
	ErrBusy       = errors.New("another expectation is already outstanding")
	ErrNoPatterns = errors.New("no patterns to expect")
)

// TimeoutError is returned by Expect when none of the patterns matched in
// time. Buffer holds everything received but not yet consumed.
type TimeoutError struct {
	Patterns []string
	Buffer   string
	After    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for [%s]; buffered output: %q",
		e.After, strings.Join(e.Patterns, ", "), e.Buffer)
}

// Is makes errors.Is(err, ErrTimeout) hold for every TimeoutError.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// TransportError wraps a failure of the underlying byte stream. It is fatal
// for the session that hit it and is never retried.
type TransportError struct {
	Op     string
	Err    error
	Buffer string
}

func (e *TransportError) Error() string {
	if e.Buffer == "" {
		return fmt.Sprintf("console %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("console %s: %v; buffered output: %q", e.Op, e.Err, e.Buffer)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
