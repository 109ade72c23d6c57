package psh

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/buckleypaul/pshtest/internal/console"
)

// ErrMismatch is wrapped by assertion failures where the device answered
// but not with the expected output.
var ErrMismatch = errors.New("output does not match")

// AssertionError is the one diagnostic surface for a failed check. Err is
// ErrMismatch, a console timeout, or a bad pattern.
type AssertionError struct {
	Msg      string
	Cmd      string
	Expected string
	Actual   string
	Err      error
}

func (e *AssertionError) Error() string {
	var b strings.Builder
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else {
		b.WriteString("assertion failed")
	}
	var timeout *console.TimeoutError
	switch {
	case errors.As(e.Err, &timeout):
		fmt.Fprintf(&b, " (timed out after %s)", timeout.After)
	case e.Err != nil && !errors.Is(e.Err, ErrMismatch):
		fmt.Fprintf(&b, " (%v)", e.Err)
	}
	fmt.Fprintf(&b, "\n  command:  %s", strconv.Quote(e.Cmd))
	fmt.Fprintf(&b, "\n  expected: %s", e.Expected)
	fmt.Fprintf(&b, "\n  actual:   %s", strconv.Quote(e.Actual))
	return b.String()
}

func (e *AssertionError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err means the transport is gone and the session
// cannot continue.
func IsFatal(err error) bool {
	var te *console.TransportError
	return errors.As(err, &te)
}
