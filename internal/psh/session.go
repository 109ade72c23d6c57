// Package psh asserts on the behavior of the psh shell over a console.
//
// Every check follows the same exchange: send a command line, wait for the
// shell to echo it, wait for the next prompt, then compare whatever the
// shell printed in between with the expectation. The prompt is always
// consumed, so a finished check leaves the session ready for the next one.
package psh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/charmbracelet/log"

	"github.com/buckleypaul/pshtest/internal/ansi"
	"github.com/buckleypaul/pshtest/internal/console"
)

// maxStrayPrompts bounds how many extra prompts Init drains after boot.
const maxStrayPrompts = 8

// Console is the part of *console.Console a Session needs.
type Console interface {
	SendLine(ctx context.Context, text string) error
	Expect(ctx context.Context, timeout time.Duration, patterns ...console.Pattern) (*console.Match, error)
}

// Result is the outcome of a passing AssertCmd.
type Result struct {
	Cmd        string
	Output     string
	Submatches []string
	Named      map[string]string
}

// Group returns a named capture exactly as the device printed it, control
// codes included.
func (r *Result) Group(name string) string {
	if r == nil {
		return ""
	}
	return r.Named[name]
}

// CleanGroup returns a named capture with control codes removed.
func (r *Result) CleanGroup(name string) string {
	return ansi.Strip(r.Group(name))
}

// Session runs checks against one shell. It is the only user of its
// console and is not safe for concurrent use.
type Session struct {
	con         Console
	cfg         Config
	logger      *log.Logger
	prompt      console.Pattern
	emptyPrompt console.Pattern
}

// New validates cfg and returns a Session over con. A nil logger discards
// output.
func New(con Console, cfg Config, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	prompt, err := console.Regexp(cfg.Prompt)
	if err != nil {
		return nil, fmt.Errorf("invalid prompt pattern: %w", err)
	}
	if _, err := regexp.Compile(cfg.EOL); err != nil {
		return nil, fmt.Errorf("invalid line terminator pattern: %w", err)
	}
	emptyPrompt, err := console.Regexp(`(?:` + cfg.EOL + `)(?:` + cfg.Prompt + `)`)
	if err != nil {
		return nil, fmt.Errorf("invalid prompt pattern: %w", err)
	}
	return &Session{
		con:         con,
		cfg:         cfg,
		logger:      logger,
		prompt:      prompt,
		emptyPrompt: emptyPrompt,
	}, nil
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Init wakes the shell and waits for its first prompt. Prompts that follow
// within the settle period are drained so the first check starts clean.
func (s *Session) Init(ctx context.Context) error {
	s.logger.Info("waiting for psh prompt", "timeout", s.cfg.BootTimeout)
	if err := s.con.SendLine(ctx, ""); err != nil {
		return err
	}
	if _, err := s.con.Expect(ctx, s.cfg.BootTimeout, s.prompt); err != nil {
		return s.failure("psh prompt did not appear", "", "prompt", err)
	}

	for i := 0; s.cfg.Settle > 0 && i < maxStrayPrompts; i++ {
		_, err := s.con.Expect(ctx, s.cfg.Settle, s.prompt)
		if errors.Is(err, console.ErrTimeout) {
			break
		}
		if err != nil {
			return s.failure("psh prompt did not settle", "", "prompt", err)
		}
	}
	return nil
}

// AssertPrompt sends an empty line and checks that the shell answers with a
// fresh prompt. Each call consumes exactly the prompt it provoked.
func (s *Session) AssertPrompt(ctx context.Context, msg string) error {
	if msg == "" {
		msg = "psh prompt is not visible"
	}
	if err := s.con.SendLine(ctx, ""); err != nil {
		return err
	}
	if _, err := s.con.Expect(ctx, s.cfg.Timeout, s.emptyPrompt); err != nil {
		return s.failure(msg, "", "prompt", err)
	}
	return nil
}

// AssertCmd runs cmd and checks what it prints against want. An empty cmd
// sends nothing and checks the output up to the next prompt.
//
// Assertion failures are returned as *AssertionError. Transport failures
// and context cancellation are returned as they are.
func (s *Session) AssertCmd(ctx context.Context, cmd string, want Expected, msg string) (*Result, error) {
	s.logger.Debug("assert", "cmd", cmd, "expected", want.String())

	output, err := s.exec(ctx, cmd)
	if err != nil {
		return nil, s.failure(msg, cmd, want.String(), err)
	}

	subs, named, ok, err := want.match(output)
	if err != nil {
		return nil, s.failure(msg, cmd, want.String(), &AssertionError{Actual: output, Err: err})
	}
	if !ok {
		return nil, s.failure(msg, cmd, want.String(), &AssertionError{Actual: output, Err: ErrMismatch})
	}
	return &Result{Cmd: cmd, Output: output, Submatches: subs, Named: named}, nil
}

// exec sends cmd, waits for its echo and returns what the shell printed
// before the next prompt.
func (s *Session) exec(ctx context.Context, cmd string) (string, error) {
	if cmd != "" {
		if err := s.con.SendLine(ctx, cmd); err != nil {
			return "", err
		}
		echo, err := console.Regexp(regexp.QuoteMeta(cmd) + `(?:` + s.cfg.EOL + `)`)
		if err != nil {
			return "", err
		}
		if _, err := s.con.Expect(ctx, s.cfg.Timeout, echo); err != nil {
			return "", err
		}
	}

	m, err := s.con.Expect(ctx, s.cfg.Timeout, s.prompt)
	if err != nil {
		return "", err
	}
	return m.Before, nil
}

// failure turns err into the error AssertCmd reports. Fatal transport
// errors and cancellation pass through untouched.
func (s *Session) failure(msg, cmd, expected string, err error) error {
	if IsFatal(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	ae := &AssertionError{Msg: msg, Cmd: cmd, Expected: expected, Err: err}
	var inner *AssertionError
	var timeout *console.TimeoutError
	switch {
	case errors.As(err, &inner):
		ae.Actual, ae.Err = inner.Actual, inner.Err
	case errors.As(err, &timeout):
		ae.Actual = timeout.Buffer
	}
	s.logger.Warn("assertion failed", "cmd", cmd, "expected", expected, "actual", ae.Actual, "err", ae.Err)
	return ae
}
