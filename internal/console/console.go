// Package console turns a device byte stream into a send/expect interface.
//
// A Console owns one io.ReadWriteCloser. A background goroutine copies
// everything the device prints into a buffer; Expect searches that buffer for
// one of several patterns and consumes it through the end of the match.
// Writes go through a Pacer, so slow targets can be fed one character at a
// time without the caller knowing.
package console

import (
	"context"
	"errors"
	"io"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

const (
	readBufferSize = 1024
	closeGrace     = time.Second
)

// Pattern is one alternative passed to Expect.
type Pattern struct {
	re  *regexp.Regexp
	src string
}

// Literal matches s verbatim.
func Literal(s string) Pattern {
	return Pattern{re: regexp.MustCompile(regexp.QuoteMeta(s)), src: s}
}

// Regexp compiles expr into a Pattern.
func Regexp(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, err
	}
	return Pattern{re: re, src: expr}, nil
}

// MustRegexp is like Regexp but panics on an invalid expression.
func MustRegexp(expr string) Pattern {
	return Pattern{re: regexp.MustCompile(expr), src: expr}
}

// String returns the pattern source.
func (p Pattern) String() string {
	return p.src
}

// Match describes a successful Expect.
type Match struct {
	// Index of the pattern that matched.
	Index int
	// Text is the matched output.
	Text string
	// Before is the output consumed ahead of the match.
	Before string
	// Submatches holds the positional groups; Submatches[0] equals Text.
	Submatches []string
	// Named holds the named groups of the matching pattern.
	Named map[string]string
}

// Group returns a named capture, or "" when the group did not participate.
func (m *Match) Group(name string) string {
	if m == nil {
		return ""
	}
	return m.Named[name]
}

// Option configures a Console.
type Option func(*Console)

// WithPacer selects how bytes are written to the device. The default is
// Direct.
func WithPacer(p Pacer) Option {
	return func(c *Console) {
		if p != nil {
			c.pacer = p
		}
	}
}

// WithTranscript copies every byte read from the device to w.
func WithTranscript(w io.Writer) Option {
	return func(c *Console) {
		c.transcript = w
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(c *Console) {
		if l != nil {
			c.logger = l
		}
	}
}

// Console is a line-oriented view of a device stream.
type Console struct {
	rw         io.ReadWriteCloser
	pacer      Pacer
	transcript io.Writer
	logger     *log.Logger

	mu      sync.Mutex
	buf     []byte
	readErr error

	notify    chan struct{}
	done      chan struct{}
	busy      atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New starts reading rw and returns a Console owning it.
func New(rw io.ReadWriteCloser, opts ...Option) *Console {
	c := &Console{
		rw:     rw,
		pacer:  Direct{},
		logger: log.New(io.Discard),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c
}

func (c *Console) readLoop() {
	defer close(c.done)

	buf := make([]byte, readBufferSize)
	for {
		n, err := c.rw.Read(buf)
		if n > 0 {
			if c.transcript != nil {
				// A failing transcript must not break the session.
				_, _ = c.transcript.Write(buf[:n])
			}
			c.mu.Lock()
			c.buf = append(c.buf, buf[:n]...)
			c.mu.Unlock()
			c.signal()
		}
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			c.signal()
			return
		}
	}
}

func (c *Console) signal() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Send writes data through the pacer.
func (c *Console) Send(ctx context.Context, data string) error {
	if c.closed.Load() {
		return &TransportError{Op: "write", Err: ErrClosed}
	}
	c.logger.Debug("send", "data", data)
	if err := c.pacer.Write(ctx, c.rw, []byte(data)); err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return err
		}
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// SendLine writes text through the pacer followed by a single newline. The
// terminator itself is never paced.
func (c *Console) SendLine(ctx context.Context, text string) error {
	if c.closed.Load() {
		return &TransportError{Op: "write", Err: ErrClosed}
	}
	if err := c.Send(ctx, text); err != nil {
		return err
	}
	if _, err := c.rw.Write([]byte{'\n'}); err != nil {
		if c.closed.Load() {
			err = ErrClosed
		}
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// Expect waits until the buffered output matches one of patterns or timeout
// elapses. A timeout of zero waits for ctx only. When several patterns match,
// the one starting earliest wins; ties go to the lower index.
func (c *Console) Expect(ctx context.Context, timeout time.Duration, patterns ...Pattern) (*Match, error) {
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}
	if c.closed.Load() {
		return nil, &TransportError{Op: "expect", Err: ErrClosed}
	}
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for {
		c.mu.Lock()
		m := c.consume(patterns)
		readErr := c.readErr
		pending := string(c.buf)
		c.mu.Unlock()

		if m != nil {
			c.logger.Debug("expect matched", "pattern", patterns[m.Index].String(), "text", m.Text)
			return m, nil
		}
		if readErr != nil {
			if c.closed.Load() {
				readErr = ErrClosed
			}
			return nil, &TransportError{Op: "read", Err: readErr, Buffer: pending}
		}

		select {
		case <-c.notify:
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &TimeoutError{
				Patterns: patternSources(patterns),
				Buffer:   pending,
				After:    timeout,
			}
		}
	}
}

// consume finds the earliest match and drops the buffer through its end.
// Callers hold c.mu.
func (c *Console) consume(patterns []Pattern) *Match {
	best, bestLoc := -1, []int(nil)
	for i, p := range patterns {
		loc := p.re.FindSubmatchIndex(c.buf)
		if loc == nil {
			continue
		}
		if best < 0 || loc[0] < bestLoc[0] {
			best, bestLoc = i, loc
		}
	}
	if best < 0 {
		return nil
	}

	re := patterns[best].re
	m := &Match{
		Index:      best,
		Text:       string(c.buf[bestLoc[0]:bestLoc[1]]),
		Before:     string(c.buf[:bestLoc[0]]),
		Submatches: make([]string, re.NumSubexp()+1),
		Named:      map[string]string{},
	}
	for g := 0; g <= re.NumSubexp(); g++ {
		start, end := bestLoc[2*g], bestLoc[2*g+1]
		if start >= 0 {
			m.Submatches[g] = string(c.buf[start:end])
		}
	}
	for g, name := range re.SubexpNames() {
		if name != "" {
			m.Named[name] = m.Submatches[g]
		}
	}

	c.buf = append([]byte(nil), c.buf[bestLoc[1]:]...)
	return m
}

// Buffered returns output received but not consumed by Expect yet.
func (c *Console) Buffered() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.buf)
}

// Discard drops everything buffered so far and returns it.
func (c *Console) Discard() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := string(c.buf)
	c.buf = nil
	return out
}

// Close closes the underlying stream and waits briefly for the reader to
// stop. Calling Close more than once returns the first result.
func (c *Console) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.rw.Close()
		select {
		case <-c.done:
		case <-time.After(closeGrace):
			c.logger.Warn("console reader did not stop after close")
		}
	})
	return c.closeErr
}

func patternSources(patterns []Pattern) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = p.String()
	}
	return out
}
