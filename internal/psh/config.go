package psh

import "time"

// Defaults for a psh console.
const (
	DefaultPrompt      = `\r+\x1b\[0J\(psh\)% `
	DefaultEOL         = `\r+\n`
	DefaultTimeout     = 10 * time.Second
	DefaultBootTimeout = 30 * time.Second
	DefaultSettle      = 250 * time.Millisecond
)

// Config describes the shell a Session talks to. It is a value: sessions
// keep their own copy and nothing mutates it after New.
type Config struct {
	// Prompt is a regular expression matching the interactive prompt.
	Prompt string
	// EOL is a regular expression matching one line terminator as the
	// shell prints it. psh echoes CR before LF, sometimes twice.
	EOL string
	// Timeout bounds every expectation after the session is up.
	Timeout time.Duration
	// BootTimeout bounds the wait for the first prompt in Init.
	BootTimeout time.Duration
	// Settle is how long Init waits for stray prompts after the first one.
	Settle time.Duration
}

// Option adjusts a Config.
type Option func(*Config)

// WithTimeout sets the per-expectation timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithBootTimeout sets how long Init waits for the first prompt.
func WithBootTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.BootTimeout = d
		}
	}
}

// WithSettle sets the quiet period Init uses to drain extra prompts.
func WithSettle(d time.Duration) Option {
	return func(c *Config) {
		c.Settle = d
	}
}

// WithPrompt replaces the prompt expression.
func WithPrompt(expr string) Option {
	return func(c *Config) {
		if expr != "" {
			c.Prompt = expr
		}
	}
}

// WithEOL replaces the line terminator expression.
func WithEOL(expr string) Option {
	return func(c *Config) {
		if expr != "" {
			c.EOL = expr
		}
	}
}

// DefaultConfig returns the psh defaults with opts applied.
func DefaultConfig(opts ...Option) Config {
	cfg := Config{
		Prompt:      DefaultPrompt,
		EOL:         DefaultEOL,
		Timeout:     DefaultTimeout,
		BootTimeout: DefaultBootTimeout,
		Settle:      DefaultSettle,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
