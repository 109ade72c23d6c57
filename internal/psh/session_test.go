package psh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buckleypaul/pshtest/internal/console"
	"github.com/buckleypaul/pshtest/internal/testing/fakes/fakepsh"
)

func testConfig() Config {
	return DefaultConfig(
		WithTimeout(time.Second),
		WithBootTimeout(time.Second),
		WithSettle(20*time.Millisecond),
	)
}

func newSession(t *testing.T, opts ...fakepsh.Option) (*Session, *fakepsh.Device) {
	t.Helper()
	host, dev := fakepsh.Pipe(opts...)
	con := console.New(host)
	t.Cleanup(func() { _ = con.Close() })

	s, err := New(con, testConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	return s, dev
}

func TestInitDrainsBootPrompt(t *testing.T) {
	s, dev := newSession(t, fakepsh.WithBanner("Phoenix-RTOS microkernel v. 3.0"))
	assert.Empty(t, dev.Received())

	// A single prompt check must not be satisfied by a stray boot prompt.
	require.NoError(t, s.AssertPrompt(context.Background(), ""))
}

func TestInitWithoutBootPrompt(t *testing.T) {
	_, _ = newSession(t, fakepsh.WithoutBootPrompt())
}

func TestInitTimesOut(t *testing.T) {
	host, _ := fakepsh.Pipe(fakepsh.Silent())
	con := console.New(host)
	t.Cleanup(func() { _ = con.Close() })

	s, err := New(con, DefaultConfig(WithBootTimeout(50*time.Millisecond)), nil)
	require.NoError(t, err)

	err = s.Init(context.Background())
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, console.ErrTimeout)
	assert.Contains(t, err.Error(), "psh prompt did not appear")
}

func TestAssertPromptIsIdempotent(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()

	require.NoError(t, s.AssertPrompt(ctx, ""))
	require.NoError(t, s.AssertPrompt(ctx, ""))

	// Nothing left over for the next command.
	_, err := s.AssertCmd(ctx, "date +%Y", Literal("1970"), "")
	require.NoError(t, err)
}

func TestAssertCmdLiteral(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()

	res, err := s.AssertCmd(ctx, "date operand1", Literal("date: invalid format 'operand1'"), "")
	require.NoError(t, err)
	assert.Equal(t, "date operand1", res.Cmd)
	assert.Equal(t, "date: invalid format 'operand1'\r\n", res.Output)

	// A literal must match the whole output, not a part of it.
	_, err = s.AssertCmd(ctx, "date operand1", Literal("date: invalid format"), "partial")
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, ErrMismatch)
	assert.Equal(t, "date operand1", ae.Cmd)
	assert.Equal(t, "date: invalid format 'operand1'\r\n", ae.Actual)
}

func TestAssertCmdLines(t *testing.T) {
	s, _ := newSession(t)

	_, err := s.AssertCmd(context.Background(), "date -h", Lines(
		"Usage: date [-h] [-s EPOCH] [-d @EPOCH] [+FORMAT]",
		"  -h:  shows this help message",
		"  -s:  set system time described by EPOCH (POSIX time format)",
		"  -d:  display time described by EPOCH (POSIX time format)",
		"  FORMAT: string with POSIX date formatting characters",
		"NOTE: FORMAT string not supported by options: '-s', '-d'",
	), "")
	require.NoError(t, err)
}

func TestAssertCmdNoOutputConsumesPrompt(t *testing.T) {
	s, dev := newSession(t)
	ctx := context.Background()

	_, err := s.AssertCmd(ctx, "mkdir fresh", NoOutput(), "")
	require.NoError(t, err)
	assert.True(t, dev.Exists("/fresh"))

	// The next command sees only its own output.
	_, err = s.AssertCmd(ctx, "mkdir fresh", Literal("mkdir: failed to create fresh directory"), "")
	require.NoError(t, err)

	_, err = s.AssertCmd(ctx, "mkdir other", NoOutput(), "")
	require.NoError(t, err)
}

func TestAssertCmdRegexCaptures(t *testing.T) {
	s, _ := newSession(t)

	res, err := s.AssertCmd(context.Background(), "date -d @1600000000",
		Regex(`(?P<wday>\w{3}), 13 Sep 20 (?P<hour>12):\d{2}:\d{2}\r+\n`), "")
	require.NoError(t, err)
	assert.Equal(t, "Sun", res.Group("wday"))
	assert.Equal(t, "12", res.Group("hour"))
	assert.Equal(t, "12", res.Submatches[2])
	assert.Equal(t, "", res.Group("missing"))
}

func TestAssertCmdRegexSearchesRawOutput(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()
	_, err := s.AssertCmd(ctx, "mkdir d", NoOutput(), "")
	require.NoError(t, err)

	// Directory names are colored; an untolerant pattern sees the codes.
	_, err = s.AssertCmd(ctx, "ls -1 /", Regex(`(?m)^d\r`), "")
	assert.ErrorIs(t, err, ErrMismatch)

	res, err := s.AssertCmd(ctx, "ls -1 /", Regex(`(?m)^(?P<name>\x1b\[[0-9;]*md\x1b\[0m)\r`), "")
	require.NoError(t, err)
	assert.Equal(t, "\x1b[1;34md\x1b[0m", res.Group("name"))
	assert.Equal(t, "d", res.CleanGroup("name"))
}

func TestAssertCmdBadPattern(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()

	_, err := s.AssertCmd(ctx, "date", Regex(`(unclosed`), "bad")
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.NotErrorIs(t, err, ErrMismatch)

	// The prompt was consumed even though the pattern was bad.
	_, err = s.AssertCmd(ctx, "date +%Y", Literal("1970"), "")
	require.NoError(t, err)
}

func TestAssertCmdTimeout(t *testing.T) {
	s, _ := newSession(t, fakepsh.WithHandler("hang", func(*fakepsh.Device, []string) []string {
		time.Sleep(2 * time.Second)
		return nil
	}))

	_, err := s.AssertCmd(context.Background(), "hang", NoOutput(), "hang should finish")
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, console.ErrTimeout)
	assert.Contains(t, err.Error(), "hang should finish")
	assert.Contains(t, err.Error(), "timed out")
	assert.False(t, IsFatal(err))
}

func TestAssertCmdTransportFailure(t *testing.T) {
	s, _ := newSession(t, fakepsh.WithHangup("reboot"))

	_, err := s.AssertCmd(context.Background(), "reboot", NoOutput(), "")
	require.Error(t, err)
	assert.True(t, IsFatal(err))

	var ae *AssertionError
	assert.False(t, errors.As(err, &ae))
}

func TestAssertCmdCanceled(t *testing.T) {
	s, _ := newSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.AssertCmd(ctx, "date", NoOutput(), "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMeteredSession(t *testing.T) {
	host, _ := fakepsh.Pipe()
	con := console.New(host, console.WithPacer(console.Metered{Delay: 5 * time.Millisecond}))
	t.Cleanup(func() { _ = con.Close() })

	s, err := New(con, testConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))

	const cmd = "date +%Y"
	start := time.Now()
	_, err = s.AssertCmd(context.Background(), cmd, Literal("1970"), "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), time.Duration(len(cmd))*5*time.Millisecond)
}

func TestNewRejectsBadPatterns(t *testing.T) {
	_, err := New(nil, DefaultConfig(WithPrompt(`(`)), nil)
	assert.Error(t, err)

	_, err = New(nil, DefaultConfig(WithEOL(`[`)), nil)
	assert.Error(t, err)
}

func TestAssertionErrorMessage(t *testing.T) {
	err := &AssertionError{
		Msg:      "date does not fail",
		Cmd:      "date operand1",
		Expected: Literal("date: invalid format 'operand1'").String(),
		Actual:   "Thu, 01 Jan 70 00:00:00\r\n",
		Err:      ErrMismatch,
	}
	msg := err.Error()
	assert.Contains(t, msg, "date does not fail")
	assert.Contains(t, msg, `"date operand1"`)
	assert.Contains(t, msg, `"date: invalid format 'operand1'"`)
	assert.Contains(t, msg, `"Thu, 01 Jan 70 00:00:00\r\n"`)
}
