package scenarios

import (
	"context"
	"fmt"

	"github.com/buckleypaul/pshtest/internal/psh"
)

const (
	// Date right after flashing: the clock starts at the epoch.
	defaultDate = `Thu, 01 Jan 70 \d{2}:\d{2}:\d{2}\r+\n`
	// Epoch 1600000000.
	setDate = `Sun, 13 Sep 20 12:\d{2}:\d{2}\r+\n`
	// Epoch 0x7FFFFFFFF0000000, close to the largest signed 64-bit value.
	farDate = `Thu, 16 Apr 15 \d{2}:\d{2}:\d{2}\r+\n`
)

var dateHelp = psh.Lines(
	"Usage: date [-h] [-s EPOCH] [-d @EPOCH] [+FORMAT]",
	"  -h:  shows this help message",
	"  -s:  set system time described by EPOCH (POSIX time format)",
	"  -d:  display time described by EPOCH (POSIX time format)",
	"  FORMAT: string with POSIX date formatting characters",
	"NOTE: FORMAT string not supported by options: '-s', '-d'",
)

func init() {
	register(Suite{
		Name:        "date",
		Description: "date printing, formatting, setting and argument errors",
		Run:         runDate,
	})
}

func invalidFormat(v string) psh.Expected {
	return psh.Literal(fmt.Sprintf("date: invalid format '%s'", v))
}

func invalidDate(v string) psh.Expected {
	return psh.Literal(fmt.Sprintf("date: invalid date '%s'", v))
}

func unrecognized(arg string) psh.Expected {
	return psh.Literal("Unrecognized argument: " + arg)
}

// rejected checks that cmd fails with want and leaves the clock alone.
func rejected(cmd string, want psh.Expected) []step {
	return []step{
		{cmd, want, fmt.Sprintf("'%s' does not fail", cmd)},
		{"date", psh.Regex(defaultDate), fmt.Sprintf("date amended by '%s', but should not", cmd)},
	}
}

func runDate(ctx context.Context, s *psh.Session) error {
	if err := s.AssertPrompt(ctx, ""); err != nil {
		return err
	}

	parts := [][]step{
		dateCorrect(),
		dateIncorrectPrint(),
		dateIncorrectWrite(),
		dateIncorrectParse(),
		dateEdges(),
	}
	for _, steps := range parts {
		if err := run(ctx, s, steps...); err != nil {
			return err
		}
	}
	return nil
}

func dateCorrect() []step {
	const formatMsg = "date does not process formatting properly"
	return []step{
		{"date -h", dateHelp, "date help is wrong"},
		{"date", psh.Regex(defaultDate), "'date' does not print date"},
		{"date +%Y", psh.Literal("1970"), formatMsg},
		{"date +%H:%M:%Sformat", psh.Regex(`00:0\d{1}:\d{2}format\r+\n`), formatMsg},

		{"date -s @1600000000", psh.Regex(setDate), "'date -s @1600000000' does not set the date"},
		{"date", psh.Regex(setDate), "date not amended by 'date -s @1600000000'"},

		{"date -s @0", psh.Regex(defaultDate), "'date -s @0' does not set the date"},
		{"date", psh.Regex(defaultDate), "date not amended by 'date -s @0'"},

		{"date -d @1600000000", psh.Regex(setDate), "'date -d @1600000000' does not print the date"},
		{"date", psh.Regex(defaultDate), "date amended by 'date -d', but should not"},
	}
}

func dateIncorrectPrint() []step {
	var steps []step
	steps = append(steps, rejected("date operand1", invalidFormat("operand1"))...)
	steps = append(steps, rejected("date +operand1", psh.Literal("operand1"))...)
	steps = append(steps, rejected("date operand1 operand2 operand3", unrecognized("operand2"))...)
	steps = append(steps, rejected("date +%Y%k%Y", psh.Literal("1970%k1970"))...)
	return steps
}

func dateIncorrectWrite() []step {
	var steps []step
	steps = append(steps, rejected("date -s", psh.Literal("date: option requires an argument -- s"))...)
	steps = append(steps, step{"date -s 123456789operand1", invalidDate("123456789operand1"), "'date -s 123456789operand1' does not fail"})
	steps = append(steps, rejected("date -s 1600000000 +format operand1", unrecognized("operand1"))...)
	return steps
}

func dateIncorrectParse() []step {
	var steps []step
	steps = append(steps, rejected("date -d", psh.Literal("date: option requires an argument -- d"))...)
	steps = append(steps, rejected("date -d @1600000000 +format operand1", unrecognized("operand1"))...)
	steps = append(steps, rejected("date -d @1600000000operand1", invalidDate("@1600000000operand1"))...)
	steps = append(steps, rejected("date -d 1600000000", invalidDate("1600000000"))...)
	return steps
}

func dateEdges() []step {
	return []step{
		{"date -s @9223372036586340352", psh.Regex(farDate), "'date -s' with a large epoch does not set the date"},
		{"date", psh.Regex(farDate), "date not amended by a large epoch"},
		{"date +%Y", psh.Literal("586515"), "year of a large epoch is wrong"},
		{"date -s @0", psh.Regex(defaultDate), "'date -s @0' does not reset the date"},
	}
}
