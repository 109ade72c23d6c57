package psh

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/buckleypaul/pshtest/internal/ansi"
	"github.com/buckleypaul/pshtest/internal/console"
)

// Separator matches what follows a name in an ls listing: blanks between
// columns or the end of a row, optionally after a control code.
const Separator = ansi.OptionalControlCode + `(?:[ \t]+|\r+\n)`

const helpHeader = "Available commands:"

var commandNameRe = regexp.MustCompile(`^[\w.-]+$`)

// Commands runs help and returns the command names it lists, in order.
func (s *Session) Commands(ctx context.Context) ([]string, error) {
	res, err := s.AssertCmd(ctx, "help", Regex(regexp.QuoteMeta(helpHeader)), "help does not list the available commands")
	if err != nil {
		return nil, err
	}

	text := ansi.Strip(normalizeEOL(res.Output))
	_, listing, _ := strings.Cut(text, helpHeader)

	var names []string
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || !commandNameRe.MatchString(fields[0]) {
			continue
		}
		names = append(names, fields[0])
	}
	if len(names) == 0 {
		return nil, &AssertionError{
			Msg:      "help lists no commands",
			Cmd:      "help",
			Expected: "at least one command after " + fmt.Sprintf("%q", helpHeader),
			Actual:   res.Output,
			Err:      ErrMismatch,
		}
	}
	s.logger.Debug("psh commands", "names", names)
	return names, nil
}

// ListContains runs a listing command and reports which of names it
// printed. A name counts when it stands alone between separators, with an
// optional control code in front.
func (s *Session) ListContains(ctx context.Context, cmd string, names []string) (map[string]bool, error) {
	seen := make(map[string]bool, len(names))
	if len(names) == 0 {
		_, err := s.AssertCmd(ctx, cmd, Regex(``), "listing failed")
		return seen, err
	}

	// Longest first so a name never shadows one it prefixes.
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	sort.Slice(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })

	// A name starts the buffer, a row, or follows a blank.
	namePattern, err := console.Regexp(`(?:^|[ \t]|\n)` + ansi.Before(`(?P<name>`+strings.Join(quoted, "|")+`)`, ansi.Optional) + Separator)
	if err != nil {
		return nil, err
	}

	if err := s.con.SendLine(ctx, cmd); err != nil {
		return nil, err
	}
	echo, err := console.Regexp(regexp.QuoteMeta(cmd) + `(?:` + s.cfg.EOL + `)`)
	if err != nil {
		return nil, err
	}
	if _, err := s.con.Expect(ctx, s.cfg.Timeout, echo); err != nil {
		return nil, s.failure("listing was not echoed", cmd, "echo", err)
	}

	for {
		m, err := s.con.Expect(ctx, s.cfg.Timeout, s.prompt, namePattern)
		if err != nil {
			return nil, s.failure("listing did not finish", cmd, namePattern.String(), err)
		}
		if m.Index == 0 {
			return seen, nil
		}
		seen[ansi.Strip(m.Group("name"))] = true
	}
}

// MkdirFresh creates dir, which must not exist yet.
func (s *Session) MkdirFresh(ctx context.Context, dir string) error {
	msg := strings.Join([]string{
		"Wrong output when creating a test directory!",
		"Probably the directory has already been created.",
		"Reflash the target and run the suite again.",
	}, "\n")
	_, err := s.AssertCmd(ctx, "mkdir "+dir, NoOutput(), msg)
	return err
}
