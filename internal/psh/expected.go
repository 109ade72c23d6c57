package psh

import (
	"fmt"
	"regexp"
	"strings"
)

type expectKind int

const (
	kindLiteral expectKind = iota
	kindRegex
)

var eolRe = regexp.MustCompile(`\r+\n`)

// Expected is what a command should print between its echo and the next
// prompt.
type Expected struct {
	kind expectKind
	text string
}

// NoOutput expects the command to print nothing at all.
func NoOutput() Expected {
	return Expected{kind: kindLiteral}
}

// Literal expects exactly s, ignoring how the shell terminates lines and one
// trailing newline.
func Literal(s string) Expected {
	return Expected{kind: kindLiteral, text: s}
}

// Lines expects the given lines and nothing else.
func Lines(lines ...string) Expected {
	return Expected{kind: kindLiteral, text: strings.Join(lines, "\n")}
}

// Regex expects expr to match somewhere in the raw output, control codes
// and carriage returns included.
func Regex(expr string) Expected {
	return Expected{kind: kindRegex, text: expr}
}

// IsRegex reports whether e is a regular expression.
func (e Expected) IsRegex() bool {
	return e.kind == kindRegex
}

// String renders e for diagnostics.
func (e Expected) String() string {
	if e.kind == kindRegex {
		return fmt.Sprintf("regex %q", e.text)
	}
	if e.text == "" {
		return "no output"
	}
	return fmt.Sprintf("%q", e.text)
}

// match checks output against e. Literal expectations return only the
// whole output as submatch zero.
func (e Expected) match(output string) (subs []string, named map[string]string, ok bool, err error) {
	if e.kind == kindLiteral {
		got := strings.TrimSuffix(normalizeEOL(output), "\n")
		want := strings.TrimSuffix(normalizeEOL(e.text), "\n")
		if got != want {
			return nil, nil, false, nil
		}
		return []string{output}, map[string]string{}, true, nil
	}

	re, err := regexp.Compile(e.text)
	if err != nil {
		return nil, nil, false, fmt.Errorf("compiling expected pattern: %w", err)
	}
	loc := re.FindStringSubmatchIndex(output)
	if loc == nil {
		return nil, nil, false, nil
	}
	subs = make([]string, re.NumSubexp()+1)
	for g := range subs {
		if loc[2*g] >= 0 {
			subs[g] = output[loc[2*g]:loc[2*g+1]]
		}
	}
	named = map[string]string{}
	for g, name := range re.SubexpNames() {
		if name != "" {
			named[name] = subs[g]
		}
	}
	return subs, named, true, nil
}

func normalizeEOL(s string) string {
	return eolRe.ReplaceAllString(s, "\n")
}
