// Package ansi recognizes the CSI control sequences psh mixes into its output
// and builds expectation patterns that tolerate them.
package ansi

import "regexp"

// ControlCode matches a single CSI sequence:
// ESC '[' parameter bytes, intermediate bytes, final byte.
const ControlCode = `\x1b\[[\x30-\x3F]*[\x20-\x2F]*[\x40-\x7E]`

// OptionalControlCode matches zero or one CSI sequence.
const OptionalControlCode = `(?:` + ControlCode + `)?`

var controlCodeRe = regexp.MustCompile(ControlCode)

// Tolerance says how an expectation treats a control code next to its token.
type Tolerance int

const (
	// Disallowed leaves the core pattern untouched, so a control code next
	// to the token makes the expectation fail.
	Disallowed Tolerance = iota
	// Optional accepts zero or one control code.
	Optional
	// Required demands exactly one control code.
	Required
)

func (t Tolerance) String() string {
	switch t {
	case Disallowed:
		return "disallowed"
	case Optional:
		return "optional"
	case Required:
		return "required"
	}
	return "unknown"
}

func (t Tolerance) fragment() string {
	switch t {
	case Optional:
		return OptionalControlCode
	case Required:
		return `(?:` + ControlCode + `)`
	}
	return ""
}

// Around wraps core with the control-code fragment for t on both sides.
// The core pattern is grouped so alternations inside it stay scoped.
func Around(core string, t Tolerance) string {
	f := t.fragment()
	return f + `(?:` + core + `)` + f
}

// Before prefixes core with the control-code fragment for t.
func Before(core string, t Tolerance) string {
	return t.fragment() + `(?:` + core + `)`
}

// After suffixes core with the control-code fragment for t.
func After(core string, t Tolerance) string {
	return `(?:` + core + `)` + t.fragment()
}

// Strip removes every CSI sequence from s. Stripping is idempotent: removing
// one sequence can splice a new one together ("\x1b\x1b[0m[0m"), so it
// repeats until nothing matches.
func Strip(s string) string {
	for controlCodeRe.MatchString(s) {
		s = controlCodeRe.ReplaceAllString(s, "")
	}
	return s
}

// Has reports whether s contains at least one CSI sequence.
func Has(s string) bool {
	return controlCodeRe.MatchString(s)
}
