package ansi

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "plain text", input: "date: invalid format 'operand1'", expected: "date: invalid format 'operand1'"},
		{name: "erase below", input: "\r\x1b[0J(psh)% ", expected: "\r(psh)% "},
		{name: "sgr with params", input: "\x1b[1;32mbin\x1b[0m", expected: "bin"},
		{name: "cursor movement around wrapped name", input: "loremipsum\x1b[80D\x1b[1Bloremipsum", expected: "loremipsumloremipsum"},
		{name: "intermediate byte", input: "a\x1b[1 qb", expected: "ab"},
		{name: "spliced sequence", input: "x\x1b\x1b[0m[0my", expected: "xy"},
		{name: "lone escape kept", input: "a\x1bb", expected: "a\x1bb"},
		{name: "unterminated sequence kept", input: "a\x1b[12", expected: "a\x1b[12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Strip(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, Strip(got), "stripping must be idempotent")
			assert.False(t, Has(got))
		})
	}
}

func TestHas(t *testing.T) {
	assert.True(t, Has("\x1b[0J"))
	assert.True(t, Has("ls\x1b[K"))
	assert.False(t, Has("\x1b"))
	assert.False(t, Has("[0J"))
}

func TestAround(t *testing.T) {
	const name = "loremipsum"

	tests := []struct {
		name      string
		tolerance Tolerance
		input     string
		match     bool
	}{
		{"optional without code", Optional, name, true},
		{"optional with codes", Optional, "\x1b[K" + name + "\x1b[0m", true},
		{"optional tolerates only one code", Optional, "\x1b[K\x1b[K" + name, false},
		{"required without code", Required, name, false},
		{"required with codes", Required, "\x1b[1m" + name + "\x1b[0m", true},
		{"disallowed without code", Disallowed, name, true},
		{"disallowed with code", Disallowed, "\x1b[1m" + name, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := regexp.MustCompile(`^` + Around(name, tt.tolerance) + `$`)
			assert.Equal(t, tt.match, re.MatchString(tt.input))
		})
	}
}

func TestBeforeAfterScopeAlternation(t *testing.T) {
	re := regexp.MustCompile(`^` + Before(`ls|mkdir`, Optional) + `$`)
	assert.True(t, re.MatchString("\x1b[0mls"))
	assert.True(t, re.MatchString("\x1b[0mmkdir"))

	re = regexp.MustCompile(`^` + After(`date|touch`, Required) + `$`)
	assert.True(t, re.MatchString("touch\x1b[0m"))
	assert.False(t, re.MatchString("date"))
}

func TestControlCodeCaptureIsolation(t *testing.T) {
	// Named groups spliced inside a tolerant pattern capture only the token.
	re, err := regexp.Compile(OptionalControlCode + `(?P<cmd>date|touch)` + OptionalControlCode)
	require.NoError(t, err)

	m := re.FindStringSubmatch("\x1b[1mtouch\x1b[0m")
	require.NotNil(t, m)
	assert.Equal(t, "touch", m[re.SubexpIndex("cmd")])
}

func TestToleranceString(t *testing.T) {
	assert.Equal(t, "disallowed", Disallowed.String())
	assert.Equal(t, "optional", Optional.String())
	assert.Equal(t, "required", Required.String())
	assert.Equal(t, "unknown", Tolerance(9).String())
}
