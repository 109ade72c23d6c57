package flash

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	out  Output
	err  error
	name string
	args []string
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) (Output, error) {
	r.name, r.args = name, args
	return r.out, r.err
}

const okStderr = "Open On-Chip Debugger 0.12.0\n** Programming Finished **\n** Verify Started **\n** Verified OK **\n** Resetting Target **\nshutdown command invoked\n"

func stm32Tool(image string) OpenOCD {
	return OpenOCD{
		Interface:   "interface/stlink.cfg",
		Target:      "target/stm32l4x.cfg",
		ResetConfig: "reset_config srst_only srst_nogate connect_assert_srst",
		Image:       image,
		Address:     "0x08000000",
	}
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "phoenix-armv7m4-stm32l4x6.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01}, 0o644))
	return path
}

func TestOpenOCDArgs(t *testing.T) {
	tool := stm32Tool("/boot/phoenix-armv7m4-stm32l4x6.bin")
	assert.Equal(t, []string{
		"-f", "interface/stlink.cfg",
		"-f", "target/stm32l4x.cfg",
		"-c", "reset_config srst_only srst_nogate connect_assert_srst",
		"-c", "program /boot/phoenix-armv7m4-stm32l4x6.bin 0x08000000 verify reset exit",
	}, tool.Args())
	assert.Equal(t, "openocd", tool.Name())
	assert.Equal(t,
		`openocd -f interface/stlink.cfg -f target/stm32l4x.cfg -c "reset_config srst_only srst_nogate connect_assert_srst" -c "program /boot/phoenix-armv7m4-stm32l4x6.bin 0x08000000 verify reset exit"`,
		tool.String())
}

func TestFlash(t *testing.T) {
	tests := []struct {
		name    string
		out     Output
		success bool
		missing []string
	}{
		{"verified", Output{Stderr: okStderr}, true, nil},
		{"markers on stdout only", Output{Stdout: okStderr}, false, []string{VerifiedMarker, ShutdownMarker}},
		{"verify failed", Output{Stderr: "** Verify Failed **\nshutdown command invoked\n"}, false, []string{VerifiedMarker}},
		{"no shutdown", Output{Stderr: "** Verified OK **\n"}, false, []string{ShutdownMarker}},
		{"non-zero exit", Output{Stderr: okStderr, ExitCode: 1}, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			image := writeImage(t)
			runner := &fakeRunner{out: tt.out}
			f := &Flasher{Tool: stm32Tool(image), Runner: runner}

			outcome, err := f.Flash(context.Background())
			require.NotNil(t, outcome)
			assert.Equal(t, tt.success, outcome.Success)
			assert.Equal(t, "openocd", runner.name)
			assert.Equal(t, tt.out.Stderr, outcome.Stderr)
			assert.Equal(t, tt.out.ExitCode, outcome.ExitCode)
			assert.Contains(t, outcome.Command, image)

			if tt.success {
				require.NoError(t, err)
				return
			}
			var fe *Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.missing, fe.Missing)
			assert.Same(t, outcome, fe.Outcome)
		})
	}
}

func TestFlashMissingImage(t *testing.T) {
	runner := &fakeRunner{out: Output{Stderr: okStderr}}
	f := &Flasher{Tool: stm32Tool(filepath.Join(t.TempDir(), "nope.bin")), Runner: runner}

	_, err := f.Flash(context.Background())
	assert.ErrorIs(t, err, ErrImageNotFound)
	assert.Empty(t, runner.name, "tool must not run without an image")
}

func TestFlashRunnerError(t *testing.T) {
	boom := errors.New("exec: \"openocd\": executable file not found in $PATH")
	f := &Flasher{Tool: stm32Tool(writeImage(t)), Runner: &fakeRunner{out: Output{ExitCode: -1}, err: boom}}

	outcome, err := f.Flash(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, outcome.Success)
	assert.Contains(t, err.Error(), "executable file not found")
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Outcome: &Outcome{ExitCode: 1}, Missing: []string{VerifiedMarker}}
	assert.Equal(t, `flashing failed: exit code 1, missing "** Verified OK **"`, err.Error())
}
