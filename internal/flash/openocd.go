// Package flash writes firmware images to a target with an external
// programmer and decides from the programmer's diagnostics whether it
// worked.
package flash

import (
	"fmt"
	"strings"
)

// Defaults for OpenOCD.
const (
	DefaultOpenOCD = "openocd"

	// VerifiedMarker and ShutdownMarker must both appear on OpenOCD's
	// stderr for a flash to count as successful.
	VerifiedMarker = "** Verified OK **"
	ShutdownMarker = "shutdown command invoked"
)

// OpenOCD describes one "program" invocation.
type OpenOCD struct {
	Binary      string
	Interface   string
	Target      string
	ResetConfig string
	Image       string
	Address     string
}

// Args returns the OpenOCD arguments: the interface and target configs,
// the reset configuration and a program command that verifies, resets and
// exits.
func (o OpenOCD) Args() []string {
	var args []string
	if o.Interface != "" {
		args = append(args, "-f", o.Interface)
	}
	if o.Target != "" {
		args = append(args, "-f", o.Target)
	}
	if o.ResetConfig != "" {
		args = append(args, "-c", o.ResetConfig)
	}
	program := "program " + o.Image
	if o.Address != "" {
		program += " " + o.Address
	}
	args = append(args, "-c", program+" verify reset exit")
	return args
}

// Name returns the binary to run.
func (o OpenOCD) Name() string {
	if o.Binary == "" {
		return DefaultOpenOCD
	}
	return o.Binary
}

// String renders the command line the way a user would type it.
func (o OpenOCD) String() string {
	parts := []string{o.Name()}
	for _, a := range o.Args() {
		if strings.ContainsAny(a, " \t\"") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
