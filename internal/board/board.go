// Package board holds what the harness knows about each supported target:
// how to flash it and how fast it can take input.
package board

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/buckleypaul/pshtest/internal/console"
	"github.com/buckleypaul/pshtest/internal/flash"
	"github.com/buckleypaul/pshtest/internal/serial"
)

// Profile describes one board.
type Profile struct {
	Name        string
	Description string

	// Image is the firmware file name inside the boot directory. Boards
	// without an image are not flashed.
	Image       string
	Address     string
	Interface   string
	Target      string
	ResetConfig string

	// Metered boards drop input sent in bursts and get one character at a
	// time, CharDelay apart.
	Metered   bool
	CharDelay time.Duration
	Baud      int
}

var profiles = map[string]Profile{
	"stm32l4": {
		Name:        "stm32l4",
		Description: "STM32L4x6 over ST-LINK, flashed with OpenOCD",
		Image:       "phoenix-armv7m4-stm32l4x6.bin",
		Address:     "0x08000000",
		Interface:   "interface/stlink.cfg",
		Target:      "target/stm32l4x.cfg",
		ResetConfig: "reset_config srst_only srst_nogate connect_assert_srst",
		Metered:     true,
		CharDelay:   console.DefaultCharDelay,
		Baud:        serial.DefaultBaudRate,
	},
	"host": {
		Name:        "host",
		Description: "emulator or pty, never flashed",
		Baud:        serial.DefaultBaudRate,
	},
}

// Lookup returns the profile called name.
func Lookup(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown board %q (known: %v)", name, Names())
	}
	return p, nil
}

// Names lists the known boards in order.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Flashable reports whether the board has an image to program.
func (p Profile) Flashable() bool {
	return p.Image != ""
}

// Pacer returns how input is written to the board. charDelay overrides the
// profile delay when positive.
func (p Profile) Pacer(charDelay time.Duration) console.Pacer {
	if !p.Metered {
		return console.Direct{}
	}
	if charDelay <= 0 {
		charDelay = p.CharDelay
	}
	return console.Metered{Delay: charDelay}
}

// ImagePath returns where the image lives under bootDir.
func (p Profile) ImagePath(bootDir string) string {
	return filepath.Join(bootDir, p.Image)
}

// Flasher returns a flasher for the image under bootDir, or nil when the
// board is not flashable. openocd overrides the programmer binary.
func (p Profile) Flasher(bootDir, openocd string, logger *log.Logger) *flash.Flasher {
	if !p.Flashable() {
		return nil
	}
	return flash.New(flash.OpenOCD{
		Binary:      openocd,
		Interface:   p.Interface,
		Target:      p.Target,
		ResetConfig: p.ResetConfig,
		Image:       p.ImagePath(bootDir),
		Address:     p.Address,
	}, logger)
}
