package harness

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/buckleypaul/pshtest/internal/board"
	"github.com/buckleypaul/pshtest/internal/config"
	"github.com/buckleypaul/pshtest/internal/flash"
	"github.com/buckleypaul/pshtest/internal/psh"
	"github.com/buckleypaul/pshtest/internal/scenarios"
	"github.com/buckleypaul/pshtest/internal/store"
)

// FromConfig builds a Runner for the board, port and suites named in cfg.
// The board is flashed first when cfg.Flash is set and the board has an
// image.
func FromConfig(cfg config.Config, st *store.Store, logger *log.Logger) (*Runner, error) {
	b, err := board.Lookup(cfg.Board)
	if err != nil {
		return nil, err
	}
	suites, err := scenarios.Resolve(cfg.Suites)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		Board:  b,
		Port:   cfg.SerialPort,
		Baud:   cfg.SerialBaudRate,
		Suites: suites,
		Session: []psh.Option{
			psh.WithTimeout(cfg.Timeout),
			psh.WithBootTimeout(cfg.BootTimeout),
		},
		CharDelay: cfg.CharDelay,
		Store:     st,
		Logger:    logger,
	}
	if cfg.Flash {
		if f := b.Flasher(cfg.BootDir, cfg.OpenOCD, logger); f != nil {
			r.Flasher = f
		}
	}
	return r, nil
}

// FlasherFor returns the flasher for the configured board. It fails for
// boards that have no image.
func FlasherFor(cfg config.Config, logger *log.Logger) (*flash.Flasher, board.Profile, error) {
	b, err := board.Lookup(cfg.Board)
	if err != nil {
		return nil, b, err
	}
	f := b.Flasher(cfg.BootDir, cfg.OpenOCD, logger)
	if f == nil {
		return nil, b, fmt.Errorf("board %s has no image to flash", b.Name)
	}
	return f, b, nil
}
