// Package serial opens UART devices and lists the ports attached to the host.
package serial

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// DefaultBaudRate is the psh console speed.
const DefaultBaudRate = 115200

// Port is an open serial device.
type Port = io.ReadWriteCloser

// Opener opens a port by name. Tests substitute an in-memory pipe.
type Opener func(name string, baud int) (Port, error)

// Open opens name in 8N1 mode. A baud of zero selects DefaultBaudRate.
func Open(name string, baud int) (Port, error) {
	if name == "" {
		return nil, fmt.Errorf("no serial port configured")
	}
	if baud <= 0 {
		baud = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("opening %s at %d baud: %w", name, baud, err)
	}
	// Drop whatever the target printed before we attached.
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("resetting %s input buffer: %w", name, err)
	}
	return port, nil
}
