package serial

import (
	"io"
	"sync"
)

// DataReceivedMsg is sent when data arrives from the serial port.
type DataReceivedMsg struct {
	Data string
}

// Monitor is a free-running reader for interactive use. The test harness
// talks to the port through a console instead.
type Monitor struct {
	open     Opener
	port     Port
	portName string
	baudRate int
	mu       sync.Mutex
	running  bool
	dataCh   chan string
	done     chan struct{}
	captured []byte
}

// NewMonitor creates a monitor that opens ports with open, or Open when nil.
func NewMonitor(open Opener) *Monitor {
	if open == nil {
		open = Open
	}
	return &Monitor{
		open:   open,
		dataCh: make(chan string, 64),
		done:   make(chan struct{}),
	}
}

// Connect opens portName, closing any port that is already open.
func (m *Monitor) Connect(portName string, baudRate int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		m.disconnectLocked()
	}

	port, err := m.open(portName, baudRate)
	if err != nil {
		return err
	}

	m.port = port
	m.portName = portName
	m.baudRate = baudRate
	m.running = true
	m.done = make(chan struct{})
	m.captured = nil

	go m.readLoop(port, m.done)
	return nil
}

// Disconnect closes the serial port and returns everything read since
// Connect, for the serial log history.
func (m *Monitor) Disconnect() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectLocked()
	return string(m.captured)
}

func (m *Monitor) disconnectLocked() {
	if !m.running {
		return
	}
	m.running = false
	if m.port != nil {
		m.port.Close()
		m.port = nil
	}
	close(m.done)
}

// Write sends data to the serial port.
func (m *Monitor) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.port == nil {
		return io.ErrClosedPipe
	}
	_, err := m.port.Write(data)
	return err
}

// DataChan returns the channel that receives serial data.
func (m *Monitor) DataChan() <-chan string {
	return m.dataCh
}

// Connected returns whether the monitor is connected.
func (m *Monitor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// PortName returns the port of the current or last connection.
func (m *Monitor) PortName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portName
}

func (m *Monitor) readLoop(port Port, done chan struct{}) {
	buf := make([]byte, 1024)
	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := port.Read(buf)
		if n > 0 {
			m.mu.Lock()
			m.captured = append(m.captured, buf[:n]...)
			m.mu.Unlock()
			select {
			case m.dataCh <- string(buf[:n]):
			default:
				// Drop data if channel is full
			}
		}
		if err != nil {
			m.mu.Lock()
			if m.port == port {
				m.disconnectLocked()
			}
			m.mu.Unlock()
			return
		}
	}
}
