package pages

import (
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/pshtest/internal/app"
	"github.com/buckleypaul/pshtest/internal/config"
	"github.com/buckleypaul/pshtest/internal/serial"
	"github.com/buckleypaul/pshtest/internal/store"
)

func pipeOpener(device *net.Conn) serial.Opener {
	return func(name string, baud int) (serial.Port, error) {
		host, dev := net.Pipe()
		*device = dev
		return host, nil
	}
}

func newMonitorPage(t *testing.T, st *store.Store, open serial.Opener) *MonitorPage {
	t.Helper()
	cfg := config.Defaults()
	p := NewMonitorPage(st, &cfg, open)
	p.listPorts = func() ([]serial.PortInfo, error) {
		return []serial.PortInfo{{Name: "/dev/ttyACM0"}, {Name: "/dev/ttyACM1"}}, nil
	}
	return p
}

func TestMonitorPageAppliesConnectedStateFromMessage(t *testing.T) {
	p := newMonitorPage(t, nil, nil)

	page, cmd := p.Update(monitorConnectedMsg{
		portName: "tty.usbmodem123",
		baudRate: 115200,
	})
	updated := page.(*MonitorPage)

	if updated.state != monitorStateConnected {
		t.Fatalf("expected connected state, got %v", updated.state)
	}
	if !updated.input.Focused() {
		t.Fatal("expected input to be focused")
	}
	if !updated.InputCaptured() || !updated.Busy() {
		t.Fatal("expected connected page to capture input and report busy")
	}
	if !strings.Contains(updated.message, "Connected to tty.usbmodem123 @ 115200") {
		t.Fatalf("unexpected status message: %q", updated.message)
	}
	if cmd == nil {
		t.Fatal("expected follow-up command to be scheduled")
	}
}

func TestMonitorPageConnectErrorUpdatesMessage(t *testing.T) {
	p := newMonitorPage(t, nil, nil)

	page, _ := p.Update(monitorConnectedMsg{err: errors.New("permission denied")})
	updated := page.(*MonitorPage)

	if updated.state != monitorStatePortSelect {
		t.Fatalf("expected to remain in port select state, got %v", updated.state)
	}
	if !strings.Contains(updated.message, "Failed to connect: permission denied") {
		t.Fatalf("unexpected status message: %q", updated.message)
	}
}

func TestMonitorPageScanSelectsConfiguredPort(t *testing.T) {
	p := newMonitorPage(t, nil, nil)
	p.cfg.SerialPort = "/dev/ttyACM1"

	p.Update(p.Init()())
	if len(p.ports) != 2 || p.cursor != 1 {
		t.Fatalf("expected configured port under the cursor, ports=%v cursor=%d", p.ports, p.cursor)
	}

	p.Update(app.PortSelectedMsg{Port: "/dev/ttyACM0"})
	if p.cursor != 0 {
		t.Fatalf("expected picker selection to move cursor, got %d", p.cursor)
	}
}

func TestMonitorPageSessionIsLogged(t *testing.T) {
	var device net.Conn
	st := store.New(t.TempDir())
	p := newMonitorPage(t, st, pipeOpener(&device))
	p.Update(p.Init()())

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected connect command")
	}
	_, wait := p.Update(cmd())
	if p.state != monitorStateConnected {
		t.Fatalf("expected connected, message %q", p.message)
	}
	t.Cleanup(func() { device.Close() })

	go device.Write([]byte("(psh)% "))
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(p.raw.String(), "(psh)% ") {
		if time.Now().After(deadline) {
			t.Fatal("no data received")
		}
		_, wait = p.Update(wait())
	}

	sent := make(chan string, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := device.Read(buf)
		sent <- string(buf[:n])
	}()
	p.input.SetValue("help")
	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := <-sent; got != "help\n" {
		t.Fatalf("expected help line on the wire, got %q", got)
	}

	p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if p.state != monitorStatePortSelect {
		t.Fatal("expected esc to disconnect")
	}
	if !strings.Contains(p.message, "log saved to") {
		t.Fatalf("unexpected message %q", p.message)
	}

	logs, err := st.SerialLogs()
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].Port != "/dev/ttyACM0" || logs[0].BaudRate != config.DefaultBaudRate {
		t.Fatalf("unexpected serial logs %+v", logs)
	}
}

func TestMonitorPageEnterWithoutPorts(t *testing.T) {
	p := newMonitorPage(t, nil, nil)
	p.cfg.SerialPort = ""

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || p.message != "No serial port selected" {
		t.Fatalf("expected refusal, cmd=%v message=%q", cmd != nil, p.message)
	}
}
