package pages

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/pshtest/internal/app"
	"github.com/buckleypaul/pshtest/internal/config"
	"github.com/buckleypaul/pshtest/internal/serial"
	"github.com/buckleypaul/pshtest/internal/store"
	"github.com/buckleypaul/pshtest/internal/ui"
)

type monitorState int

const (
	monitorStatePortSelect monitorState = iota
	monitorStateConnected
)

const (
	monitorPollInterval = 250 * time.Millisecond
	maxMonitorBytes     = 256 * 1024
)

type monitorPortsMsg struct {
	ports []serial.PortInfo
	err   error
}

type monitorConnectedMsg struct {
	portName string
	baudRate int
	err      error
}

// monitorPollMsg is delivered when no data arrived for a poll interval, so
// the page can notice a port that went away.
type monitorPollMsg struct{}

type MonitorPage struct {
	store     *store.Store
	cfg       *config.Config
	monitor   *serial.Monitor
	listPorts func() ([]serial.PortInfo, error)

	state     monitorState
	ports     []serial.PortInfo
	cursor    int
	input     textinput.Model
	viewport  viewport.Model
	raw       strings.Builder
	started   time.Time
	message   string
	connected string

	width, height int
}

func NewMonitorPage(s *store.Store, cfg *config.Config, open serial.Opener) *MonitorPage {
	ti := textinput.New()
	ti.Placeholder = "command to send"
	ti.Prompt = "> "
	ti.CharLimit = 256

	return &MonitorPage{
		store:     s,
		cfg:       cfg,
		monitor:   serial.NewMonitor(open),
		listPorts: serial.ListPorts,
		input:     ti,
		viewport:  viewport.New(0, 0),
	}
}

func (p *MonitorPage) Init() tea.Cmd {
	return p.scan()
}

func (p *MonitorPage) scan() tea.Cmd {
	list := p.listPorts
	return func() tea.Msg {
		ports, err := list()
		return monitorPortsMsg{ports: ports, err: err}
	}
}

func (p *MonitorPage) connect(name string) tea.Cmd {
	baud := p.cfg.SerialBaudRate
	mon := p.monitor
	return func() tea.Msg {
		err := mon.Connect(name, baud)
		return monitorConnectedMsg{portName: name, baudRate: baud, err: err}
	}
}

func (p *MonitorPage) waitForData() tea.Cmd {
	ch := p.monitor.DataChan()
	return func() tea.Msg {
		select {
		case data := <-ch:
			return serial.DataReceivedMsg{Data: data}
		case <-time.After(monitorPollInterval):
			return monitorPollMsg{}
		}
	}
}

func (p *MonitorPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case monitorPortsMsg:
		if msg.err != nil {
			p.message = fmt.Sprintf("Port scan failed: %v", msg.err)
			return p, nil
		}
		p.ports = msg.ports
		p.cursor = 0
		for i, port := range p.ports {
			if port.Name == p.cfg.SerialPort {
				p.cursor = i
			}
		}
		return p, nil

	case app.PortSelectedMsg:
		for i, port := range p.ports {
			if port.Name == msg.Port {
				p.cursor = i
			}
		}
		return p, nil

	case monitorConnectedMsg:
		if msg.err != nil {
			p.state = monitorStatePortSelect
			p.message = fmt.Sprintf("Failed to connect: %v", msg.err)
			return p, nil
		}
		p.state = monitorStateConnected
		p.connected = msg.portName
		p.started = time.Now()
		p.raw.Reset()
		p.viewport.SetContent("")
		p.message = fmt.Sprintf("Connected to %s @ %d", msg.portName, msg.baudRate)
		p.input.Focus()
		return p, p.waitForData()

	case serial.DataReceivedMsg:
		if p.state != monitorStateConnected {
			return p, nil
		}
		p.append(msg.Data)
		return p, p.waitForData()

	case monitorPollMsg:
		if p.state != monitorStateConnected {
			return p, nil
		}
		if !p.monitor.Connected() {
			p.finishSession("Port closed")
			return p, nil
		}
		return p, p.waitForData()

	case tea.KeyMsg:
		if p.state == monitorStateConnected {
			return p.handleConnectedKey(msg)
		}
		return p.handlePortSelectKey(msg)
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *MonitorPage) handlePortSelectKey(msg tea.KeyMsg) (app.Page, tea.Cmd) {
	switch msg.String() {
	case "up":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down":
		if p.cursor < len(p.ports)-1 {
			p.cursor++
		}
	case "r":
		p.message = ""
		return p, p.scan()
	case "enter":
		name := p.cfg.SerialPort
		if len(p.ports) > 0 {
			name = p.ports[p.cursor].Name
		}
		if name == "" {
			p.message = "No serial port selected"
			return p, nil
		}
		p.message = fmt.Sprintf("Connecting to %s...", name)
		return p, p.connect(name)
	}
	return p, nil
}

func (p *MonitorPage) handleConnectedKey(msg tea.KeyMsg) (app.Page, tea.Cmd) {
	switch msg.String() {
	case "esc":
		p.finishSession("Disconnected")
		return p, nil
	case "enter":
		line := p.input.Value()
		p.input.SetValue("")
		if err := p.monitor.Write([]byte(line + "\n")); err != nil {
			p.message = fmt.Sprintf("Write failed: %v", err)
		}
		return p, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		p.viewport, cmd = p.viewport.Update(msg)
		return p, cmd
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p *MonitorPage) append(data string) {
	p.raw.WriteString(data)
	if p.raw.Len() > maxMonitorBytes {
		tail := p.raw.String()[p.raw.Len()-maxMonitorBytes/2:]
		p.raw.Reset()
		p.raw.WriteString(tail)
	}
	p.viewport.SetContent(terminalText(p.raw.String(), p.viewport.Width))
	p.viewport.GotoBottom()
}

// finishSession closes the port and saves what was captured as a serial
// log.
func (p *MonitorPage) finishSession(reason string) {
	captured := p.monitor.Disconnect()
	p.state = monitorStatePortSelect
	p.input.Blur()
	p.message = reason

	if p.store == nil || captured == "" {
		return
	}
	path, err := p.store.WriteLog("serial", []byte(captured))
	if err != nil {
		p.message = fmt.Sprintf("%s; log not saved: %v", reason, err)
		return
	}
	if err := p.store.AddSerialLog(store.SerialLog{
		Port:      p.connected,
		BaudRate:  p.cfg.SerialBaudRate,
		Timestamp: p.started,
		LogFile:   path,
	}); err != nil {
		p.message = fmt.Sprintf("%s; log not recorded: %v", reason, err)
		return
	}
	p.message = fmt.Sprintf("%s; log saved to %s", reason, path)
}

func (p *MonitorPage) View() string {
	var b strings.Builder
	b.WriteString(titleLine("Monitor"))
	if p.message != "" {
		b.WriteString("  " + p.message + "\n\n")
	}

	if p.state == monitorStateConnected {
		b.WriteString(p.viewport.View())
		b.WriteString("\n")
		b.WriteString(p.input.View())
		return b.String()
	}

	if len(p.ports) == 0 {
		b.WriteString(dim("  No serial ports found. Press r to rescan."))
		return b.String()
	}
	for i, port := range p.ports {
		line := "  " + port.Label()
		if port.IsSTLink() {
			line += " " + ui.AccentStyle.Render("(ST-LINK)")
		}
		if i == p.cursor {
			line = ui.BoldStyle.Render("> ") + port.Label()
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (p *MonitorPage) Name() string { return "Monitor" }

func (p *MonitorPage) ShortHelp() []key.Binding {
	if p.state == monitorStateConnected {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "disconnect")),
			key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll")),
		}
	}
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connect")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
	}
}

func (p *MonitorPage) InputCaptured() bool {
	return p.state == monitorStateConnected
}

// Busy keeps the pickers closed while the port is held open here.
func (p *MonitorPage) Busy() bool {
	return p.state == monitorStateConnected
}

func (p *MonitorPage) SetSize(w, h int) {
	p.width = w
	p.height = h
	vpHeight := h - 8
	if vpHeight < 3 {
		vpHeight = 3
	}
	p.viewport.Width = w - 4
	p.viewport.Height = vpHeight
	p.input.Width = w - 8
}
