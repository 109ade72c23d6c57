package pages

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/pshtest/internal/app"
	"github.com/buckleypaul/pshtest/internal/board"
	"github.com/buckleypaul/pshtest/internal/config"
	"github.com/buckleypaul/pshtest/internal/scenarios"
	"github.com/buckleypaul/pshtest/internal/ui"
)

type settingField struct {
	label string
	key   string
}

var settingFields = []settingField{
	{"Board", "board"},
	{"Serial Port", "serial_port"},
	{"Serial Baud Rate", "serial_baud_rate"},
	{"Boot Directory", "boot_dir"},
	{"Command Timeout", "timeout"},
	{"Boot Timeout", "boot_timeout"},
	{"Char Delay", "char_delay"},
	{"Flash Before Run", "flash"},
	{"OpenOCD Binary", "openocd"},
	{"Suites", "suites"},
}

type SettingsPage struct {
	cfg           *config.Config
	root          string
	cursor        int
	editing       bool
	input         textinput.Model
	width, height int
	message       string
}

func NewSettingsPage(cfg *config.Config, root string) *SettingsPage {
	ti := textinput.New()
	ti.CharLimit = 128
	return &SettingsPage{
		cfg:   cfg,
		root:  root,
		input: ti,
	}
}

func (p *SettingsPage) Init() tea.Cmd { return nil }

func (p *SettingsPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if p.editing {
			switch msg.String() {
			case "enter":
				cmd := p.applyValue(p.input.Value())
				p.editing = false
				p.input.Blur()
				return p, cmd
			case "esc":
				p.editing = false
				p.input.Blur()
				return p, nil
			}
			var cmd tea.Cmd
			p.input, cmd = p.input.Update(msg)
			return p, cmd
		}

		switch msg.String() {
		case "down":
			if p.cursor < len(settingFields)-1 {
				p.cursor++
			}
		case "up":
			if p.cursor > 0 {
				p.cursor--
			}
		case "enter", "e":
			p.editing = true
			p.input.SetValue(p.getValue(p.cursor))
			p.input.Focus()
			return p, p.input.Focus()
		case "s":
			if err := config.Save(*p.cfg, p.root, false); err != nil {
				p.message = fmt.Sprintf("Error saving: %v", err)
			} else {
				p.message = "Settings saved to " + config.ProjectPath(p.root)
			}
		}
	}
	return p, nil
}

func (p *SettingsPage) View() string {
	var inner strings.Builder

	for i, f := range settingFields {
		cursor := "  "
		if i == p.cursor {
			cursor = ui.BoldStyle.Render("> ")
		}

		val := p.getValue(i)
		if val == "" {
			val = ui.DimStyle.Render("(not set)")
		}

		line := fmt.Sprintf("%s%-18s %s", cursor, f.label, val)
		inner.WriteString(line)
		inner.WriteString("\n")
	}

	if p.editing {
		inner.WriteString("\n")
		inner.WriteString(fmt.Sprintf("  Edit %s:\n", settingFields[p.cursor].label))
		inner.WriteString("  " + p.input.View())
		inner.WriteString("\n")
	}

	if p.message != "" {
		inner.WriteString("\n  " + p.message)
	}

	return ui.Panel("Settings", inner.String(), p.width, 0, false)
}

func (p *SettingsPage) Name() string { return "Settings" }

func (p *SettingsPage) ShortHelp() []key.Binding {
	if p.editing {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		}
	}
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit")),
		key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save to disk")),
	}
}

func (p *SettingsPage) InputCaptured() bool {
	return p.editing
}

func (p *SettingsPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}

func (p *SettingsPage) getValue(idx int) string {
	switch settingFields[idx].key {
	case "board":
		return p.cfg.Board
	case "serial_port":
		return p.cfg.SerialPort
	case "serial_baud_rate":
		return strconv.Itoa(p.cfg.SerialBaudRate)
	case "boot_dir":
		return p.cfg.BootDir
	case "timeout":
		return p.cfg.Timeout.String()
	case "boot_timeout":
		return p.cfg.BootTimeout.String()
	case "char_delay":
		return p.cfg.CharDelay.String()
	case "flash":
		return strconv.FormatBool(p.cfg.Flash)
	case "openocd":
		return p.cfg.OpenOCD
	case "suites":
		return strings.Join(p.cfg.Suites, ",")
	}
	return ""
}

// applyValue validates val for the field under the cursor. Invalid input
// leaves the config untouched and says why.
func (p *SettingsPage) applyValue(val string) tea.Cmd {
	field := settingFields[p.cursor]
	val = strings.TrimSpace(val)

	var broadcast tea.Msg
	switch field.key {
	case "board":
		if _, err := board.Lookup(val); err != nil {
			p.message = err.Error()
			return nil
		}
		p.cfg.Board = val
		broadcast = app.BoardSelectedMsg{Board: val}
	case "serial_port":
		p.cfg.SerialPort = val
		broadcast = app.PortSelectedMsg{Port: val}
	case "serial_baud_rate":
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			p.message = fmt.Sprintf("invalid baud rate %q", val)
			return nil
		}
		p.cfg.SerialBaudRate = n
	case "boot_dir":
		p.cfg.BootDir = val
	case "timeout", "boot_timeout", "char_delay":
		d, err := time.ParseDuration(val)
		if err != nil || d < 0 {
			p.message = fmt.Sprintf("invalid duration %q", val)
			return nil
		}
		switch field.key {
		case "timeout":
			p.cfg.Timeout = d
		case "boot_timeout":
			p.cfg.BootTimeout = d
		default:
			p.cfg.CharDelay = d
		}
	case "flash":
		b, err := strconv.ParseBool(val)
		if err != nil {
			p.message = fmt.Sprintf("invalid boolean %q", val)
			return nil
		}
		p.cfg.Flash = b
	case "openocd":
		p.cfg.OpenOCD = val
	case "suites":
		var names []string
		for _, n := range strings.Split(val, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		if _, err := scenarios.Resolve(names); err != nil {
			p.message = err.Error()
			return nil
		}
		p.cfg.Suites = names
	}
	p.message = fmt.Sprintf("%s updated", field.label)
	if broadcast == nil {
		return nil
	}
	return func() tea.Msg { return broadcast }
}
