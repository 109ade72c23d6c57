package app

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/buckleypaul/pshtest/internal/board"
	"github.com/buckleypaul/pshtest/internal/config"
	"github.com/buckleypaul/pshtest/internal/serial"
	"github.com/buckleypaul/pshtest/internal/ui"
)

type FocusArea int

const (
	FocusSidebar FocusArea = iota
	FocusContent
)

type pickerKind int

const (
	pickPort pickerKind = iota
	pickBoard
)

// PortsLoadedMsg carries the result of a serial port scan.
type PortsLoadedMsg struct {
	Ports []serial.PortInfo
	Err   error
}

type Model struct {
	pages      map[PageID]Page
	activePage PageID
	focus      FocusArea
	width      int
	height     int
	showHelp   bool
	picker     *Picker
	pickerKind pickerKind
	cfg        *config.Config
	root       string
	message    string

	listPorts func() ([]serial.PortInfo, error)
}

func New(pages map[PageID]Page, cfg *config.Config, root string) Model {
	return Model{
		pages:     pages,
		cfg:       cfg,
		root:      root,
		listPorts: serial.ListPorts,
	}
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, p := range m.pages {
		if cmd := p.Init(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		contentWidth, contentHeight := m.contentSize()
		for _, p := range m.pages {
			p.SetSize(contentWidth, contentHeight)
		}
		return m, nil

	case PortsLoadedMsg:
		if m.picker == nil || m.pickerKind != pickPort {
			return m, nil
		}
		if msg.Err != nil {
			m.message = fmt.Sprintf("Port scan failed: %v", msg.Err)
			return m, nil
		}
		var items []PickerItem
		for _, p := range msg.Ports {
			items = append(items, PickerItem{
				Label: p.Name,
				Value: p.Name,
				Desc:  p.Label(),
			})
		}
		m.picker.SetItems(items)
		return m, nil

	case PickerSelectedMsg:
		kind := m.pickerKind
		m.picker = nil
		var broadcast tea.Msg
		if kind == pickBoard {
			m.cfg.Board = msg.Value
			broadcast = BoardSelectedMsg{Board: msg.Value}
		} else {
			m.cfg.SerialPort = msg.Value
			broadcast = PortSelectedMsg{Port: msg.Value}
		}
		if m.root != "" {
			if err := config.Save(*m.cfg, m.root, false); err != nil {
				m.message = fmt.Sprintf("Error saving config: %v", err)
			}
		}
		return m, func() tea.Msg { return broadcast }

	case PickerClosedMsg:
		m.picker = nil
		return m, nil

	case tea.KeyMsg:
		// When picker is open, forward all keys to picker
		if m.picker != nil {
			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(msg)
			return m, cmd
		}

		// When a page has an active text input, forward all keys
		// directly to the page; only ctrl+c still quits.
		if m.focus == FocusContent {
			if ic, ok := m.pages[m.activePage].(InputCapturer); ok && ic.InputCaptured() {
				if msg.String() == "ctrl+c" {
					return m, tea.Quit
				}
				page := m.pages[m.activePage]
				newPage, cmd := page.Update(msg)
				m.pages[m.activePage] = newPage
				return m, cmd
			}
		}

		// Global key handling
		switch {
		case key.Matches(msg, GlobalKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, GlobalKeys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		case key.Matches(msg, GlobalKeys.ToggleFocus):
			if m.focus == FocusSidebar {
				m.focus = FocusContent
				return m, nil
			}
			// When content focused, fall through to page handler
		}

		// Sidebar-only shortcuts
		if m.focus == FocusSidebar {
			switch {
			case key.Matches(msg, GlobalKeys.PortPicker):
				cmd := m.openPicker(pickPort)
				return m, cmd
			case key.Matches(msg, GlobalKeys.BoardPicker):
				cmd := m.openPicker(pickBoard)
				return m, cmd
			}
		}

		// Handle arrow keys based on focus
		if m.focus == FocusSidebar {
			switch msg.String() {
			case "up":
				m.prevPage()
				return m, nil
			case "down":
				m.nextPage()
				return m, nil
			case "enter", "right":
				m.focus = FocusContent
				return m, nil
			}
		} else if m.focus == FocusContent {
			if msg.String() == "left" {
				m.focus = FocusSidebar
				return m, nil
			}
		}
	}

	// Key messages: only forward to active page when content is focused
	if _, isKey := msg.(tea.KeyMsg); isKey {
		if m.focus != FocusContent {
			return m, nil
		}
		page := m.pages[m.activePage]
		newPage, cmd := page.Update(msg)
		m.pages[m.activePage] = newPage
		return m, cmd
	}

	// Non-key messages (command results, broadcasts): forward to all pages
	// so responses reach the page that initiated the command
	var cmds []tea.Cmd
	for id, page := range m.pages {
		newPage, cmd := page.Update(msg)
		m.pages[id] = newPage
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

// openPicker shows the port or board picker. Nothing opens while a page is
// in the middle of a flash or a run.
func (m *Model) openPicker(kind pickerKind) tea.Cmd {
	for _, p := range m.pages {
		if b, ok := p.(Busy); ok && b.Busy() {
			m.message = "Busy; wait for the current operation to finish"
			return nil
		}
	}

	m.message = ""
	m.pickerKind = kind
	contentWidth, contentHeight := m.contentSize()
	if kind == pickBoard {
		m.picker = NewPicker("Select Board", "boards")
		m.picker.SetSize(contentWidth, contentHeight)
		var items []PickerItem
		for _, name := range board.Names() {
			p, _ := board.Lookup(name)
			items = append(items, PickerItem{Label: name, Value: name, Desc: p.Description})
		}
		m.picker.SetItems(items)
		return nil
	}

	m.picker = NewPicker("Select Port", "ports")
	m.picker.SetSize(contentWidth, contentHeight)
	list := m.listPorts
	return func() tea.Msg {
		ports, err := list()
		return PortsLoadedMsg{Ports: ports, Err: err}
	}
}

func (m Model) contentSize() (int, int) {
	return m.width - sidebarWidth, m.height - 2 - 1 // status bar + target bar
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	contentWidth, contentHeight := m.contentSize()

	page := m.pages[m.activePage]

	targetBar := renderTargetBar(m.cfg.Board, m.cfg.SerialPort, m.message, m.width, m.focus == FocusSidebar)
	sidebar := renderSidebar(PageOrder, m.activePage, m.pages, contentHeight, m.focus == FocusSidebar)
	body := page.View()
	if m.showHelp {
		body = renderHelp(page.ShortHelp()) + "\n\n" + body
	}
	content := ui.ContentStyle.
		Width(contentWidth).
		Height(contentHeight).
		Render(body)

	// Overlay picker on content area when open
	if m.picker != nil {
		m.picker.SetSize(contentWidth, contentHeight)
		content = lipgloss.Place(
			contentWidth, contentHeight,
			lipgloss.Center, lipgloss.Center,
			m.picker.View(),
		)
	}

	statusBar := renderStatusBar(page.ShortHelp(), m.width, m.focus)

	return renderLayout(targetBar, sidebar, content, statusBar)
}

func (m *Model) nextPage() {
	for i, id := range PageOrder {
		if id == m.activePage {
			m.activePage = PageOrder[(i+1)%len(PageOrder)]
			return
		}
	}
}

func (m *Model) prevPage() {
	for i, id := range PageOrder {
		if id == m.activePage {
			m.activePage = PageOrder[(i-1+len(PageOrder))%len(PageOrder)]
			return
		}
	}
}
