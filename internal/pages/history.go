package pages

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/buckleypaul/pshtest/internal/app"
	"github.com/buckleypaul/pshtest/internal/store"
	"github.com/buckleypaul/pshtest/internal/ui"
)

type historyTab int

const (
	tabRuns historyTab = iota
	tabTests
	tabFlashes
	tabSerialLogs
	tabCount
)

var tabNames = [tabCount]string{"Runs", "Suites", "Flashes", "Serial Logs"}

const timeFormat = "2006-01-02 15:04:05"

type HistoryPage struct {
	store     *store.Store
	activeTab historyTab
	viewport  viewport.Model
	err       error

	width, height int
}

func NewHistoryPage(s *store.Store) *HistoryPage {
	p := &HistoryPage{
		store:    s,
		viewport: viewport.New(0, 0),
	}
	p.refresh()
	return p
}

func (p *HistoryPage) Init() tea.Cmd { return nil }

func (p *HistoryPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "right", "l":
			p.activeTab = (p.activeTab + 1) % tabCount
			p.refresh()
			return p, nil
		case "h":
			p.activeTab = (p.activeTab + tabCount - 1) % tabCount
			p.refresh()
			return p, nil
		case "r":
			p.refresh()
			return p, nil
		}

	case flashDoneMsg, testDoneMsg:
		// A run or flash just finished on another page.
		p.refresh()
		return p, nil
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *HistoryPage) refresh() {
	p.err = nil
	if p.store == nil {
		p.viewport.SetContent("")
		return
	}

	var rows []string
	var err error
	switch p.activeTab {
	case tabRuns:
		rows, err = p.runRows()
	case tabTests:
		rows, err = p.testRows()
	case tabFlashes:
		rows, err = p.flashRows()
	case tabSerialLogs:
		rows, err = p.serialRows()
	}
	if err != nil {
		p.err = err
	}
	if len(rows) == 0 {
		rows = []string{dim("  No records yet.")}
	}
	p.viewport.SetContent(strings.Join(rows, "\n"))
	p.viewport.GotoTop()
}

func (p *HistoryPage) runRows() ([]string, error) {
	runs, err := p.store.Runs()
	if err != nil {
		return nil, err
	}
	var rows []string
	for i := len(runs) - 1; i >= 0; i-- {
		r := runs[i]
		status := "passed"
		if !r.Success() {
			status = "failed"
		}
		rows = append(rows, fmt.Sprintf("%s  %s  %-8s %-14s %d/%d/%d  %s",
			r.Timestamp.Format(timeFormat), statusLabel(status), r.Board, r.Port,
			r.Passed, r.Failed, r.Errored, r.Duration))
		if r.Message != "" {
			rows = append(rows, dim("    "+firstLine(r.Message)))
		}
	}
	return rows, nil
}

func (p *HistoryPage) testRows() ([]string, error) {
	tests, err := p.store.Tests()
	if err != nil {
		return nil, err
	}
	var rows []string
	for i := len(tests) - 1; i >= 0; i-- {
		t := tests[i]
		rows = append(rows, fmt.Sprintf("%s  %s  %-10s %-8s %s",
			t.Timestamp.Format(timeFormat), statusLabel(t.Status), t.Suite, t.Board, t.Duration))
		if t.Message != "" {
			rows = append(rows, dim("    "+firstLine(t.Message)))
		}
	}
	return rows, nil
}

func (p *HistoryPage) flashRows() ([]string, error) {
	flashes, err := p.store.Flashes()
	if err != nil {
		return nil, err
	}
	var rows []string
	for i := len(flashes) - 1; i >= 0; i-- {
		f := flashes[i]
		status := "passed"
		if !f.Success {
			status = "failed"
		}
		rows = append(rows, fmt.Sprintf("%s  %s  %-8s %s  exit %d  %s",
			f.Timestamp.Format(timeFormat), statusLabel(status), f.Board, f.Image, f.ExitCode, f.Duration))
		if f.Message != "" {
			rows = append(rows, dim("    "+firstLine(f.Message)))
		}
	}
	return rows, nil
}

func (p *HistoryPage) serialRows() ([]string, error) {
	logs, err := p.store.SerialLogs()
	if err != nil {
		return nil, err
	}
	var rows []string
	for i := len(logs) - 1; i >= 0; i-- {
		l := logs[i]
		rows = append(rows, fmt.Sprintf("%s  %s @ %d  %s",
			l.Timestamp.Format(timeFormat), l.Port, l.BaudRate, l.LogFile))
	}
	return rows, nil
}

func (p *HistoryPage) View() string {
	var b strings.Builder
	b.WriteString(titleLine("History"))

	var tabs []string
	for i, name := range tabNames {
		if historyTab(i) == p.activeTab {
			tabs = append(tabs, ui.SidebarActiveStyle.Render("["+name+"]"))
		} else {
			tabs = append(tabs, ui.SidebarItemStyle.Render(" "+name+" "))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")

	if p.err != nil {
		b.WriteString(ui.ErrorBadge("error") + " " + p.err.Error() + "\n\n")
	}
	b.WriteString(p.viewport.View())
	return b.String()
}

func (p *HistoryPage) Name() string { return "History" }

func (p *HistoryPage) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("h", "l"), key.WithHelp("h/l", "tab")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	}
}

func (p *HistoryPage) SetSize(w, h int) {
	p.width = w
	p.height = h
	vpHeight := h - 6
	if vpHeight < 3 {
		vpHeight = 3
	}
	p.viewport.Width = w - 4
	p.viewport.Height = vpHeight
}
