package app

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// PageID identifies each page in the application.
type PageID int

const (
	TestPage PageID = iota
	FlashPage
	MonitorPage
	HistoryPage
	SettingsPage
)

var PageOrder = []PageID{
	TestPage,
	FlashPage,
	MonitorPage,
	HistoryPage,
	SettingsPage,
}

// Page is the interface every page in the application implements.
type Page interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Page, tea.Cmd)
	View() string
	Name() string
	ShortHelp() []key.Binding
	SetSize(width, height int)
}

// InputCapturer is an optional interface for pages with text inputs.
// When InputCaptured returns true, the app forwards all keys directly
// to the page instead of processing shortcuts like q, ?, left, etc.
type InputCapturer interface {
	InputCaptured() bool
}

// Busy is an optional interface for pages running a long operation. The
// target pickers stay closed while any page is busy.
type Busy interface {
	Busy() bool
}

// PortSelectedMsg is broadcast to all pages when a serial port is selected.
type PortSelectedMsg struct {
	Port string
}

// BoardSelectedMsg is broadcast to all pages when a board is selected.
type BoardSelectedMsg struct {
	Board string
}
