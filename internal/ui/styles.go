package ui

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Primary = lipgloss.Color("63")  // sidebar selection, focused borders
	Accent  = lipgloss.Color("205") // ST-LINK ports, transient notices
	Subtle  = lipgloss.Color("241")
	Surface = lipgloss.Color("236")
	Text    = lipgloss.Color("252")
	TextDim = lipgloss.Color("245")

	Passed  = lipgloss.Color("78")
	Failed  = lipgloss.Color("196")
	Errored = lipgloss.Color("214")
)

var (
	SidebarStyle = lipgloss.NewStyle().
			Width(20).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderRight(true).
			BorderTop(false).
			BorderBottom(false).
			BorderLeft(false).
			BorderForeground(Surface).
			Padding(1, 1)

	SidebarItemStyle = lipgloss.NewStyle().
				Foreground(TextDim).
				PaddingLeft(1)

	SidebarActiveStyle = lipgloss.NewStyle().
				Foreground(Primary).
				Bold(true).
				PaddingLeft(1)

	ContentStyle = lipgloss.NewStyle().
			Padding(1, 2)

	// Status and target bars
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextDim).
			Background(Surface).
			Padding(0, 1)

	StatusBarKeyStyle = lipgloss.NewStyle().
				Foreground(Text).
				Background(Surface).
				Bold(true)

	TitleStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			MarginBottom(1)

	BoldStyle   = lipgloss.NewStyle().Bold(true)
	DimStyle    = lipgloss.NewStyle().Foreground(TextDim)
	AccentStyle = lipgloss.NewStyle().Foreground(Accent)

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Padding(0, 1)

	// Suite, run and flash outcomes. Anything unlisted renders as errored.
	PassedStyle  = badgeStyle.Background(Passed)
	FailedStyle  = badgeStyle.Background(Failed)
	ErroredStyle = badgeStyle.Background(Errored)

	statusStyles = map[string]lipgloss.Style{
		"passed": PassedStyle,
		"ok":     PassedStyle,
		"failed": FailedStyle,
	}
)
