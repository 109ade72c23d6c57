package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/buckleypaul/pshtest/internal/ui"
)

const sidebarWidth = 22 // 20 content + 2 border/padding

func renderTargetBar(board, port, message string, width int, sidebarFocused bool) string {
	if board == "" {
		board = "(none)"
	}
	if port == "" {
		port = "(none)"
	}
	content := fmt.Sprintf("Board: %s  Port: %s", board, port)
	hint := ""
	if sidebarFocused {
		hint = ui.DimStyle.Render("  [b] board  [p] port")
	}
	if message != "" {
		hint += "  " + ui.AccentStyle.Render(message)
	}
	return ui.StatusBarStyle.Width(width).Render(content + hint)
}

func renderSidebar(pages []PageID, active PageID, pageMap map[PageID]Page, height int, focused bool) string {
	var b strings.Builder
	title := ui.TitleStyle.Render("pshtest")
	if focused {
		title = ui.BoldStyle.Render("pshtest [FOCUSED]")
	}
	b.WriteString(title)
	b.WriteString("\n\n")

	for _, id := range pages {
		p := pageMap[id]
		if id == active {
			b.WriteString(ui.SidebarActiveStyle.Render("▸ " + p.Name()))
		} else {
			b.WriteString(ui.SidebarItemStyle.Render("  " + p.Name()))
		}
		b.WriteString("\n")
	}

	style := ui.SidebarStyle.Height(height)
	if focused {
		style = style.BorderForeground(ui.Primary)
	}
	return style.Render(b.String())
}

func renderStatusBar(pageHelp []key.Binding, width int, focus FocusArea) string {
	var parts []string

	// Focus-specific instructions
	if focus == FocusSidebar {
		parts = append(parts,
			ui.StatusKey("↑/↓", "navigate"),
			ui.StatusKey("enter", "select"),
			ui.StatusKey("b", "board"),
			ui.StatusKey("p", "port"),
		)
	} else {
		// Page-specific keys when content is focused
		for _, kb := range pageHelp {
			if kb.Enabled() {
				parts = append(parts, ui.StatusKey(kb.Help().Key, kb.Help().Desc))
			}
		}
	}

	// Always add global keys
	parts = append(parts,
		ui.StatusKey("tab", "focus"),
		ui.StatusKey("?", "help"),
		ui.StatusKey("q", "quit"),
	)

	line := strings.Join(parts, "  ")
	return ui.StatusBarStyle.Width(width).Render(line)
}

func renderLayout(projectBar, sidebar, content, statusBar string) string {
	main := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content)
	return lipgloss.JoinVertical(lipgloss.Left, projectBar, main, statusBar)
}

func renderHelp(pageHelp []key.Binding) string {
	bindings := append([]key.Binding{
		GlobalKeys.ToggleFocus,
		GlobalKeys.BoardPicker,
		GlobalKeys.PortPicker,
		GlobalKeys.Help,
		GlobalKeys.Quit,
	}, pageHelp...)

	var lines []string
	for _, kb := range bindings {
		if kb.Enabled() {
			lines = append(lines, fmt.Sprintf("%-8s %s", kb.Help().Key, kb.Help().Desc))
		}
	}
	return ui.Panel("Keys", strings.Join(lines, "\n"), 40, 0, true)
}
