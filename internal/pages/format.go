package pages

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wrap"

	"github.com/buckleypaul/pshtest/internal/ui"
)

func titleLine(text string) string {
	return ui.Title(text) + "\n"
}

func dim(text string) string {
	return ui.DimStyle.Render(text)
}

func statusLabel(status string) string {
	return ui.StatusBadge(status)
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func firstLine(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}

// terminalText makes raw device output safe to show in a viewport: escape
// sequences are dropped, CRLF becomes LF and long lines wrap at width.
func terminalText(raw string, width int) string {
	text := xansi.Strip(raw)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "")
	if width > 0 {
		text = wrap.String(text, width)
	}
	return text
}
