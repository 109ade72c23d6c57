package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/buckleypaul/pshtest/internal/harness"
	"github.com/buckleypaul/pshtest/internal/store"
	"github.com/buckleypaul/pshtest/internal/ui"
)

var (
	nameColumn   = lipgloss.NewStyle().Width(14)
	statusColumn = lipgloss.NewStyle().Width(10)
	detailIndent = strings.Repeat(" ", 4)
)

func printEvent(w io.Writer, ev harness.Event) {
	switch ev.Stage {
	case harness.StageFlash:
		fmt.Fprintln(w, "Flashing...")
	case harness.StageOpen:
		fmt.Fprintln(w, "Opening console...")
	case harness.StageInit:
		fmt.Fprintln(w, "Waiting for psh prompt...")
	case harness.StageSuite:
		if ev.Result == nil {
			fmt.Fprintf(w, "▸ %s\n", ev.Suite)
		}
	}
}

func printReport(w io.Writer, rep *harness.Report) {
	if rep == nil {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.BoldStyle.Render(fmt.Sprintf("Run %s: %s on %s", rep.ID, rep.Board, rep.Port)))
	if o := rep.Flash; o != nil {
		fmt.Fprintf(w, "%sflash exit %d in %s\n", detailIndent, o.ExitCode, o.Duration.Round(time.Millisecond))
	}
	for _, s := range rep.Suites {
		fmt.Fprintf(w, "%s%s%s%s\n", detailIndent,
			statusColumn.Render(ui.StatusBadge(s.Status)),
			nameColumn.Render(s.Name),
			s.Duration.Round(time.Millisecond))
		if s.Message != "" {
			for _, line := range strings.Split(s.Message, "\n") {
				fmt.Fprintln(w, detailIndent+detailIndent+ui.DimStyle.Render(line))
			}
		}
	}

	passed, failed, errored := rep.Counts()
	fmt.Fprintf(w, "\n%d passed, %d failed, %d errored in %s\n", passed, failed, errored, rep.Duration.Round(time.Millisecond))
	if rep.Transcript != "" {
		fmt.Fprintf(w, "Transcript: %s\n", rep.Transcript)
	}
}

// printHistory lists the newest limit runs, each followed by its suites.
func printHistory(w io.Writer, runs []store.RunRecord, tests []store.TestRecord, limit int) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return
	}
	byRun := make(map[string][]store.TestRecord)
	for _, t := range tests {
		byRun[t.RunID] = append(byRun[t.RunID], t)
	}

	shown := 0
	for i := len(runs) - 1; i >= 0 && (limit <= 0 || shown < limit); i-- {
		r := runs[i]
		shown++
		status := "passed"
		if !r.Success() {
			status = "failed"
		}
		fmt.Fprintf(w, "%s %s  %s on %s  %d/%d/%d  %s\n",
			statusColumn.Render(ui.StatusBadge(status)),
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Board, r.Port, r.Passed, r.Failed, r.Errored, r.Duration)
		if r.Message != "" {
			fmt.Fprintln(w, detailIndent+ui.DimStyle.Render(firstLine(r.Message)))
		}
		for _, t := range byRun[r.ID] {
			fmt.Fprintf(w, "%s%s%s%s\n", detailIndent,
				statusColumn.Render(ui.StatusBadge(t.Status)),
				nameColumn.Render(t.Suite),
				t.Duration)
		}
	}
}

func firstLine(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}
