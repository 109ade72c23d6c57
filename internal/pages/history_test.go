package pages

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/pshtest/internal/store"
)

func TestHistoryTabSwitching(t *testing.T) {
	p := NewHistoryPage(store.New(t.TempDir()))

	if p.activeTab != tabRuns {
		t.Fatalf("expected initial tab=tabRuns, got %d", p.activeTab)
	}

	want := []historyTab{tabTests, tabFlashes, tabSerialLogs, tabRuns}
	for _, tab := range want {
		p.Update(tea.KeyMsg{Type: tea.KeyRight})
		if p.activeTab != tab {
			t.Fatalf("expected tab %d, got %d", tab, p.activeTab)
		}
	}

	p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("h")})
	if p.activeTab != tabSerialLogs {
		t.Fatalf("expected h to wrap back to tabSerialLogs, got %d", p.activeTab)
	}
	p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	if p.activeTab != tabRuns {
		t.Fatalf("expected l to wrap forward to tabRuns, got %d", p.activeTab)
	}
}

func TestHistoryEmptyStore(t *testing.T) {
	p := NewHistoryPage(store.New(t.TempDir()))
	p.SetSize(100, 30)
	p.refresh()

	if !strings.Contains(p.View(), "No records yet.") {
		t.Fatalf("expected empty notice, got:\n%s", p.View())
	}
}

func TestHistoryListsNewestFirst(t *testing.T) {
	st := store.New(t.TempDir())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second"} {
		if err := st.AddRun(store.RunRecord{
			ID:        id,
			Board:     "host",
			Port:      "/dev/pts/" + id,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Passed:    2,
		}); err != nil {
			t.Fatal(err)
		}
	}

	p := NewHistoryPage(st)
	p.SetSize(120, 30)
	view := p.View()

	second := strings.Index(view, "/dev/pts/second")
	first := strings.Index(view, "/dev/pts/first")
	if first < 0 || second < 0 || second > first {
		t.Fatalf("expected newest run first:\n%s", view)
	}
}

func TestHistoryRefreshesAfterRun(t *testing.T) {
	st := store.New(t.TempDir())
	p := NewHistoryPage(st)
	p.SetSize(120, 30)
	p.activeTab = tabTests
	p.refresh()

	if err := st.AddTest(store.TestRecord{
		RunID:     "20260301-120000",
		Board:     "host",
		Suite:     "ls-rootfs",
		Timestamp: time.Now(),
		Status:    "failed",
		Message:   "ls -1S listed files out of order\nmore detail",
	}); err != nil {
		t.Fatal(err)
	}

	p.Update(testDoneMsg{})
	view := p.View()
	if !strings.Contains(view, "ls-rootfs") || !strings.Contains(view, "listed files out of order") {
		t.Fatalf("expected new suite record after refresh:\n%s", view)
	}
	if strings.Contains(view, "more detail") {
		t.Fatalf("expected only the first line of the message:\n%s", view)
	}
}
