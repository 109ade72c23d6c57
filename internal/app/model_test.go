package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/pshtest/internal/config"
	"github.com/buckleypaul/pshtest/internal/serial"
)

type stubPage struct {
	busy bool
	msgs []tea.Msg
}

func (p *stubPage) Init() tea.Cmd { return nil }
func (p *stubPage) Update(msg tea.Msg) (Page, tea.Cmd) {
	p.msgs = append(p.msgs, msg)
	return p, nil
}
func (p *stubPage) View() string { return "stub" }
func (p *stubPage) Name() string { return "Stub" }
func (p *stubPage) ShortHelp() []key.Binding { return nil }
func (p *stubPage) SetSize(int, int) {}
func (p *stubPage) Busy() bool { return p.busy }

func newTestModel(t *testing.T) (Model, *stubPage, *config.Config, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	cfg := config.Defaults()
	page := &stubPage{}
	m := New(map[PageID]Page{TestPage: page}, &cfg, root)
	m.listPorts = func() ([]serial.PortInfo, error) {
		return []serial.PortInfo{{Name: "/dev/ttyACM0", Product: "STLINK-V3"}}, nil
	}
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model), page, &cfg, root
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestBoardPickerSelectionPersists(t *testing.T) {
	m, page, cfg, root := newTestModel(t)

	updated, _ := m.Update(runeKey('b'))
	m = updated.(Model)
	if m.picker == nil || m.pickerKind != pickBoard {
		t.Fatal("expected board picker to open")
	}
	if len(m.picker.items) == 0 {
		t.Fatal("expected boards to be listed")
	}

	updated, cmd := m.Update(PickerSelectedMsg{Value: "host"})
	m = updated.(Model)
	if m.picker != nil {
		t.Fatal("expected picker to close")
	}
	if cfg.Board != "host" {
		t.Fatalf("expected Board=host, got %q", cfg.Board)
	}

	loaded, err := config.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Board != "host" {
		t.Fatalf("expected saved Board=host, got %q", loaded.Board)
	}

	if cmd == nil {
		t.Fatal("expected broadcast command")
	}
	m.Update(cmd())
	last := page.msgs[len(page.msgs)-1]
	if msg, ok := last.(BoardSelectedMsg); !ok || msg.Board != "host" {
		t.Fatalf("expected page to receive BoardSelectedMsg{host}, got %#v", last)
	}
}

func TestPortPickerLoadsPorts(t *testing.T) {
	m, page, cfg, root := newTestModel(t)

	updated, cmd := m.Update(runeKey('p'))
	m = updated.(Model)
	if m.picker == nil || m.pickerKind != pickPort {
		t.Fatal("expected port picker to open")
	}
	if cmd == nil {
		t.Fatal("expected port scan command")
	}
	updated, _ = m.Update(cmd())
	m = updated.(Model)
	if len(m.picker.items) != 1 || m.picker.items[0].Value != "/dev/ttyACM0" {
		t.Fatalf("unexpected picker items %+v", m.picker.items)
	}

	updated, cmd = m.Update(PickerSelectedMsg{Value: "/dev/ttyACM0"})
	m = updated.(Model)
	if cfg.SerialPort != "/dev/ttyACM0" {
		t.Fatalf("expected SerialPort=/dev/ttyACM0, got %q", cfg.SerialPort)
	}
	if _, err := os.Stat(filepath.Join(root, config.DirName, config.FileName)); err != nil {
		t.Fatalf("expected project config to be written: %v", err)
	}
	m.Update(cmd())
	last := page.msgs[len(page.msgs)-1]
	if msg, ok := last.(PortSelectedMsg); !ok || msg.Port != "/dev/ttyACM0" {
		t.Fatalf("expected page to receive PortSelectedMsg, got %#v", last)
	}
}

func TestPortPickerScanError(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m.listPorts = func() ([]serial.PortInfo, error) {
		return nil, errors.New("enumerator unavailable")
	}

	updated, cmd := m.Update(runeKey('p'))
	m = updated.(Model)
	updated, _ = m.Update(cmd())
	m = updated.(Model)
	if !strings.Contains(m.message, "enumerator unavailable") {
		t.Fatalf("unexpected message %q", m.message)
	}
}

func TestPickersBlockedWhileBusy(t *testing.T) {
	m, page, _, _ := newTestModel(t)
	page.busy = true

	for _, r := range []rune{'p', 'b'} {
		updated, cmd := m.Update(runeKey(r))
		m = updated.(Model)
		if m.picker != nil || cmd != nil {
			t.Fatalf("expected %q to be refused while busy", r)
		}
		if !strings.HasPrefix(m.message, "Busy") {
			t.Fatalf("unexpected message %q", m.message)
		}
	}
}

func TestPickerKeysIgnoredInContent(t *testing.T) {
	m, page, _, _ := newTestModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	updated, _ = m.Update(runeKey('b'))
	m = updated.(Model)
	if m.picker != nil {
		t.Fatal("expected picker to stay closed with content focused")
	}
	last := page.msgs[len(page.msgs)-1]
	if k, ok := last.(tea.KeyMsg); !ok || k.String() != "b" {
		t.Fatalf("expected key forwarded to page, got %#v", last)
	}
}

func TestPickerClosed(t *testing.T) {
	m, _, cfg, _ := newTestModel(t)
	before := *cfg

	updated, _ := m.Update(runeKey('b'))
	m = updated.(Model)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	updated, _ = m.Update(cmd())
	m = updated.(Model)
	if m.picker != nil {
		t.Fatal("expected picker to close on esc")
	}
	if cfg.Board != before.Board {
		t.Fatal("expected config unchanged")
	}
}
