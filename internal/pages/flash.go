package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/buckleypaul/pshtest/internal/app"
	"github.com/buckleypaul/pshtest/internal/board"
	"github.com/buckleypaul/pshtest/internal/config"
	"github.com/buckleypaul/pshtest/internal/flash"
	"github.com/buckleypaul/pshtest/internal/harness"
	"github.com/buckleypaul/pshtest/internal/store"
	"github.com/buckleypaul/pshtest/internal/ui"
)

// FlasherFactory builds the flasher for the configured board.
type FlasherFactory func(cfg config.Config) (harness.Flasher, board.Profile, error)

// BoardFlasher is the FlasherFactory used outside tests.
func BoardFlasher(logger *log.Logger) FlasherFactory {
	return func(cfg config.Config) (harness.Flasher, board.Profile, error) {
		f, b, err := harness.FlasherFor(cfg, logger)
		if err != nil {
			return nil, b, err
		}
		return f, b, nil
	}
}

type flashDoneMsg struct {
	board     board.Profile
	outcome   *flash.Outcome
	err       error
	record    store.FlashRecord
	recordErr error
}

type FlashPage struct {
	store      *store.Store
	cfg        *config.Config
	newFlasher FlasherFactory

	running  bool
	failed   bool
	output   strings.Builder
	viewport viewport.Model
	message  string

	width, height int
}

func NewFlashPage(s *store.Store, cfg *config.Config, newFlasher FlasherFactory) *FlashPage {
	return &FlashPage{
		store:      s,
		cfg:        cfg,
		newFlasher: newFlasher,
		viewport:   viewport.New(0, 0),
	}
}

func (p *FlashPage) Init() tea.Cmd { return nil }

func (p *FlashPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if p.running {
			var cmd tea.Cmd
			p.viewport, cmd = p.viewport.Update(msg)
			return p, cmd
		}
		switch msg.String() {
		case "f", "enter":
			return p, p.start()
		case "c":
			p.output.Reset()
			p.viewport.SetContent("")
			p.message = ""
			return p, nil
		}

	case app.BoardSelectedMsg:
		if !p.running {
			p.message = ""
		}
		return p, nil

	case flashDoneMsg:
		if !p.running {
			return p, nil
		}
		p.running = false
		p.finish(msg)
		return p, nil
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *FlashPage) start() tea.Cmd {
	f, b, err := p.newFlasher(*p.cfg)
	if err != nil {
		p.message = err.Error()
		p.failed = true
		return nil
	}

	p.running = true
	p.failed = false
	p.message = ""
	p.output.Reset()
	fmt.Fprintf(&p.output, "Flashing %s...\n", b.Name)
	p.viewport.SetContent(p.output.String())

	st := p.store
	return func() tea.Msg {
		start := time.Now()
		outcome, err := f.Flash(context.Background())
		msg := flashDoneMsg{board: b, outcome: outcome, err: err}
		msg.record = harness.FlashRecord(b, outcome, err, start)
		// Record before reporting so the history page sees it on refresh.
		if st != nil {
			msg.recordErr = st.AddFlash(msg.record)
		}
		return msg
	}
}

func (p *FlashPage) finish(msg flashDoneMsg) {
	if o := msg.outcome; o != nil {
		if o.Command != "" {
			fmt.Fprintf(&p.output, "$ %s\n", o.Command)
		}
		p.output.WriteString(o.Stdout)
		p.output.WriteString(o.Stderr)
	}

	p.failed = msg.err != nil
	if msg.err != nil {
		p.message = msg.err.Error()
		if errors.Is(msg.err, flash.ErrImageNotFound) {
			p.message += fmt.Sprintf(" (boot dir %q)", p.cfg.BootDir)
		}
	} else {
		p.message = fmt.Sprintf("Flashed %s in %s", msg.board.Name, msg.record.Duration)
	}
	fmt.Fprintf(&p.output, "\n%s\n", p.message)
	if msg.recordErr != nil {
		p.message += fmt.Sprintf(" (not recorded: %v)", msg.recordErr)
	}
	p.viewport.SetContent(p.output.String())
	p.viewport.GotoBottom()
}

func (p *FlashPage) View() string {
	var b strings.Builder
	b.WriteString(ui.Title("Flash"))
	b.WriteString("\n")

	if p.message != "" {
		badge := ui.SuccessBadge("ok")
		if p.failed {
			badge = ui.ErrorBadge("error")
		}
		b.WriteString("  " + badge + " " + p.message + "\n\n")
	}

	if !p.running && p.output.Len() == 0 {
		b.WriteString(ui.DimStyle.Render(fmt.Sprintf("  Press f or Enter to flash %s.", p.cfg.Board)))
		b.WriteString("\n")
	}

	if p.output.Len() > 0 {
		b.WriteString(p.viewport.View())
	}
	return b.String()
}

func (p *FlashPage) Name() string { return "Flash" }

func (p *FlashPage) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "flash")),
		key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
	}
}

func (p *FlashPage) Busy() bool { return p.running }

func (p *FlashPage) SetSize(w, h int) {
	p.width = w
	p.height = h
	vpHeight := h - 6
	if vpHeight < 3 {
		vpHeight = 3
	}
	p.viewport.Width = w - 4
	p.viewport.Height = vpHeight
}
