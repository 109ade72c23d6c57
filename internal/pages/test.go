package pages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/buckleypaul/pshtest/internal/app"
	"github.com/buckleypaul/pshtest/internal/config"
	"github.com/buckleypaul/pshtest/internal/harness"
	"github.com/buckleypaul/pshtest/internal/scenarios"
	"github.com/buckleypaul/pshtest/internal/store"
)

// RunnerFactory builds a harness run from the current configuration.
type RunnerFactory func(cfg config.Config) (*harness.Runner, error)

// ConfiguredRunner is the RunnerFactory used outside tests. It builds the
// run the same way `pshtest run` does.
func ConfiguredRunner(st *store.Store, logger *log.Logger) RunnerFactory {
	return func(cfg config.Config) (*harness.Runner, error) {
		return harness.FromConfig(cfg, st, logger)
	}
}

type testEventMsg struct {
	event harness.Event
}

type testDoneMsg struct {
	report *harness.Report
	err    error
}

type TestPage struct {
	cfg       *config.Config
	newRunner RunnerFactory

	running  bool
	cancel   context.CancelFunc
	msgs     chan tea.Msg
	report   *harness.Report
	output   strings.Builder
	viewport viewport.Model
	message  string

	width, height int
}

func NewTestPage(cfg *config.Config, newRunner RunnerFactory) *TestPage {
	return &TestPage{
		cfg:       cfg,
		newRunner: newRunner,
		viewport:  viewport.New(0, 0),
	}
}

func (p *TestPage) Init() tea.Cmd { return nil }

func (p *TestPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if p.running {
			if msg.String() == "x" && p.cancel != nil {
				p.cancel()
				p.message = "Cancelling..."
				return p, nil
			}
			var cmd tea.Cmd
			p.viewport, cmd = p.viewport.Update(msg)
			return p, cmd
		}

		switch msg.String() {
		case "t", "enter":
			return p, p.start()
		case "c":
			p.output.Reset()
			p.viewport.SetContent("")
			p.message = ""
			p.report = nil
			return p, nil
		}

	case testEventMsg:
		p.appendEvent(msg.event)
		return p, waitForMsg(p.msgs)

	case testDoneMsg:
		if !p.running {
			return p, nil
		}
		p.running = false
		p.cancel = nil
		p.msgs = nil
		p.finish(msg)
		return p, nil
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *TestPage) start() tea.Cmd {
	r, err := p.newRunner(*p.cfg)
	if err != nil {
		p.message = err.Error()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan tea.Msg, 16)
	r.Notify = func(ev harness.Event) { msgs <- testEventMsg{event: ev} }

	p.running = true
	p.cancel = cancel
	p.msgs = msgs
	p.report = nil
	p.message = ""
	p.output.Reset()
	fmt.Fprintf(&p.output, "Running %s on %s (%s)\n\n", strings.Join(suiteNames(r.Suites), ", "), r.Board.Name, r.Port)
	p.viewport.SetContent(p.output.String())

	// Progress and the final report share one channel so the report
	// always arrives after the last event.
	run := func() tea.Msg {
		defer cancel()
		rep, err := r.Run(ctx)
		msgs <- testDoneMsg{report: rep, err: err}
		close(msgs)
		return nil
	}
	return tea.Batch(run, waitForMsg(msgs))
}

// waitForMsg delivers the next message from a running operation.
func waitForMsg(msgs <-chan tea.Msg) tea.Cmd {
	if msgs == nil {
		return nil
	}
	return func() tea.Msg {
		return <-msgs
	}
}

func (p *TestPage) appendEvent(ev harness.Event) {
	switch {
	case ev.Result != nil:
		fmt.Fprintf(&p.output, "  %s %s (%s)\n", statusLabel(ev.Result.Status), ev.Result.Name, ev.Result.Duration.Round(time.Millisecond))
		if ev.Result.Message != "" {
			p.output.WriteString(indent(ev.Result.Message, "      ") + "\n")
		}
	case ev.Stage == harness.StageSuite:
		fmt.Fprintf(&p.output, "▸ %s\n", ev.Suite)
	case ev.Stage == harness.StageFlash:
		p.output.WriteString("Flashing...\n")
	case ev.Stage == harness.StageOpen:
		p.output.WriteString("Opening console...\n")
	case ev.Stage == harness.StageInit:
		p.output.WriteString("Waiting for psh prompt...\n")
	}
	p.viewport.SetContent(p.output.String())
	p.viewport.GotoBottom()
}

func (p *TestPage) finish(msg testDoneMsg) {
	p.report = msg.report
	passed, failed, errored := 0, 0, 0
	if msg.report != nil {
		passed, failed, errored = msg.report.Counts()
	}

	switch {
	case msg.err != nil:
		p.message = "Run aborted: " + firstLine(msg.err.Error())
	case failed+errored == 0:
		p.message = fmt.Sprintf("All %d suites passed", passed)
	default:
		p.message = fmt.Sprintf("%d passed, %d failed, %d errored", passed, failed, errored)
	}
	if msg.report != nil {
		fmt.Fprintf(&p.output, "\n%s in %s\n", p.message, msg.report.Duration.Round(time.Millisecond))
		if msg.report.Transcript != "" {
			fmt.Fprintf(&p.output, "Transcript: %s\n", msg.report.Transcript)
		}
	}
	p.viewport.SetContent(p.output.String())
	p.viewport.GotoBottom()
}

func (p *TestPage) View() string {
	var b strings.Builder
	b.WriteString(titleLine("Test"))

	if p.message != "" {
		b.WriteString("  " + p.message + "\n\n")
	}

	if !p.running && p.output.Len() == 0 {
		b.WriteString(dim(fmt.Sprintf("  Press t or Enter to run %s on %s.", suitesLabel(p.cfg.Suites), p.cfg.Board)))
		b.WriteString("\n")
	}

	if p.output.Len() > 0 {
		b.WriteString(p.viewport.View())
	}
	return b.String()
}

func (p *TestPage) Name() string { return "Test" }

func (p *TestPage) ShortHelp() []key.Binding {
	if p.running {
		return []key.Binding{
			key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel")),
		}
	}
	return []key.Binding{
		key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "run suites")),
		key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
	}
}

func (p *TestPage) Busy() bool { return p.running }

func (p *TestPage) SetSize(w, h int) {
	p.width = w
	p.height = h
	vpHeight := h - 6
	if vpHeight < 3 {
		vpHeight = 3
	}
	p.viewport.Width = w - 4
	p.viewport.Height = vpHeight
}

func suiteNames(suites []scenarios.Suite) []string {
	names := make([]string, len(suites))
	for i, s := range suites {
		names[i] = s.Name
	}
	return names
}

func suitesLabel(names []string) string {
	if len(names) == 0 {
		return "all suites"
	}
	return strings.Join(names, ", ")
}
