package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/buckleypaul/pshtest/internal/app"
	"github.com/buckleypaul/pshtest/internal/harness"
	"github.com/buckleypaul/pshtest/internal/pages"
	"github.com/buckleypaul/pshtest/internal/scenarios"
	"github.com/buckleypaul/pshtest/internal/ui"
)

func newRunCommand(a *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [suite...]",
		Short: "Flash the board and run psh test suites",
		Long: `Flash the board (unless --no-flash or flash = false), wait for the psh
prompt and run the named suites in order, or every suite when none are named.
Exits non-zero when any suite fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			cfg := a.cfg
			if len(args) > 0 {
				cfg.Suites = args
			}
			if cfg.SerialPort == "" {
				return errNoPort
			}

			r, err := harness.FromConfig(cfg, a.store, a.logger)
			if err != nil {
				return err
			}
			if a.open != nil {
				r.Open = a.open
			}
			out := cmd.OutOrStdout()
			r.Notify = func(ev harness.Event) { printEvent(out, ev) }

			rep, err := r.Run(cmd.Context())
			printReport(out, rep)
			if err != nil {
				return err
			}
			if !rep.Passed() {
				_, failed, errored := rep.Counts()
				return fmt.Errorf("%d failed, %d errored", failed, errored)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&a.noFlash, "no-flash", false, "skip flashing before the run")
	return cmd
}

func newFlashCommand(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "flash",
		Short: "Program the board's image with OpenOCD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			f, b, err := harness.FlasherFor(a.cfg, a.logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Flashing %s from %s...\n", b.Name, b.ImagePath(a.cfg.BootDir))
			start := time.Now()
			outcome, err := f.Flash(cmd.Context())
			rec := harness.FlashRecord(b, outcome, err, start)
			if serr := a.store.AddFlash(rec); serr != nil {
				a.logger.Warn("could not record flash", "err", serr)
			}
			if outcome != nil {
				fmt.Fprintf(out, "$ %s\n%s%s", outcome.Command, outcome.Stdout, outcome.Stderr)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s flashed %s in %s\n", ui.StatusBadge("ok"), b.Name, rec.Duration)
			return nil
		},
	}
}

func newPortsCommand(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := a.listPorts()
			if err != nil {
				return fmt.Errorf("list ports: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(ports) == 0 {
				fmt.Fprintln(out, "No serial ports found.")
				return nil
			}
			for _, p := range ports {
				line := p.Label()
				if p.IsSTLink() {
					line += " " + ui.AccentStyle.Render("(ST-LINK)")
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func newSuitesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "suites",
		Short: "List the registered test suites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, name := range scenarios.Names() {
				s, _ := scenarios.Lookup(name)
				fmt.Fprintf(out, "%-12s %s\n", s.Name, ui.DimStyle.Render(s.Description))
			}
			return nil
		},
	}
}

func newHistoryCommand(a *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs and their suites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			runs, err := a.store.Runs()
			if err != nil {
				return err
			}
			tests, err := a.store.Tests()
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), runs, tests, limit)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}

func newTUICommand(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch the interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			cfg := a.cfg
			pageMap := map[app.PageID]app.Page{
				app.TestPage:     pages.NewTestPage(&cfg, pages.ConfiguredRunner(a.store, a.logger)),
				app.FlashPage:    pages.NewFlashPage(a.store, &cfg, pages.BoardFlasher(a.logger)),
				app.MonitorPage:  pages.NewMonitorPage(a.store, &cfg, a.open),
				app.HistoryPage:  pages.NewHistoryPage(a.store),
				app.SettingsPage: pages.NewSettingsPage(&cfg, a.root),
			}
			model := app.New(pageMap, &cfg, a.root)

			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err := p.Run()
			return err
		},
	}
}
