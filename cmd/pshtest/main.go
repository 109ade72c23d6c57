package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/buckleypaul/pshtest/internal/config"
	"github.com/buckleypaul/pshtest/internal/logging"
	"github.com/buckleypaul/pshtest/internal/serial"
	"github.com/buckleypaul/pshtest/internal/store"
)

// Version is set at build time.
var Version = "dev"

var errNoPort = errors.New("no serial port configured (use --port, the port picker in `pshtest tui`, or serial_port in .pshtest/config.toml)")

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	a := newCLI()
	defer func() {
		if err := a.close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close logger: %v\n", err)
		}
	}()

	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// cli holds the flags shared by every subcommand and, once load has run,
// the project they operate on.
type cli struct {
	getwd     func() (string, error)
	open      serial.Opener
	listPorts func() ([]serial.PortInfo, error)

	board    string
	port     string
	baud     int
	noFlash  bool
	logLevel string

	root   string
	cfg    config.Config
	store  *store.Store
	rt     *logging.RuntimeLogger
	logger *log.Logger
}

func newCLI() *cli {
	return &cli{
		getwd:     os.Getwd,
		listPorts: serial.ListPorts,
	}
}

// load finds the project root, reads the layered config, applies the
// command line overrides and opens the log file.
func (a *cli) load(cmd *cobra.Command) error {
	cwd, err := a.getwd()
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}
	root := config.FindRoot(cwd)
	if root == "" {
		root = cwd
	}

	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("board") {
		cfg.Board = a.board
	}
	if flags.Changed("port") {
		cfg.SerialPort = a.port
	}
	if flags.Changed("baud") {
		if a.baud <= 0 {
			return fmt.Errorf("invalid --baud %d", a.baud)
		}
		cfg.SerialBaudRate = a.baud
	}
	if a.noFlash {
		cfg.Flash = false
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	dataDir := filepath.Join(root, config.DirName)
	rt, err := logging.New(filepath.Join(dataDir, "logs"), logging.WithLevel(level))
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}

	if a.rt != nil {
		a.rt.Close()
	}
	a.root = root
	a.cfg = cfg
	a.store = store.New(dataDir)
	a.rt = rt
	a.logger = rt.Logger
	a.logger.Debug("command invocation", "command", cmd.Name(), "root", root, "board", cfg.Board, "port", cfg.SerialPort)
	return nil
}

func (a *cli) close() error {
	return a.rt.Close()
}

func newRootCommand(a *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "pshtest",
		Short:         "Hardware-in-the-loop tests for the psh shell",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	pf := root.PersistentFlags()
	pf.StringVarP(&a.board, "board", "b", "", "board profile (overrides config)")
	pf.StringVarP(&a.port, "port", "p", "", "serial port of the psh console (overrides config)")
	pf.IntVar(&a.baud, "baud", 0, "serial baud rate (overrides config)")
	pf.StringVar(&a.logLevel, "log-level", "", "log file level: debug, info, warn, error")

	root.AddCommand(
		newRunCommand(a),
		newFlashCommand(a),
		newPortsCommand(a),
		newSuitesCommand(),
		newHistoryCommand(a),
		newTUICommand(a),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pshtest version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), Version)
			return err
		},
	}
}
