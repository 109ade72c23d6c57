package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DirName  = ".pshtest"
	FileName = "config.toml"

	DefaultBoard       = "stm32l4"
	DefaultBaudRate    = 115200
	DefaultBootDir     = "_boot"
	DefaultOpenOCD     = "openocd"
	DefaultTimeout     = 10 * time.Second
	DefaultBootTimeout = 30 * time.Second
	DefaultCharDelay   = 30 * time.Millisecond
	DefaultLogLevel    = "info"
)

// Config holds all pshtest configuration.
type Config struct {
	Board          string
	SerialPort     string
	SerialBaudRate int
	BootDir        string
	Timeout        time.Duration
	BootTimeout    time.Duration
	CharDelay      time.Duration
	Flash          bool
	OpenOCD        string
	Suites         []string
	LogLevel       string
}

type fileConfig struct {
	Board          *string  `toml:"board,omitempty"`
	SerialPort     *string  `toml:"serial_port,omitempty"`
	SerialBaudRate *int     `toml:"serial_baud_rate,omitempty"`
	BootDir        *string  `toml:"boot_dir,omitempty"`
	Timeout        *string  `toml:"timeout,omitempty"`
	BootTimeout    *string  `toml:"boot_timeout,omitempty"`
	CharDelay      *string  `toml:"char_delay,omitempty"`
	Flash          *bool    `toml:"flash,omitempty"`
	OpenOCD        *string  `toml:"openocd,omitempty"`
	Suites         []string `toml:"suites,omitempty"`
	LogLevel       *string  `toml:"log_level,omitempty"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Board:          DefaultBoard,
		SerialBaudRate: DefaultBaudRate,
		BootDir:        DefaultBootDir,
		Timeout:        DefaultTimeout,
		BootTimeout:    DefaultBootTimeout,
		CharDelay:      DefaultCharDelay,
		Flash:          true,
		OpenOCD:        DefaultOpenOCD,
		LogLevel:       DefaultLogLevel,
	}
}

// GlobalPath returns ~/.config/pshtest/config.toml.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "pshtest", FileName), nil
}

// ProjectPath returns the config file inside a project root.
func ProjectPath(root string) string {
	return filepath.Join(root, DirName, FileName)
}

// Load reads and merges global and project configs.
// Order: defaults → global (~/.config/pshtest/config.toml) → project (.pshtest/config.toml).
func Load(root string) (Config, error) {
	cfg := Defaults()

	global, err := GlobalPath()
	if err != nil {
		return cfg, err
	}
	paths := []string{global}
	if root != "" {
		paths = append(paths, ProjectPath(root))
	}

	for _, path := range paths {
		if err := overlayFromFile(&cfg, path); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Save writes the config to the project's .pshtest/config.toml, or to the
// global config if global is true.
func Save(cfg Config, root string, global bool) error {
	path := ProjectPath(root)
	if global {
		var err error
		if path, err = GlobalPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(toFile(cfg)); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// FindRoot walks up from startDir looking for a .pshtest directory and
// returns the directory holding it. It returns "" when none is found.
func FindRoot(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, DirName)); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func overlayFromFile(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("config must not be nil")
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config file %q: %w", path, err)
	}

	var decoded fileConfig
	if _, err := toml.DecodeFile(path, &decoded); err != nil {
		return fmt.Errorf("decode config file %q: %w", path, err)
	}

	if decoded.Board != nil {
		cfg.Board = *decoded.Board
	}
	if decoded.SerialPort != nil {
		cfg.SerialPort = *decoded.SerialPort
	}
	if decoded.SerialBaudRate != nil {
		if *decoded.SerialBaudRate <= 0 {
			return fmt.Errorf("serial_baud_rate in %q must be positive", path)
		}
		cfg.SerialBaudRate = *decoded.SerialBaudRate
	}
	if decoded.BootDir != nil {
		cfg.BootDir = *decoded.BootDir
	}
	if decoded.Flash != nil {
		cfg.Flash = *decoded.Flash
	}
	if decoded.OpenOCD != nil {
		cfg.OpenOCD = *decoded.OpenOCD
	}
	if decoded.Suites != nil {
		cfg.Suites = append([]string(nil), decoded.Suites...)
	}
	if decoded.LogLevel != nil {
		cfg.LogLevel = *decoded.LogLevel
	}

	durations := []struct {
		key   string
		value *string
		dest  *time.Duration
	}{
		{"timeout", decoded.Timeout, &cfg.Timeout},
		{"boot_timeout", decoded.BootTimeout, &cfg.BootTimeout},
		{"char_delay", decoded.CharDelay, &cfg.CharDelay},
	}
	for _, d := range durations {
		if d.value == nil {
			continue
		}
		parsed, err := parseDuration(*d.value, d.key, path)
		if err != nil {
			return err
		}
		*d.dest = parsed
	}
	return nil
}

func parseDuration(value, key, path string) (time.Duration, error) {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s in %q: %w", key, path, err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("parse %s in %q: negative duration %s", key, path, value)
	}
	return parsed, nil
}

func toFile(cfg Config) fileConfig {
	str := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}
	dur := func(d time.Duration) *string {
		if d == 0 {
			return nil
		}
		s := d.String()
		return &s
	}

	out := fileConfig{
		Board:       str(cfg.Board),
		SerialPort:  str(cfg.SerialPort),
		BootDir:     str(cfg.BootDir),
		Timeout:     dur(cfg.Timeout),
		BootTimeout: dur(cfg.BootTimeout),
		CharDelay:   dur(cfg.CharDelay),
		Flash:       &cfg.Flash,
		OpenOCD:     str(cfg.OpenOCD),
		Suites:      cfg.Suites,
		LogLevel:    str(cfg.LogLevel),
	}
	if cfg.SerialBaudRate > 0 {
		out.SerialBaudRate = &cfg.SerialBaudRate
	}
	return out
}
