package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Board != "stm32l4" {
		t.Errorf("expected Board=stm32l4, got=%s", cfg.Board)
	}
	if cfg.SerialBaudRate != 115200 {
		t.Errorf("expected SerialBaudRate=115200, got=%d", cfg.SerialBaudRate)
	}
	if cfg.Timeout != 10*time.Second || cfg.BootTimeout != 30*time.Second {
		t.Errorf("unexpected timeouts %s/%s", cfg.Timeout, cfg.BootTimeout)
	}
	if !cfg.Flash {
		t.Error("expected flashing to be on by default")
	}
}

func TestLoadOverlayProjectOverHome(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	t.Setenv("HOME", home)

	writeFile(t, filepath.Join(home, ".config", "pshtest", "config.toml"), `
board = "host"
serial_port = "/dev/ttyACM0"
timeout = "20s"
char_delay = "50ms"
`)
	writeFile(t, ProjectPath(root), `
serial_port = "/dev/ttyACM1"
serial_baud_rate = 9600
flash = false
suites = ["date"]
`)

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Board != "host" {
		t.Errorf("board = %q, want host from global", cfg.Board)
	}
	if cfg.SerialPort != "/dev/ttyACM1" {
		t.Errorf("serial_port = %q, want project override", cfg.SerialPort)
	}
	if cfg.SerialBaudRate != 9600 {
		t.Errorf("serial_baud_rate = %d, want 9600", cfg.SerialBaudRate)
	}
	if cfg.Timeout != 20*time.Second {
		t.Errorf("timeout = %s, want 20s", cfg.Timeout)
	}
	if cfg.CharDelay != 50*time.Millisecond {
		t.Errorf("char_delay = %s, want 50ms", cfg.CharDelay)
	}
	// Untouched keys keep their defaults.
	if cfg.BootTimeout != DefaultBootTimeout {
		t.Errorf("boot_timeout = %s, want default", cfg.BootTimeout)
	}
	if cfg.Flash {
		t.Error("flash should be disabled by project config")
	}
	if len(cfg.Suites) != 1 || cfg.Suites[0] != "date" {
		t.Errorf("suites = %v", cfg.Suites)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	writeFile(t, ProjectPath(root), `timeout = "soon"`)

	_, err := Load(root)
	if err == nil {
		t.Fatal("expected an error for an unparsable duration")
	}
	if !strings.Contains(err.Error(), "parse timeout") {
		t.Errorf("error %q does not name the key", err)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	writeFile(t, ProjectPath(root), `board = `)

	if _, err := Load(root); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()

	cfg := Defaults()
	cfg.Board = "host"
	cfg.SerialPort = "/dev/ttyUSB3"
	cfg.SerialBaudRate = 57600
	cfg.BootTimeout = 45 * time.Second
	cfg.Flash = false
	cfg.Suites = []string{"ls-rootfs", "date"}

	if err := Save(cfg, root, false); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(ProjectPath(root))
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if !strings.Contains(string(data), `boot_timeout = "45s"`) {
		t.Errorf("durations should be written as strings:\n%s", data)
	}

	loaded, err := Load(root)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if loaded.Board != "host" || loaded.SerialPort != "/dev/ttyUSB3" {
		t.Errorf("unexpected board/port %q/%q", loaded.Board, loaded.SerialPort)
	}
	if loaded.SerialBaudRate != 57600 {
		t.Errorf("expected SerialBaudRate=57600, got=%d", loaded.SerialBaudRate)
	}
	if loaded.BootTimeout != 45*time.Second {
		t.Errorf("expected BootTimeout=45s, got=%s", loaded.BootTimeout)
	}
	if loaded.Flash {
		t.Error("expected Flash=false to survive a round trip")
	}
	if strings.Join(loaded.Suites, ",") != "ls-rootfs,date" {
		t.Errorf("suites = %v", loaded.Suites)
	}
}

func TestSaveGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := Defaults()
	cfg.SerialPort = "/dev/ttyACM9"
	if err := Save(cfg, "", true); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if loaded.SerialPort != "/dev/ttyACM9" {
		t.Errorf("expected global serial port, got=%q", loaded.SerialPort)
	}
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, DirName), 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got := FindRoot(nested)
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindRoot = %q, want %q", got, want)
	}
}

func TestFindRootNone(t *testing.T) {
	// A plain file named .pshtest does not mark a project.
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, DirName), "")

	if got := FindRoot(dir); got != "" && got == dir {
		t.Errorf("FindRoot should ignore a non-directory .pshtest, got %q", got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
