// Package fakepsh simulates a psh shell on the far end of a byte stream.
//
// The device echoes input a byte at a time, prints "\r\n" line endings and
// the "\r\x1b[0J(psh)% " prompt, keeps a wall clock settable with date -s
// and an in-memory file system for touch, mkdir and ls. It is good enough
// for the date and ls suites to pass against it.
package fakepsh

import (
	"bufio"
	"io"
	"net"
	"sort"
	"strings"
	"sync"
	"time"
)

// Prompt is printed after boot and after every command.
const Prompt = "\r\x1b[0J(psh)% "

const (
	dirColor   = "\x1b[1;34m"
	resetColor = "\x1b[0m"
	pshSize    = 48213
)

// Handler answers one command. It returns the output lines.
type Handler func(d *Device, args []string) []string

type builtin struct {
	name string
	help string
}

var builtins = []builtin{
	{"cat", "concatenate file(s) to standard output"},
	{"date", "print/set the system date and time"},
	{"exit", "exits the shell"},
	{"help", "prints this help message"},
	{"history", "prints command history"},
	{"ls", "lists files in the namespace"},
	{"mkdir", "creates directory"},
	{"ps", "prints processes and threads"},
	{"reboot", "restarts the machine"},
	{"touch", "changes file timestamp"},
}

// Option configures a Device.
type Option func(*Device)

// WithBanner prints banner before the first prompt.
func WithBanner(banner string) Option {
	return func(d *Device) { d.banner = banner }
}

// WithoutBootPrompt keeps the device quiet until it receives input.
func WithoutBootPrompt() Option {
	return func(d *Device) { d.bootPrompt = false }
}

// Silent makes the device swallow input without echo or prompt.
func Silent() Option {
	return func(d *Device) { d.silent = true }
}

// WithHandler overrides or adds a command.
func WithHandler(name string, h Handler) Option {
	return func(d *Device) { d.handlers[name] = h }
}

// WithHangup closes the connection when line is entered.
func WithHangup(line string) Option {
	return func(d *Device) { d.hangup = line }
}

// WithDirColor toggles colored directory names in ls output.
func WithDirColor(on bool) Option {
	return func(d *Device) { d.dirColor = on }
}

type node struct {
	dir   bool
	mtime int64
	size  int64
}

// WithClock replaces the wall clock the device measures elapsed time with.
func WithClock(now func() time.Time) Option {
	return func(d *Device) { d.now = now }
}

// Device is a simulated psh shell.
type Device struct {
	mu         sync.Mutex
	banner     string
	bootPrompt bool
	silent     bool
	dirColor   bool
	hangup     string
	handlers   map[string]Handler
	fs         map[string]*node
	lines      []string

	epoch int64
	setAt time.Time
	now   func() time.Time
}

// New returns a device booted at epoch 0 with /bin populated.
func New(opts ...Option) *Device {
	d := &Device{
		bootPrompt: true,
		dirColor:   true,
		handlers:   map[string]Handler{},
		fs:         map[string]*node{"/": {dir: true}},
		now:        time.Now,
	}
	d.fs["/bin"] = &node{dir: true}
	d.fs["/bin/psh"] = &node{size: pshSize}
	for _, b := range builtins {
		if b.name == "history" || b.name == "exit" {
			continue
		}
		d.fs["/bin/"+b.name] = &node{size: int64(len("psh"))}
	}
	d.fs["/dev"] = &node{dir: true}
	d.fs["/etc"] = &node{dir: true}

	for _, opt := range opts {
		opt(d)
	}
	d.setAt = d.now()
	return d
}

// Pipe starts a device on one end of an in-memory pipe and returns the
// other end.
func Pipe(opts ...Option) (net.Conn, *Device) {
	host, dev := net.Pipe()
	d := New(opts...)
	go d.Serve(dev)
	return host, d
}

// Serve runs the shell on rw until the stream fails or the device hangs up.
func (d *Device) Serve(rw io.ReadWriteCloser) error {
	defer rw.Close()

	if d.banner != "" {
		if _, err := io.WriteString(rw, strings.ReplaceAll(d.banner, "\n", "\r\n")+"\r\n"); err != nil {
			return err
		}
	}
	if d.bootPrompt && !d.silent {
		if _, err := io.WriteString(rw, Prompt); err != nil {
			return err
		}
	}

	r := bufio.NewReader(rw)
	var line []byte
	for {
		c, err := r.ReadByte()
		if err != nil {
			return err
		}
		if d.silent {
			continue
		}
		switch {
		case c == '\n':
			text := string(line)
			line = line[:0]
			if d.hangup != "" && text == d.hangup {
				return nil
			}
			out := d.Exec(text)
			var b strings.Builder
			b.WriteString("\r\n")
			for _, l := range out {
				b.WriteString(l)
				b.WriteString("\r\n")
			}
			b.WriteString(Prompt)
			if _, err := io.WriteString(rw, b.String()); err != nil {
				return err
			}
		case c == '\r':
		default:
			line = append(line, c)
			if _, err := rw.Write([]byte{c}); err != nil {
				return err
			}
		}
	}
}

// Exec runs one command line and returns its output lines.
func (d *Device) Exec(line string) []string {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}

	d.mu.Lock()
	d.lines = append(d.lines, line)
	h, ok := d.handlers[args[0]]
	d.mu.Unlock()
	if ok {
		return h(d, args[1:])
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	switch args[0] {
	case "help":
		return d.help()
	case "date":
		return d.date(args[1:])
	case "touch":
		return d.touch(args[1:])
	case "mkdir":
		return d.mkdir(args[1:])
	case "ls":
		return d.ls(args[1:])
	case "exit", "history", "reboot", "ps", "cat":
		return nil
	}
	return []string{"Unknown command!"}
}

// Received returns every command line the device ran, in order.
func (d *Device) Received() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.lines...)
}

// Exists reports whether path is present in the file system.
func (d *Device) Exists(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.fs[resolve(path)]
	return ok
}

// Now returns the device clock in seconds since the epoch.
func (d *Device) Now() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clock()
}

func (d *Device) clock() int64 {
	return d.epoch + int64(d.now().Sub(d.setAt)/time.Second)
}

func (d *Device) setClock(epoch int64) {
	d.epoch = epoch
	d.setAt = d.now()
}

func (d *Device) help() []string {
	out := []string{"Available commands:"}
	for _, b := range builtins {
		out = append(out, "  "+padRight(b.name, 9)+"- "+b.help)
	}
	return out
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s + " "
	}
	return s + strings.Repeat(" ", n-len(s))
}

func sortedNames(m map[string]*node, dir string) []string {
	var names []string
	prefix := strings.TrimSuffix(dir, "/") + "/"
	for p := range m {
		if p == dir || !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		names = append(names, rest)
	}
	sort.Strings(names)
	return names
}
