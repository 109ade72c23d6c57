package fakepsh

import (
	"path"
	"sort"
	"strings"
)

const termWidth = 80

func resolve(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func (d *Device) touch(args []string) []string {
	if len(args) == 0 {
		return []string{"touch: missing file operand"}
	}
	var out []string
	for _, a := range args {
		p := resolve(a)
		if n, ok := d.fs[p]; ok {
			n.mtime = d.clock()
			continue
		}
		if parent, ok := d.fs[path.Dir(p)]; !ok || !parent.dir {
			out = append(out, "touch: failed to open "+a)
			continue
		}
		d.fs[p] = &node{mtime: d.clock()}
	}
	return out
}

func (d *Device) mkdir(args []string) []string {
	if len(args) == 0 {
		return []string{"mkdir: missing argument"}
	}
	var out []string
	for _, a := range args {
		p := resolve(a)
		if _, ok := d.fs[p]; ok {
			out = append(out, "mkdir: failed to create "+a+" directory")
			continue
		}
		if parent, ok := d.fs[path.Dir(p)]; !ok || !parent.dir {
			out = append(out, "mkdir: failed to create "+a+" directory")
			continue
		}
		d.fs[p] = &node{dir: true, mtime: d.clock()}
	}
	return out
}

func (d *Device) ls(args []string) []string {
	var onePerLine, byTime, bySize bool
	target := "/"
	for _, a := range args {
		if strings.HasPrefix(a, "-") && len(a) > 1 {
			for _, f := range a[1:] {
				switch f {
				case '1':
					onePerLine = true
				case 't':
					byTime = true
				case 'S':
					bySize = true
				default:
					return []string{"ls: invalid option -- " + string(f)}
				}
			}
			continue
		}
		target = a
	}

	dir := resolve(target)
	n, ok := d.fs[dir]
	if !ok {
		return []string{"ls: can't access " + target + ": no such file or directory"}
	}
	names := []string{path.Base(dir)}
	if n.dir {
		names = sortedNames(d.fs, dir)
	}

	entry := func(name string) *node {
		if !n.dir {
			return n
		}
		return d.fs[path.Join(dir, name)]
	}
	switch {
	case bySize:
		sort.SliceStable(names, func(i, j int) bool { return entry(names[i]).size > entry(names[j]).size })
	case byTime:
		sort.SliceStable(names, func(i, j int) bool { return entry(names[i]).mtime > entry(names[j]).mtime })
	}

	decorated := make([]string, len(names))
	for i, name := range names {
		decorated[i] = name
		if d.dirColor && entry(name).dir {
			decorated[i] = dirColor + name + resetColor
		}
	}
	if onePerLine {
		return decorated
	}
	return columns(names, decorated)
}

// columns lays names out row by row in columns as wide as the longest
// name. Names wider than the terminal get a row of their own.
func columns(names, decorated []string) []string {
	if len(names) == 0 {
		return nil
	}
	width := 0
	for _, n := range names {
		if len(n) > width {
			width = len(n)
		}
	}
	width += 2
	perRow := termWidth / width
	if perRow < 1 {
		perRow = 1
	}

	var rows []string
	for start := 0; start < len(names); start += perRow {
		end := start + perRow
		if end > len(names) {
			end = len(names)
		}
		var b strings.Builder
		for i := start; i < end; i++ {
			b.WriteString(decorated[i])
			if i < end-1 {
				b.WriteString(strings.Repeat(" ", width-len(names[i])))
			}
		}
		rows = append(rows, b.String())
	}
	return rows
}
