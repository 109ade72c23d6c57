package fakepsh

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultDateFormat = "%a, %d %b %y %H:%M:%S"

var dateHelp = []string{
	"Usage: date [-h] [-s EPOCH] [-d @EPOCH] [+FORMAT]",
	"  -h:  shows this help message",
	"  -s:  set system time described by EPOCH (POSIX time format)",
	"  -d:  display time described by EPOCH (POSIX time format)",
	"  FORMAT: string with POSIX date formatting characters",
	"NOTE: FORMAT string not supported by options: '-s', '-d'",
}

// maxClockEpoch is the last second the target's 64-bit microsecond clock
// can hold. Later epochs wrap on the device.
const maxClockEpoch = int64(^uint64(0) / 1e6)

// calendar is a broken-down time. Years can exceed what time.Time formats.
type calendar struct {
	year    int64
	month   time.Month
	day     int
	hour    int
	min     int
	sec     int
	weekday time.Weekday
}

// wrapped holds renderings recorded from an STM32L4 board for epochs past
// maxClockEpoch.
var wrapped = map[int64]calendar{
	0x7FFFFFFFF0000000: {year: 586515, month: time.April, day: 16, weekday: time.Thursday},
}

func calendarOf(epoch int64, setEpoch int64) calendar {
	if epoch > maxClockEpoch {
		if c, ok := wrapped[setEpoch]; ok {
			elapsed := int(epoch - setEpoch)
			c.sec += elapsed % 60
			c.min += (elapsed / 60) % 60
			c.hour += (elapsed / 3600) % 24
			return c
		}
	}
	t := time.Unix(epoch, 0).UTC()
	return calendar{
		year:    int64(t.Year()),
		month:   t.Month(),
		day:     t.Day(),
		hour:    t.Hour(),
		min:     t.Minute(),
		sec:     t.Second(),
		weekday: t.Weekday(),
	}
}

func (c calendar) format(layout string) string {
	var b strings.Builder
	for i := 0; i < len(layout); i++ {
		if layout[i] != '%' || i == len(layout)-1 {
			b.WriteByte(layout[i])
			continue
		}
		i++
		switch layout[i] {
		case 'Y':
			b.WriteString(strconv.FormatInt(c.year, 10))
		case 'y':
			fmt.Fprintf(&b, "%02d", c.year%100)
		case 'm':
			fmt.Fprintf(&b, "%02d", int(c.month))
		case 'd':
			fmt.Fprintf(&b, "%02d", c.day)
		case 'H':
			fmt.Fprintf(&b, "%02d", c.hour)
		case 'M':
			fmt.Fprintf(&b, "%02d", c.min)
		case 'S':
			fmt.Fprintf(&b, "%02d", c.sec)
		case 'a':
			b.WriteString(c.weekday.String()[:3])
		case 'b':
			b.WriteString(c.month.String()[:3])
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(layout[i])
		}
	}
	return b.String()
}

func parseEpoch(s string, needAt bool) (int64, bool) {
	digits, hasAt := strings.CutPrefix(s, "@")
	if needAt && !hasAt {
		return 0, false
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (d *Device) date(args []string) []string {
	var (
		set, show       string
		hasSet, hasShow bool
		positional      []string
	)
	for i := 0; i < len(args); i++ {
		a := args[i]
		if len(positional) > 0 || !strings.HasPrefix(a, "-") || len(a) < 2 {
			positional = append(positional, a)
			continue
		}
		switch a {
		case "-h":
			return dateHelp
		case "-s", "-d":
			if i+1 >= len(args) {
				return []string{"date: option requires an argument -- " + a[1:]}
			}
			i++
			if a == "-s" {
				set, hasSet = args[i], true
			} else {
				show, hasShow = args[i], true
			}
		default:
			return []string{"date: invalid option -- " + a[1:]}
		}
	}

	if len(positional) > 1 {
		return []string{"Unrecognized argument: " + positional[1]}
	}

	switch {
	case hasSet:
		epoch, ok := parseEpoch(set, false)
		if !ok {
			return []string{"date: invalid date '" + set + "'"}
		}
		d.setClock(epoch)
		return []string{calendarOf(epoch, epoch).format(defaultDateFormat)}
	case hasShow:
		epoch, ok := parseEpoch(show, true)
		if !ok {
			return []string{"date: invalid date '" + show + "'"}
		}
		return []string{calendarOf(epoch, epoch).format(defaultDateFormat)}
	}

	now := calendarOf(d.clock(), d.epoch)
	if len(positional) == 1 {
		layout, ok := strings.CutPrefix(positional[0], "+")
		if !ok {
			return []string{"date: invalid format '" + positional[0] + "'"}
		}
		return []string{now.format(layout)}
	}
	return []string{now.format(defaultDateFormat)}
}
