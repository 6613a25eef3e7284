package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
	_ "time/tzdata"
)

const (
	SheetDateLayout = "01/02/2006"
	SheetTimeLayout = "15:04:05"
)

var hhmmss = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})(?::(\d{2}))?\s*$`)

// LoadLocation resolves an IANA zone name, falling back to UTC for an empty name.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", name, err)
	}
	return loc, nil
}

// FormatHourReadable renders an hour of day on a 12 hour clock, e.g. 0 -> "12:00 AM".
// Hours are taken mod 24 so the END bound 24 renders as midnight.
func FormatHourReadable(hour int) string {
	hour = ((hour % 24) + 24) % 24
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:00 %s", h, suffix)
}

// FormatClockReadable renders a time as "h:mm AM".
func FormatClockReadable(t time.Time) string {
	return t.Format("3:04 PM")
}

// ParseHHMMSS parses "H:MM" or "HH:MM:SS" time-of-day strings.
func ParseHHMMSS(s string) (h, m, sec int, err error) {
	match := hhmmss.FindStringSubmatch(s)
	if match == nil {
		return 0, 0, 0, fmt.Errorf("invalid time of day: %q", s)
	}
	h, _ = strconv.Atoi(match[1])
	m, _ = strconv.Atoi(match[2])
	if match[3] != "" {
		sec, _ = strconv.Atoi(match[3])
	}
	if h > 23 || m > 59 || sec > 59 {
		return 0, 0, 0, fmt.Errorf("time of day out of range: %q", s)
	}
	return h, m, sec, nil
}

// FormatHHMMSS zero-pads a parsed time of day.
func FormatHHMMSS(h, m, s int) string {
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// CombineDateTime rebuilds an instant from separately stored "MM/dd/yyyy" and
// "HH:mm:ss" values in loc.
func CombineDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(SheetDateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	h, m, s, err := ParseHHMMSS(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, s, 0, loc), nil
}
