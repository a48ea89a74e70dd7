package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Schedule yields the next activation strictly after a given instant.
// Wall-clock schedules use the location of the instant passed in.
type Schedule interface {
	Next(after time.Time) time.Time
}

// Every fires at a fixed rate. The scheduler anchors each tick on the
// previous scheduled tick, not on when the previous run finished, so a slow
// run does not push later ticks back.
type Every time.Duration

// Next implements Schedule.
func (e Every) Next(after time.Time) time.Time {
	return after.Add(time.Duration(e))
}

func (e Every) String() string {
	return "every " + time.Duration(e).String()
}

// Daily fires once a day at Hour:Minute.
type Daily struct {
	Hour   int
	Minute int
}

// Next implements Schedule.
func (d Daily) Next(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), d.Hour, d.Minute, 0, 0, after.Location())
	if !next.After(after) {
		next = time.Date(after.Year(), after.Month(), after.Day()+1, d.Hour, d.Minute, 0, 0, after.Location())
	}
	return next
}

func (d Daily) String() string {
	return fmt.Sprintf("daily at %02d:%02d", d.Hour, d.Minute)
}

// Weekly fires once a week on Weekday at Hour:Minute.
type Weekly struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

// Next implements Schedule.
func (w Weekly) Next(after time.Time) time.Time {
	days := (int(w.Weekday) - int(after.Weekday()) + 7) % 7
	next := time.Date(after.Year(), after.Month(), after.Day()+days, w.Hour, w.Minute, 0, 0, after.Location())
	if !next.After(after) {
		next = time.Date(after.Year(), after.Month(), after.Day()+days+7, w.Hour, w.Minute, 0, 0, after.Location())
	}
	return next
}

func (w Weekly) String() string {
	return fmt.Sprintf("weekly on %s at %02d:%02d", w.Weekday, w.Hour, w.Minute)
}

// ParseClock parses "HH:MM" (24-hour) into hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q: want HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// ParseWeekday parses an English weekday name, case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}
