// Package calendar holds the date arithmetic shared by menu sources and storage.
// All functions keep the location of their input.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage and query representation of a calendar day.
const DateLayout = "2006-01-02"

// Workdays are the weekdays a canteen menu covers, Monday first.
var Workdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekStart returns midnight of the Monday of t's week. Sunday belongs to the
// week that started six days earlier.
func WeekStart(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// Week returns the Monday and Sunday of t's week.
func Week(t time.Time) (time.Time, time.Time) {
	monday := WeekStart(t)
	return monday, monday.AddDate(0, 0, 6)
}

// WorkWeek returns Monday through Friday of t's week.
func WorkWeek(t time.Time) []time.Time {
	monday := WeekStart(t)
	days := make([]time.Time, len(Workdays))
	for i := range Workdays {
		days[i] = monday.AddDate(0, 0, i)
	}
	return days
}

// WeekdayIndex maps a workday name to its offset from Monday (Monday=0, Friday=4).
func WeekdayIndex(name string) (int, bool) {
	name = strings.TrimSpace(name)
	for i, d := range Workdays {
		if strings.EqualFold(d, name) {
			return i, true
		}
	}
	return -1, false
}

// ParseDate parses a YYYY-MM-DD day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t's calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// LoadLocation resolves an IANA zone name, falling back to UTC for "".
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}
