package schedule

import (
	"errors"
	"fmt"
	"iter"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	minutesPerDay = 24 * 60
)

var (
	ErrInvalidDate     = errors.New("invalid date format")
	ErrInvalidTime     = errors.New("invalid time format")
	ErrInvalidDuration = errors.New("invalid duration")
)

func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	date, err := time.ParseInLocation(DateLayout, dateStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NormalizeDate truncates t to midnight of its calendar day in loc.
func NormalizeDate(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func ParseDateTime(dateStr, timeStr string, loc *time.Location) (time.Time, error) {
	if _, err := time.Parse(ClockLayout, timeStr); err != nil {
		return time.Time{}, ErrInvalidTime
	}
	if _, err := ParseDate(dateStr, loc); err != nil {
		return time.Time{}, err
	}

	parsed, err := time.ParseInLocation(DateLayout+" "+ClockLayout, dateStr+" "+timeStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidTime
	}
	return parsed, nil
}

func ParseClockToMinutes(timeStr string) (int, error) {
	tm, err := time.Parse(ClockLayout, timeStr)
	if err != nil {
		return 0, ErrInvalidTime
	}
	return tm.Hour()*60 + tm.Minute(), nil
}

func MinutesToClock(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func IsDatePast(dateStr string, loc *time.Location, now time.Time) (bool, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return false, err
	}
	return date.Before(NormalizeDate(now, loc)), nil
}

// IsSlotPast reports whether the slot start is at or before now.
func IsSlotPast(dateStr, timeStr string, loc *time.Location, now time.Time) (bool, error) {
	slot, err := ParseDateTime(dateStr, timeStr, loc)
	if err != nil {
		return false, err
	}
	return !slot.After(now.In(loc)), nil
}

// Days yields every calendar day from from to to inclusive, at midnight in loc.
func Days(from, to time.Time, loc *time.Location) iter.Seq[time.Time] {
	start := NormalizeDate(from, loc)
	end := NormalizeDate(to, loc)
	return func(yield func(time.Time) bool) {
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

type Interval struct {
	Start int
	End   int
}

func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// ClockInterval converts an HH:MM start/end pair to minutes. An end at or before
// the start is read as the next day.
func ClockInterval(start, end string) (Interval, error) {
	s, err := ParseClockToMinutes(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClockToMinutes(end)
	if err != nil {
		return Interval{}, err
	}
	if e <= s {
		e += minutesPerDay
	}
	return Interval{Start: s, End: e}, nil
}
