package unavailability

import (
	"time"

	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/schedule"
)

func parseDay(s string) (time.Time, bool) {
	d, err := time.ParseInLocation(schedule.DateLayout, s, time.UTC)
	return d, err == nil
}

// Covers reports whether w blocks the calendar day date (YYYY-MM-DD). A one-off
// window covers [StartDate, EndDate]. A recurring window covers the same
// month/day span every year, including spans that cross 31 December.
func Covers(w models.UnavailabilityWindow, date string) bool {
	if !w.IsRecurring {
		return w.StartDate <= date && date <= w.EndDate
	}
	day, ok := parseDay(date)
	if !ok {
		return false
	}
	start, ok := parseDay(w.StartDate)
	if !ok {
		return false
	}
	end, ok := parseDay(w.EndDate)
	if !ok || end.Before(start) {
		return false
	}
	span := end.Sub(start)
	for _, year := range []int{day.Year(), day.Year() - 1} {
		from := time.Date(year, start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		if !day.Before(from) && !day.After(from.Add(span)) {
			return true
		}
	}
	return false
}

// Overlaps reports whether w covers at least one day of [from, to].
func Overlaps(w models.UnavailabilityWindow, from, to string) bool {
	if !w.IsRecurring {
		return w.StartDate <= to && w.EndDate >= from
	}
	start, ok := parseDay(from)
	if !ok {
		return false
	}
	end, ok := parseDay(to)
	if !ok {
		return false
	}
	for d := range schedule.Days(start, end, time.UTC) {
		if Covers(w, schedule.FormatDate(d)) {
			return true
		}
	}
	return false
}

type Windows []models.UnavailabilityWindow

// Covering returns the first window that blocks any day of [from, to].
func (ws Windows) Covering(from, to string) (models.UnavailabilityWindow, bool) {
	for _, w := range ws {
		if Overlaps(w, from, to) {
			return w, true
		}
	}
	return models.UnavailabilityWindow{}, false
}
