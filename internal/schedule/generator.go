package schedule

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/Ritika1223/jensieBackend/internal/models"
)

const (
	TemplateSlotMinutes = 30

	DefaultOpeningTime         = "09:00"
	DefaultClosingTime         = "17:00"
	DefaultOverrideSlotMinutes = 15
)

var (
	ErrInvalidBreak  = errors.New("invalid break window")
	ErrInvalidPeriod = errors.New("invalid period")
	ErrInvalidHours  = errors.New("start time must be before end time")
)

// DayConfig is the working-hours configuration of a single day, normalized from
// either a weekly template or a date override.
type DayConfig struct {
	Opening     string
	Closing     string
	SlotMinutes int
	// Periods restricts output to the listed periods. Nil keeps every period.
	Periods    []models.Period
	BreakStart string
	BreakEnd   string
	Toggles    models.SlotToggles
}

type Candidate struct {
	StartMinute int
	StartTime   string
	EndTime     string
	Label       string
	Period      models.Period
}

func (c Candidate) Interval(slotMinutes int) Interval {
	return Interval{Start: c.StartMinute, End: c.StartMinute + slotMinutes}
}

func FromTemplate(t models.ScheduleTemplate) DayConfig {
	periods := t.Periods
	if len(periods) == 0 {
		periods = nil
	}
	return DayConfig{
		Opening:     t.StartTime,
		Closing:     t.EndTime,
		SlotMinutes: TemplateSlotMinutes,
		Periods:     periods,
		BreakStart:  t.BreakStartTime,
		BreakEnd:    t.BreakEndTime,
	}
}

func FromOverride(o models.ScheduleOverride) DayConfig {
	cfg := DayConfig{
		Opening:     o.OpeningTime,
		Closing:     o.ClosingTime,
		SlotMinutes: o.SlotDuration,
		Toggles:     o.SlotAvailability,
	}
	if cfg.Opening == "" {
		cfg.Opening = DefaultOpeningTime
	}
	if cfg.Closing == "" {
		cfg.Closing = DefaultClosingTime
	}
	if cfg.SlotMinutes == 0 {
		cfg.SlotMinutes = DefaultOverrideSlotMinutes
	}
	return cfg
}

type bounds struct {
	open, closing        int
	breakStart, breakEnd int
	hasBreak             bool
}

func (c DayConfig) bounds() (bounds, error) {
	var b bounds
	open, err := ParseClockToMinutes(c.Opening)
	if err != nil {
		return b, fmt.Errorf("opening time: %w", err)
	}
	closing, err := ParseClockToMinutes(c.Closing)
	if err != nil {
		return b, fmt.Errorf("closing time: %w", err)
	}
	if closing <= open {
		closing += minutesPerDay
	}
	b.open, b.closing = open, closing

	if c.SlotMinutes <= 0 || c.SlotMinutes > minutesPerDay {
		return b, ErrInvalidDuration
	}
	for _, p := range c.Periods {
		if !models.IsValidPeriod(p) {
			return b, fmt.Errorf("%w: %q", ErrInvalidPeriod, p)
		}
	}

	if (c.BreakStart == "") != (c.BreakEnd == "") {
		return b, ErrInvalidBreak
	}
	if c.BreakStart != "" {
		bs, err := ParseClockToMinutes(c.BreakStart)
		if err != nil {
			return b, fmt.Errorf("break start: %w", err)
		}
		be, err := ParseClockToMinutes(c.BreakEnd)
		if err != nil {
			return b, fmt.Errorf("break end: %w", err)
		}
		if bs >= be {
			return b, ErrInvalidBreak
		}
		b.breakStart, b.breakEnd, b.hasBreak = bs, be, true
	}
	return b, nil
}

// ValidateTemplate applies the weekly template rules on top of Validate:
// templates never wrap past midnight and their break sits within working hours.
func (c DayConfig) ValidateTemplate() error {
	b, err := c.bounds()
	if err != nil {
		return err
	}
	if b.closing > minutesPerDay {
		return ErrInvalidHours
	}
	if b.hasBreak && (b.breakStart < b.open || b.breakEnd > b.closing) {
		return fmt.Errorf("%w: outside working hours", ErrInvalidBreak)
	}
	return nil
}

func (c DayConfig) Validate() error {
	_, err := c.bounds()
	return err
}

// Generate validates cfg and returns the lazy sequence of candidate slots for the
// day. A closing time at or before the opening time extends into the next day.
// A step is emitted while its start lies before the closing bound. The returned
// sequence can be ranged over any number of times.
func Generate(cfg DayConfig) (iter.Seq[Candidate], error) {
	b, err := cfg.bounds()
	if err != nil {
		return nil, err
	}
	var periods []models.Period
	if len(cfg.Periods) > 0 {
		periods = slices.Clone(cfg.Periods)
	}
	toggles := cfg.Toggles
	step := cfg.SlotMinutes

	return func(yield func(Candidate) bool) {
		for start := b.open; start < b.closing; start += step {
			clock := start % minutesPerDay
			period := PeriodForHour(clock / 60)
			if periods != nil && !slices.Contains(periods, period) {
				continue
			}
			if b.hasBreak && clock >= b.breakStart && clock < b.breakEnd {
				continue
			}
			label := Label(clock)
			if !toggles.Enabled(label) {
				continue
			}
			c := Candidate{
				StartMinute: start,
				StartTime:   MinutesToClock(clock),
				EndTime:     MinutesToClock(start + step),
				Label:       label,
				Period:      period,
			}
			if !yield(c) {
				return
			}
		}
	}, nil
}

// PeriodForHour buckets an hour of day: Morning [7,12), Afternoon [12,16),
// Evening [16,19), Night otherwise.
func PeriodForHour(hour int) models.Period {
	switch {
	case hour >= 7 && hour < 12:
		return models.PeriodMorning
	case hour >= 12 && hour < 16:
		return models.PeriodAfternoon
	case hour >= 16 && hour < 19:
		return models.PeriodEvening
	default:
		return models.PeriodNight
	}
}

// Label renders minutes since midnight as a 12-hour display label, e.g. "9:00 AM".
func Label(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	h := minutes / 60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, minutes%60, suffix)
}
