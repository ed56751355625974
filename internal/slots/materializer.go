// Package slots turns schedule configuration into persisted time slots and
// serves availability reads over them.
package slots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/apperr"
	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/schedule"
	"github.com/Ritika1223/jensieBackend/internal/store"
	"github.com/Ritika1223/jensieBackend/internal/unavailability"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultMaxGenerateDays = 90

const minutesPerDay = 24 * 60

// Invalidator drops cached slot read models after slots change.
type Invalidator interface {
	Invalidate(ctx context.Context, doctorID, date string) error
	InvalidateDoctor(ctx context.Context, doctorID string) error
}

type Result struct {
	Days           int `json:"days"`
	SlotsGenerated int `json:"slotsGenerated"`
	Inserted       int `json:"inserted"`
	Duplicates     int `json:"duplicates"`
}

func (r *Result) add(o Result) {
	r.SlotsGenerated += o.SlotsGenerated
	r.Inserted += o.Inserted
	r.Duplicates += o.Duplicates
}

type Materializer struct {
	store       *store.Store
	registry    *unavailability.Registry
	invalidator Invalidator
	location    *time.Location
	log         *slog.Logger
	maxDays     int
}

func NewMaterializer(st *store.Store, registry *unavailability.Registry, location *time.Location, log *slog.Logger, maxDays int) *Materializer {
	if maxDays <= 0 {
		maxDays = DefaultMaxGenerateDays
	}
	return &Materializer{
		store:    st,
		registry: registry,
		location: location,
		log:      log,
		maxDays:  maxDays,
	}
}

func (m *Materializer) SetInvalidator(inv Invalidator) {
	m.invalidator = inv
}

// MaterializeDate persists the candidates of cfg for one day unless an
// unavailability window covers it. Existing slots are kept untouched.
func (m *Materializer) MaterializeDate(ctx context.Context, doctorID, date string, cfg schedule.DayConfig) (Result, error) {
	if _, err := schedule.ParseDate(date, m.location); err != nil {
		return Result{}, apperr.Validation("invalid date")
	}
	windows, err := m.registry.ForDoctor(ctx, doctorID)
	if err != nil {
		return Result{}, err
	}
	existing, err := m.store.Slots.List(ctx, store.SlotFilter{DoctorID: doctorID, DateFrom: date, DateTo: date})
	if err != nil {
		return Result{}, err
	}
	res, err := m.materializeDay(ctx, doctorID, date, cfg, windows, existing)
	if err != nil {
		return Result{}, err
	}
	res.Days = 1
	m.invalidate(ctx, doctorID, date)
	return res, nil
}

// MaterializeRange materializes every day of [from, to]. A date override
// supersedes the weekly template for its day.
func (m *Materializer) MaterializeRange(ctx context.Context, doctorID, from, to string) (Result, error) {
	start, err := schedule.ParseDate(from, m.location)
	if err != nil {
		return Result{}, apperr.Validation("invalid startDate")
	}
	end, err := schedule.ParseDate(to, m.location)
	if err != nil {
		return Result{}, apperr.Validation("invalid endDate")
	}
	if start.After(end) {
		return Result{}, apperr.Validation("startDate must not be after endDate")
	}
	if days := int(math.Round(end.Sub(start).Hours()/24)) + 1; days > m.maxDays {
		return Result{}, apperr.Validation(fmt.Sprintf("range exceeds %d days", m.maxDays))
	}

	templates, err := m.store.Templates.ListByDoctor(ctx, doctorID)
	if err != nil {
		return Result{}, err
	}
	byWeekday := make(map[int]models.ScheduleTemplate, len(templates))
	for _, t := range templates {
		byWeekday[t.DayOfWeek] = t
	}
	overrides, err := m.store.Overrides.ListRange(ctx, doctorID, from, to)
	if err != nil {
		return Result{}, err
	}
	byDate := make(map[string]models.ScheduleOverride, len(overrides))
	for _, o := range overrides {
		byDate[o.Date] = o
	}
	windows, err := m.registry.ForDoctor(ctx, doctorID)
	if err != nil {
		return Result{}, err
	}
	persisted, err := m.store.Slots.List(ctx, store.SlotFilter{DoctorID: doctorID, DateFrom: from, DateTo: to})
	if err != nil {
		return Result{}, err
	}
	existingByDate := make(map[string][]models.TimeSlot)
	for _, slot := range persisted {
		existingByDate[slot.Date] = append(existingByDate[slot.Date], slot)
	}

	var total Result
	for day := range schedule.Days(start, end, m.location) {
		total.Days++
		date := schedule.FormatDate(day)

		var cfg schedule.DayConfig
		if o, ok := byDate[date]; ok {
			if !o.IsDayAvailable {
				continue
			}
			cfg = schedule.FromOverride(o)
		} else {
			t, ok := byWeekday[int(day.Weekday())]
			if !ok || !t.IsAvailable {
				continue
			}
			cfg = schedule.FromTemplate(t)
		}

		res, err := m.materializeDay(ctx, doctorID, date, cfg, windows, existingByDate[date])
		if err != nil {
			return Result{}, fmt.Errorf("materialize %s: %w", date, err)
		}
		total.add(res)
	}

	if m.invalidator != nil {
		if err := m.invalidator.InvalidateDoctor(ctx, doctorID); err != nil {
			m.log.Warn("slots materialize: cache invalidation failed",
				slog.String("doctor_id", doctorID),
				slog.String("error", err.Error()),
			)
		}
	}

	m.log.Info("slots materialize: ok",
		slog.String("doctor_id", doctorID),
		slog.String("from", from),
		slog.String("to", to),
		slog.Int("generated", total.SlotsGenerated),
		slog.Int("inserted", total.Inserted),
		slog.Int("duplicates", total.Duplicates),
	)
	return total, nil
}

// materializeDay inserts the candidates of cfg that do not clash with the
// day's existing slots. A candidate starting where a slot already starts is
// left to the unique index and counted as a duplicate.
func (m *Materializer) materializeDay(ctx context.Context, doctorID, date string, cfg schedule.DayConfig, windows unavailability.Windows, existing []models.TimeSlot) (Result, error) {
	if _, blocked := windows.Covering(date, date); blocked {
		return Result{}, nil
	}
	seq, err := schedule.Generate(cfg)
	if err != nil {
		return Result{}, apperr.Validation(err.Error())
	}
	occ, err := newOccupancy(existing, true)
	if err != nil {
		return Result{}, err
	}

	now := time.Now().In(m.location)
	batch := make([]models.TimeSlot, 0)
	for c := range seq {
		if occ.blocks(c, cfg.SlotMinutes) {
			continue
		}
		batch = append(batch, newSlot(doctorID, date, c, now))
	}
	ins, err := m.store.Slots.InsertMany(ctx, batch)
	if err != nil {
		return Result{}, err
	}
	return Result{SlotsGenerated: len(batch), Inserted: ins.Inserted, Duplicates: ins.Duplicates}, nil
}

// RegenerateOverride replaces the non-booked slots of the override's date with
// fresh candidates. Booked slots survive and candidates overlapping them are
// skipped.
func (m *Materializer) RegenerateOverride(ctx context.Context, o models.ScheduleOverride) (Result, error) {
	cfg := schedule.FromOverride(o)
	seq, err := schedule.Generate(cfg)
	if err != nil {
		return Result{}, apperr.Validation(err.Error())
	}
	windows, err := m.registry.ForDoctor(ctx, o.DoctorID)
	if err != nil {
		return Result{}, err
	}
	_, blocked := windows.Covering(o.Date, o.Date)

	var res Result
	err = m.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		res = Result{Days: 1}
		if _, err := m.store.Slots.DeleteUnbooked(ctx, o.DoctorID, o.Date); err != nil {
			return err
		}
		if !o.IsDayAvailable || blocked {
			return nil
		}

		booked, err := m.store.Slots.List(ctx, store.SlotFilter{
			DoctorID: o.DoctorID,
			DateFrom: o.Date,
			DateTo:   o.Date,
			Status:   models.SlotStatusBooked,
		})
		if err != nil {
			return err
		}
		occ, err := newOccupancy(booked, false)
		if err != nil {
			return err
		}

		now := time.Now().In(m.location)
		batch := make([]models.TimeSlot, 0)
		for c := range seq {
			if occ.blocks(c, cfg.SlotMinutes) {
				continue
			}
			batch = append(batch, newSlot(o.DoctorID, o.Date, c, now))
		}
		ins, err := m.store.Slots.InsertMany(ctx, batch)
		if err != nil {
			return err
		}
		res.SlotsGenerated = len(batch)
		res.Inserted = ins.Inserted
		res.Duplicates = ins.Duplicates
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	m.invalidate(ctx, o.DoctorID, o.Date)
	m.log.Info("slots regenerate override: ok",
		slog.String("doctor_id", o.DoctorID),
		slog.String("date", o.Date),
		slog.Bool("day_available", o.IsDayAvailable),
		slog.Bool("blocked", blocked),
		slog.Int("inserted", res.Inserted),
	)
	return res, nil
}

func (m *Materializer) invalidate(ctx context.Context, doctorID, date string) {
	if m.invalidator == nil {
		return
	}
	if err := m.invalidator.Invalidate(ctx, doctorID, date); err != nil && !errors.Is(err, context.Canceled) {
		m.log.Warn("slots cache invalidation failed",
			slog.String("doctor_id", doctorID),
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
	}
}

// occupancy is the set of slots already persisted for one day.
type occupancy struct {
	starts map[string]bool
	taken  []schedule.Interval
}

// newOccupancy indexes existing slots. With sameStartOK a candidate sharing
// an existing start time is not blocked here.
func newOccupancy(existing []models.TimeSlot, sameStartOK bool) (occupancy, error) {
	occ := occupancy{taken: make([]schedule.Interval, 0, len(existing))}
	if sameStartOK {
		occ.starts = make(map[string]bool, len(existing))
	}
	for _, slot := range existing {
		iv, err := schedule.ClockInterval(slot.StartTime, slot.EndTime)
		if err != nil {
			return occupancy{}, err
		}
		occ.taken = append(occ.taken, iv)
		if occ.starts != nil {
			occ.starts[slot.StartTime] = true
		}
	}
	return occ, nil
}

func (o occupancy) blocks(c schedule.Candidate, slotMinutes int) bool {
	if o.starts[c.StartTime] {
		return false
	}
	start := c.StartMinute % minutesPerDay
	return overlapsAny(schedule.Interval{Start: start, End: start + slotMinutes}, o.taken)
}

// overlapsAny also compares against the taken intervals shifted by a day so
// that slots on both sides of midnight are checked.
func overlapsAny(iv schedule.Interval, taken []schedule.Interval) bool {
	for _, t := range taken {
		for _, shift := range []int{-minutesPerDay, 0, minutesPerDay} {
			if schedule.Overlaps(iv, schedule.Interval{Start: t.Start + shift, End: t.End + shift}) {
				return true
			}
		}
	}
	return false
}

func newSlot(doctorID, date string, c schedule.Candidate, now time.Time) models.TimeSlot {
	return models.TimeSlot{
		ID:        primitive.NewObjectID().Hex(),
		DoctorID:  doctorID,
		Date:      date,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
		Label:     c.Label,
		Period:    c.Period,
		Status:    models.SlotStatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
