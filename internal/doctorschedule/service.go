// Package doctorschedule manages the working-hours configuration doctors edit:
// recurring weekly templates and per-date overrides.
package doctorschedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/apperr"
	"github.com/Ritika1223/jensieBackend/internal/auth"
	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/schedule"
	"github.com/Ritika1223/jensieBackend/internal/slots"
	"github.com/Ritika1223/jensieBackend/internal/store"
)

var ErrDoctorOnly = fmt.Errorf("%w: only doctors can manage their schedule", apperr.ErrForbidden)

type SaveOverrideRequest struct {
	Date             string
	IsDayAvailable   bool
	OpeningTime      string
	ClosingTime      string
	SlotDuration     int
	SlotAvailability models.SlotToggles
}

type SaveOverrideResult struct {
	Date           string `json:"date"`
	IsDayAvailable bool   `json:"isDayAvailable"`
	OpeningTime    string `json:"openingTime"`
	ClosingTime    string `json:"closingTime"`
	SlotDuration   int    `json:"slotDuration"`
	SlotsGenerated int    `json:"slotsGenerated"`
}

type Service struct {
	store        *store.Store
	materializer *slots.Materializer
	location     *time.Location
	log          *slog.Logger
	now          func() time.Time
}

func NewService(st *store.Store, materializer *slots.Materializer, location *time.Location, log *slog.Logger) *Service {
	return &Service{
		store:        st,
		materializer: materializer,
		location:     location,
		log:          log,
		now:          time.Now,
	}
}

// SaveOverride stores the doctor's configuration for one date and regenerates
// that day's open slots from it.
func (s *Service) SaveOverride(ctx context.Context, p auth.Principal, req SaveOverrideRequest) (SaveOverrideResult, error) {
	if p.Role != auth.RoleDoctor || p.UserID == "" {
		return SaveOverrideResult{}, ErrDoctorOnly
	}
	past, err := schedule.IsDatePast(req.Date, s.location, s.now())
	if err != nil {
		return SaveOverrideResult{}, apperr.Validation("invalid date")
	}
	if past {
		return SaveOverrideResult{}, apperr.Validation("date in the past")
	}
	if req.SlotDuration == 0 {
		req.SlotDuration = schedule.DefaultOverrideSlotMinutes
	}
	if req.SlotDuration != 15 && req.SlotDuration != 30 {
		return SaveOverrideResult{}, apperr.Validation("slotDuration must be 15 or 30")
	}
	if req.OpeningTime == "" {
		req.OpeningTime = schedule.DefaultOpeningTime
	}
	if req.ClosingTime == "" {
		req.ClosingTime = schedule.DefaultClosingTime
	}

	override := models.ScheduleOverride{
		DoctorID:         p.UserID,
		Date:             req.Date,
		IsDayAvailable:   req.IsDayAvailable,
		OpeningTime:      req.OpeningTime,
		ClosingTime:      req.ClosingTime,
		SlotDuration:     req.SlotDuration,
		SlotAvailability: req.SlotAvailability,
		UpdatedAt:        s.now().In(s.location),
	}
	if err := schedule.FromOverride(override).Validate(); err != nil {
		return SaveOverrideResult{}, apperr.Validation(err.Error())
	}

	saved, err := s.store.Overrides.Upsert(ctx, override)
	if err != nil {
		return SaveOverrideResult{}, err
	}
	if _, err := s.materializer.RegenerateOverride(ctx, saved); err != nil {
		return SaveOverrideResult{}, err
	}

	persisted, err := s.store.Slots.List(ctx, store.SlotFilter{DoctorID: p.UserID, DateFrom: req.Date, DateTo: req.Date})
	if err != nil {
		return SaveOverrideResult{}, err
	}

	s.log.Info("doctor schedule save: ok",
		slog.String("doctor_id", p.UserID),
		slog.String("date", req.Date),
		slog.Bool("day_available", req.IsDayAvailable),
		slog.Int("slots", len(persisted)),
	)
	return SaveOverrideResult{
		Date:           saved.Date,
		IsDayAvailable: saved.IsDayAvailable,
		OpeningTime:    saved.OpeningTime,
		ClosingTime:    saved.ClosingTime,
		SlotDuration:   saved.SlotDuration,
		SlotsGenerated: len(persisted),
	}, nil
}

// GetOverrides returns the principal's overrides in [from, to] keyed by date.
func (s *Service) GetOverrides(ctx context.Context, p auth.Principal, from, to string) (map[string]models.ScheduleOverride, error) {
	if p.Role != auth.RoleDoctor || p.UserID == "" {
		return nil, ErrDoctorOnly
	}
	if from == "" || to == "" {
		return nil, apperr.Validation("startDate and endDate are required")
	}
	if _, err := schedule.ParseDate(from, s.location); err != nil {
		return nil, apperr.Validation("invalid startDate")
	}
	if _, err := schedule.ParseDate(to, s.location); err != nil {
		return nil, apperr.Validation("invalid endDate")
	}
	if from > to {
		return nil, apperr.Validation("startDate must not be after endDate")
	}

	items, err := s.store.Overrides.ListRange(ctx, p.UserID, from, to)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.ScheduleOverride, len(items))
	for _, o := range items {
		out[o.Date] = o
	}
	return out, nil
}

type TemplateRequest struct {
	IsAvailable    bool
	StartTime      string
	EndTime        string
	Periods        []models.Period
	BreakStartTime string
	BreakEndTime   string
}

// SaveTemplate replaces the recurring configuration of one weekday. Slots are
// not touched; they follow on the next range materialization.
func (s *Service) SaveTemplate(ctx context.Context, p auth.Principal, doctorID string, dayOfWeek int, req TemplateRequest) (models.ScheduleTemplate, error) {
	if !p.ActsForDoctor(doctorID) {
		return models.ScheduleTemplate{}, ErrDoctorOnly
	}
	if dayOfWeek < int(time.Sunday) || dayOfWeek > int(time.Saturday) {
		return models.ScheduleTemplate{}, apperr.Validation("dayOfWeek must be between 0 and 6")
	}
	if _, err := s.store.Doctors.Get(ctx, doctorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.ScheduleTemplate{}, apperr.NotFound("doctor not found")
		}
		return models.ScheduleTemplate{}, err
	}

	t := models.ScheduleTemplate{
		DoctorID:       doctorID,
		DayOfWeek:      dayOfWeek,
		IsAvailable:    req.IsAvailable,
		StartTime:      strings.TrimSpace(req.StartTime),
		EndTime:        strings.TrimSpace(req.EndTime),
		Periods:        req.Periods,
		BreakStartTime: strings.TrimSpace(req.BreakStartTime),
		BreakEndTime:   strings.TrimSpace(req.BreakEndTime),
		UpdatedAt:      s.now().In(s.location),
	}
	if t.Periods == nil {
		t.Periods = []models.Period{}
	}
	if err := schedule.FromTemplate(t).ValidateTemplate(); err != nil {
		return models.ScheduleTemplate{}, apperr.Validation(err.Error())
	}

	saved, err := s.store.Templates.Upsert(ctx, t)
	if err != nil {
		return models.ScheduleTemplate{}, err
	}
	s.log.Info("doctor template save: ok",
		slog.String("doctor_id", doctorID),
		slog.Int("day_of_week", dayOfWeek),
		slog.Bool("available", saved.IsAvailable),
	)
	return saved, nil
}

func (s *Service) ListTemplates(ctx context.Context, doctorID string) ([]models.ScheduleTemplate, error) {
	if doctorID == "" {
		return nil, apperr.Validation("doctorId is required")
	}
	return s.store.Templates.ListByDoctor(ctx, doctorID)
}
