package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Ritika1223/jensieBackend/internal/doctorschedule"
	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/transport"

	"github.com/go-chi/chi/v5"
)

// SaveScheduleRequest treats an omitted isDayAvailable as an open day.
type SaveScheduleRequest struct {
	Date             string          `json:"date" validate:"required,date"`
	IsDayAvailable   *bool           `json:"isDayAvailable"`
	OpeningTime      string          `json:"openingTime" validate:"omitempty,clock"`
	ClosingTime      string          `json:"closingTime" validate:"omitempty,clock"`
	SlotDuration     int             `json:"slotDuration" validate:"omitempty,oneof=15 30"`
	SlotAvailability map[string]bool `json:"slotAvailability"`
}

type scheduleRangeQuery struct {
	StartDate string `validate:"required,date"`
	EndDate   string `validate:"required,date"`
}

type SaveTemplateRequest struct {
	IsAvailable    bool            `json:"isAvailable"`
	StartTime      string          `json:"startTime" validate:"required,clock"`
	EndTime        string          `json:"endTime" validate:"required,clock"`
	Periods        []models.Period `json:"periods" validate:"dive,period"`
	BreakStartTime string          `json:"breakStartTime" validate:"omitempty,clock"`
	BreakEndTime   string          `json:"breakEndTime" validate:"omitempty,clock"`
}

func (s *Server) SaveDoctorSchedule(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req SaveScheduleRequest
	if !s.decodeAndValidate(w, r, log, "doctor schedule save", &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	res, err := s.Schedules.SaveOverride(ctx, principal(r), doctorschedule.SaveOverrideRequest{
		Date:             req.Date,
		IsDayAvailable:   req.IsDayAvailable == nil || *req.IsDayAvailable,
		OpeningTime:      req.OpeningTime,
		ClosingTime:      req.ClosingTime,
		SlotDuration:     req.SlotDuration,
		SlotAvailability: models.SlotToggles(req.SlotAvailability),
	})
	if err != nil {
		writeServiceError(w, log, "doctor schedule save", err)
		return
	}
	transport.WriteData(w, http.StatusOK, res)
}

func (s *Server) GetDoctorSchedule(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	q := scheduleRangeQuery{StartDate: r.URL.Query().Get("startDate"), EndDate: r.URL.Query().Get("endDate")}
	if !s.validate(w, log, "doctor schedule get", q) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	overrides, err := s.Schedules.GetOverrides(ctx, principal(r), q.StartDate, q.EndDate)
	if err != nil {
		writeServiceError(w, log, "doctor schedule get", err)
		return
	}

	log.Info("doctor schedule get: ok", slog.Int("days", len(overrides)))
	transport.WriteData(w, http.StatusOK, overrides)
}

func (s *Server) SaveDoctorTemplate(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	doctorID := chi.URLParam(r, "doctorId")
	day, err := strconv.Atoi(chi.URLParam(r, "dayOfWeek"))
	if err != nil {
		log.Warn("doctor template save: invalid day")
		transport.WriteError(w, http.StatusBadRequest, "invalid dayOfWeek", nil)
		return
	}

	var req SaveTemplateRequest
	if !s.decodeAndValidate(w, r, log, "doctor template save", &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	saved, err := s.Schedules.SaveTemplate(ctx, principal(r), doctorID, day, doctorschedule.TemplateRequest{
		IsAvailable:    req.IsAvailable,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Periods:        req.Periods,
		BreakStartTime: req.BreakStartTime,
		BreakEndTime:   req.BreakEndTime,
	})
	if err != nil {
		writeServiceError(w, log, "doctor template save", err)
		return
	}
	transport.WriteData(w, http.StatusOK, saved)
}

func (s *Server) GetDoctorTemplates(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	doctorID := chi.URLParam(r, "doctorId")

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	templates, err := s.Schedules.ListTemplates(ctx, doctorID)
	if err != nil {
		writeServiceError(w, log, "doctor templates list", err)
		return
	}

	log.Info("doctor templates list: ok", slog.String("doctor_id", doctorID), slog.Int("count", len(templates)))
	transport.WriteData(w, http.StatusOK, templates)
}
