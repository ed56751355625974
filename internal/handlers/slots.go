package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/transport"

	"github.com/go-chi/chi/v5"
)

type slotsQuery struct {
	Date   string        `validate:"omitempty,date"`
	Period models.Period `validate:"omitempty,period"`
}

type slotLabelsQuery struct {
	Date string `validate:"required,date"`
}

type GenerateSlotsRequest struct {
	StartDate string `json:"startDate" validate:"required,date"`
	EndDate   string `json:"endDate" validate:"required,date"`
}

func (s *Server) GetDoctorSlots(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	doctorID := chi.URLParam(r, "doctorId")
	q := slotsQuery{Date: r.URL.Query().Get("date"), Period: models.Period(r.URL.Query().Get("period"))}
	if !s.validate(w, log, "slots list", q) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	res, err := s.Availability.ListAvailable(ctx, doctorID, q.Date, q.Period)
	if err != nil {
		writeServiceError(w, log, "slots list", err)
		return
	}

	log.Info("slots list: ok",
		slog.String("doctor_id", doctorID),
		slog.Int("slots", len(res.Slots)),
		slog.Bool("doctor_available", res.IsDoctorAvailable),
	)
	transport.WriteData(w, http.StatusOK, res)
}

func (s *Server) GetSlotLabels(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	doctorID := chi.URLParam(r, "doctorId")
	q := slotLabelsQuery{Date: r.URL.Query().Get("date")}
	if !s.validate(w, log, "slot labels", q) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	entries, err := s.Labels.Labels(ctx, doctorID, q.Date)
	if err != nil {
		writeServiceError(w, log, "slot labels", err)
		return
	}

	log.Info("slot labels: ok", slog.String("doctor_id", doctorID), slog.String("date", q.Date), slog.Int("labels", len(entries)))
	transport.WriteData(w, http.StatusOK, map[string]interface{}{
		"doctorId": doctorID,
		"date":     q.Date,
		"labels":   entries,
	})
}

func (s *Server) GenerateDoctorSlots(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	doctorID := chi.URLParam(r, "doctorId")
	if !principal(r).ActsForDoctor(doctorID) {
		log.Warn("slots generate: forbidden", slog.String("doctor_id", doctorID))
		transport.WriteError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	var req GenerateSlotsRequest
	if !s.decodeAndValidate(w, r, log, "slots generate", &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	res, err := s.Materializer.MaterializeRange(ctx, doctorID, req.StartDate, req.EndDate)
	if err != nil {
		writeServiceError(w, log, "slots generate", err)
		return
	}

	log.Info("slots generate: ok", slog.String("doctor_id", doctorID), slog.Int("inserted", res.Inserted))
	transport.WriteData(w, http.StatusCreated, res)
}
